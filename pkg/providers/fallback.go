package providers

import "math/rand"

// fallbackPhrases are in-character stand-ins used whenever generation
// fails, so Mika always answers something.
var fallbackPhrases = []string{
	"Hmm, I hit a little glitch there... try me again in a moment! 💫",
	"Oops, my brain is taking a nap! Give it a sec~ 🌙",
	"Ah, I was thinking too hard! Ask me that one more time? ✨",
}

// Fallback returns a pseudo-randomly chosen fallback phrase.
func Fallback() string {
	return fallbackPhrases[rand.Intn(len(fallbackPhrases))]
}
