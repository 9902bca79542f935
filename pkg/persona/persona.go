// Package persona composes the system prompt sent to the language model:
// a fixed base identity, a per-user-category addendum, an optional
// question-answering note, and the user memory summary. Everything here
// is pure string assembly; the composer holds no mutable state.
package persona

import (
	"regexp"
	"strings"
)

// BasePrompt is Mika's core identity, present in every generation.
const BasePrompt = `You are Mika, a warm and playful AI companion living in a livestream chat.

WHO YOU ARE:
- Your name is Mika (close friends call you Mika-chan)
- You are curious, kind and a little mischievous
- You love helping people and answering questions
- You enjoy teasing close friends, always gently

WHAT YOU NEVER DO:
- You never pretend to be anyone else; YOU are Mika, the viewers are not
- You never say anything mean or inappropriate
- You never invent false information
- You never prefix your replies with a [name]: tag

RESPONSE STYLE:
- Reply naturally and conversationally
- Keep replies short, one to three sentences
- Be expressive but not over the top
- Answer directly, no name or prefix in front`

// CategoryCreator and CategoryFriend are the built-in special-user
// categories a config special-user table can map names onto. Any other
// category value falls back to the viewer addendum.
const (
	CategoryCreator = "creator"
	CategoryFriend  = "friend"
	CategoryViewer  = "viewer"
)

var categoryAddenda = map[string]string{
	CategoryCreator: `Special note: you are talking to your creator, the streamer who built and maintains you.
You adore them and may tease them gently. Remember: YOU are Mika, THEY are the creator.`,
	CategoryFriend: `Special note: this is a close friend of the stream.
You can be more relaxed and playful with them.`,
	CategoryViewer: `Special note: this is a viewer from chat.
Be welcoming and helpful!`,
}

const questionAddendum = `Special note: someone is asking a question.
Try to be useful, and if you do not know, say so honestly!`

var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\?\s*$`),
	regexp.MustCompile(`(?i)^(who|what|how|why|where|when|which|can|could|does|do|is|are)\b`),
	regexp.MustCompile(`(?i)anyone (know|knows|can|able)`),
}

// Composer resolves usernames to categories using a config-driven
// lookup table of normalized name -> category.
type Composer struct {
	specialUsers map[string]string
}

// NewComposer builds a composer from a special-user table. Keys are
// normalized on construction so lookups stay a plain map access.
func NewComposer(specialUsers map[string]string) *Composer {
	normalized := make(map[string]string, len(specialUsers))
	for name, category := range specialUsers {
		normalized[normalize(name)] = strings.ToLower(strings.TrimSpace(category))
	}
	return &Composer{specialUsers: normalized}
}

// Category returns the special-user category for a username, or
// CategoryViewer when the name is not in the table.
func (c *Composer) Category(username string) string {
	if category, ok := c.specialUsers[normalize(username)]; ok {
		return category
	}
	return CategoryViewer
}

// IsQuestion reports whether the content looks like a question: trailing
// question mark, leading interrogative, or an "anyone know" style ask.
func IsQuestion(content string) bool {
	trimmed := strings.TrimSpace(content)
	for _, pattern := range questionPatterns {
		if pattern.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// Compose assembles the full system prompt for one generation: base
// identity, the author's category addendum, a question addendum when the
// content asks one, and the user summary as additional context.
func (c *Composer) Compose(author, content, userSummary string) string {
	var b strings.Builder
	b.WriteString(BasePrompt)

	addendum, ok := categoryAddenda[c.Category(author)]
	if !ok {
		addendum = categoryAddenda[CategoryViewer]
	}
	b.WriteString("\n\n")
	b.WriteString(addendum)

	if IsQuestion(content) {
		b.WriteString("\n\n")
		b.WriteString(questionAddendum)
	}

	if userSummary != "" {
		b.WriteString("\n\nAdditional context:\n")
		b.WriteString(userSummary)
	}

	return b.String()
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
