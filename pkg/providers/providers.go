// Package providers talks to the language model behind Mika. The only
// implementation is an OpenAI-compatible chat-completions client, which
// covers Groq, OpenRouter and local gateways alike.
package providers

import "context"

// Message is one turn in the conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client generates a reply from a system prompt and conversation turns.
type Client interface {
	Generate(ctx context.Context, systemPrompt string, turns []Message) (string, error)
}
