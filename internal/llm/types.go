package llm

import "context"

// Role identifies which side of the interview a history message belongs to.
// The wire protocol of a concrete backend maps these to its own role names.
type Role string

const (
	// RoleAsker is the interviewer side of the conversation.
	RoleAsker Role = "asker"
	// RoleResponder is the candidate (twin) side of the conversation.
	RoleResponder Role = "responder"
)

// Message is one turn of conversation history passed to the backend.
type Message struct {
	Role    Role
	Content string
}

// Options control a single generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client abstracts the generative backend. Chat produces the next candidate
// reply from a system prompt plus history; Embed returns the embedding vector
// for a text. Both are network calls and honor context cancellation.
type Client interface {
	Chat(ctx context.Context, systemPrompt string, history []Message, opts Options) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}
