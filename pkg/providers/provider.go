package providers

import "context"

// Role values for history messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior turn of conversation, provider-agnostic.
type Message struct {
	Role    string
	Content string
}

// Response is a successful completion tagged with the provider that
// produced it. Ephemeral; only the engine's exchange log keeps any of it.
type Response struct {
	Text       string
	ProviderID string
}

// Provider is a single generative backend. Each implementation shapes its
// own request: chat-capable backends carry the instruction as a system
// message, single-prompt backends prefix it onto one concatenated prompt.
// An empty completion with a nil error is treated as a failure by the
// orchestrator.
type Provider interface {
	Name() string
	Generate(ctx context.Context, instruction string, history []Message, userMessage string) (string, error)
}

// Options are sampling knobs shared by all providers.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}
