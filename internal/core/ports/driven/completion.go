package driven

import "context"

// CompletionProvider provides language model completions for query
// planning and answer synthesis.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Anthropic (Claude)
//   - Ollama (local models)
type CompletionProvider interface {
	// Complete produces a completion for the request.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is a single-turn completion with an optional system prompt.
type CompletionRequest struct {
	// System is the system instruction. May be empty.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens is the maximum number of tokens to generate. Zero uses the
	// provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}
