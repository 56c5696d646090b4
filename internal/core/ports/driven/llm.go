package driven

import (
	"context"

	"github.com/sakhedingi/recall/internal/core/domain"
)

// ChatOptions configures a model invocation.
type ChatOptions struct {
	// Temperature controls randomness, valid range [0, 2].
	Temperature float64

	// TopP is the nucleus sampling parameter, valid range [0, 1].
	TopP float64
}

// StreamFunc receives one token of a streaming response. Returning a
// non-nil error stops the stream; the model call is abandoned.
type StreamFunc func(token string) error

// ModelService invokes a chat model, either all-at-once or token by token.
//
// Implementations may include:
//   - OpenRouter (any hosted model via the OpenAI-compatible API)
type ModelService interface {
	// Chat sends the full message sequence and returns the response text.
	Chat(ctx context.Context, modelID string, messages []domain.ChatMessage, opts ChatOptions) (string, error)

	// ChatStream sends the message sequence and delivers the response
	// incrementally through fn. It returns only after the provider's
	// end-of-stream marker or an error.
	ChatStream(ctx context.Context, modelID string, messages []domain.ChatMessage, opts ChatOptions, fn StreamFunc) error

	// Close releases resources.
	Close() error
}
