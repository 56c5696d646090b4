package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenRouter (openai/text-embedding-3-small and friends)
//   - Any OpenAI-compatible /embeddings endpoint
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text using the
	// given model. Calls may block for seconds; implementations must
	// honour context cancellation.
	Embed(ctx context.Context, modelID, text string) ([]float32, error)

	// Close releases resources.
	Close() error
}
