package driven

import (
	"context"

	"github.com/sakhedingi/recall/internal/core/domain"
)

// ChunkStore persists the embedded chunk set together with the corpus
// fingerprint that produced it. The chunk set is replaced wholesale -
// there is no partial or incremental update.
type ChunkStore interface {
	// Fingerprint returns the fingerprint of the persisted index.
	// A zero-value fingerprint means no index is persisted. A corrupt
	// store is reported as empty, not as an error.
	Fingerprint(ctx context.Context) (domain.Fingerprint, error)

	// Load returns all persisted chunks in insertion order.
	Load(ctx context.Context) ([]domain.Chunk, error)

	// Replace atomically swaps the persisted chunk set and fingerprint.
	// A concurrent reader observes either the old complete set or the
	// new complete set, never a mixture.
	Replace(ctx context.Context, chunks []domain.Chunk, fp domain.Fingerprint) error

	// Clear removes the chunk set and fingerprint.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
