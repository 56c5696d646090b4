package driven

import (
	"context"
	"time"

	"github.com/sakhedingi/recall/internal/core/domain"
)

// PromptCache is the exact-match response cache. Lookup is by content
// hash only - fuzzy or semantic matching belongs to the memory layer.
type PromptCache interface {
	// Get returns the cached entry for (query, context). An empty
	// context degrades the key to a query-hash-only lookup that matches
	// the first row found. A hit bumps access statistics. A miss
	// returns domain.ErrNotFound.
	Get(ctx context.Context, query, contextText string) (*domain.CachedPrompt, error)

	// Put inserts a new entry. If the (query, context) key already
	// exists the call is a no-op: an existing response is never
	// overwritten by a concurrent equal query.
	Put(ctx context.Context, entry domain.CachedPrompt) error

	// CacheChunk stores a content-addressed context fragment and
	// returns its hash. Identical content bumps the reuse counter.
	CacheChunk(ctx context.Context, content string, metadata map[string]any) (string, error)

	// TopChunks returns the most-reused context fragments.
	TopChunks(ctx context.Context, limit int) ([]domain.CachedChunk, error)

	// Stats summarises the cache.
	Stats(ctx context.Context) (domain.CacheStats, error)

	// Clear removes cached entries. A zero olderThan removes everything
	// including cached chunks; otherwise only prompts older than the
	// cutoff are removed. This is the only eviction path.
	Clear(ctx context.Context, olderThan time.Duration) error

	// Close releases resources.
	Close() error
}
