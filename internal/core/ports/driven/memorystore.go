package driven

import (
	"context"

	"github.com/sakhedingi/recall/internal/core/domain"
)

// MemoryStore is the long-term log of answered exchanges. Unlike the
// prompt cache it supports tag lookup and a recency-based fallback when
// no exact query match exists.
type MemoryStore interface {
	// Store inserts the entry or, when the (query, context) key already
	// exists, bumps its access statistics instead of duplicating.
	// It returns the entry's identifier.
	Store(ctx context.Context, entry domain.MemoryEntry) (int64, error)

	// RetrieveSimilar returns entries for the query above the
	// confidence floor. An exact query-hash match is preferred, ordered
	// by (access count desc, confidence desc). With no exact match it
	// falls back to the most recently accessed entries - a recency
	// heuristic, not semantic similarity; callers must not assume
	// topical relevance from the fallback.
	RetrieveSimilar(ctx context.Context, query string, limit int, minConfidence float64) ([]domain.MemoryEntry, error)

	// GetByTags returns entries whose serialised tag list contains each
	// tag, concatenated per tag. Duplicates across tags are not removed.
	GetByTags(ctx context.Context, tags []string, limit int) ([]domain.MemoryEntry, error)

	// CreateThread creates an empty conversation thread.
	// Returns domain.ErrAlreadyExists if the thread ID is taken.
	CreateThread(ctx context.Context, threadID, title string) error

	// AddToThread appends an entry to a thread. An ID already present
	// is not re-added.
	AddToThread(ctx context.Context, threadID string, contextID int64) error

	// GetThread returns a thread by ID.
	GetThread(ctx context.Context, threadID string) (*domain.Thread, error)

	// Cleanup deletes entries older than the given number of days that
	// also have a low access count. Frequently accessed entries are
	// never auto-deleted regardless of age. Returns rows deleted.
	Cleanup(ctx context.Context, days int) (int, error)

	// Stats summarises the store.
	Stats(ctx context.Context) (domain.MemoryStats, error)

	// Clear removes all entries and threads.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
