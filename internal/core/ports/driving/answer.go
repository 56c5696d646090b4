package driving

import (
	"context"

	"github.com/sakhedingi/recall/internal/core/domain"
)

// TokenFunc receives one token of a streaming answer together with a
// snapshot of the stats at the time of emission. Returning a non-nil
// error cancels the stream; no write-back happens for a cancelled stream.
type TokenFunc func(token string, stats domain.AnswerStats) error

// AnswerService answers questions with full optimization: prompt cache,
// context memory, and retrieval-augmented model invocation.
type AnswerService interface {
	// Answer runs the optimization pipeline for one question.
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.AnswerResult, error)

	// AnswerStream is Answer with incremental token delivery. Cache and
	// memory hits are re-emitted through fn as well, so consumers see a
	// uniform interface regardless of where the answer came from.
	// The returned stats are the final cumulative stats.
	AnswerStream(ctx context.Context, req domain.AnswerRequest, fn TokenFunc) (domain.AnswerStats, error)

	// InitializeKnowledgeBase builds or reuses the vector index for the
	// given corpus folder.
	InitializeKnowledgeBase(ctx context.Context, folder, embedModelID string) (domain.IndexStats, error)

	// OptimizationStats aggregates diagnostics across all stores.
	OptimizationStats(ctx context.Context) (domain.OptimizationStats, error)

	// ClearAllCaches clears the vector index, the prompt cache, and the
	// context memory. Everything is rebuildable afterwards.
	ClearAllCaches(ctx context.Context) error
}

// KnowledgeBaseService maintains the persistent vector index.
type KnowledgeBaseService interface {
	// Build indexes the corpus folder, reusing the persisted index when
	// neither the corpus nor the embedding model changed.
	Build(ctx context.Context, folder, embedModelID string) (domain.IndexStats, error)

	// Search returns the k most similar chunks to the query text.
	// An embedding failure yields an empty result, not an error.
	Search(ctx context.Context, query, embedModelID string, k int) ([]domain.ScoredChunk, error)

	// Clear discards the persisted index.
	Clear(ctx context.Context) error

	// Stats describes the current state of the persisted index.
	Stats(ctx context.Context) (domain.IndexStats, error)
}
