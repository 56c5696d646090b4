package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/sakhedingi/recall/internal/chunker"
	"github.com/sakhedingi/recall/internal/core/domain"
	"github.com/sakhedingi/recall/internal/core/ports/driven"
	"github.com/sakhedingi/recall/internal/core/ports/driving"
	"github.com/sakhedingi/recall/internal/logger"
)

// Ensure KnowledgeBaseService implements the interface.
var _ driving.KnowledgeBaseService = (*KnowledgeBaseService)(nil)

// KnowledgeBaseService maintains the persistent vector index over a
// corpus folder. Builds are all-or-nothing: the stored chunk set is
// reused wholesale when the fingerprint matches and replaced wholesale
// when it doesn't.
type KnowledgeBaseService struct {
	loader     driven.DocumentLoader
	embedder   driven.EmbeddingService
	chunkStore driven.ChunkStore
	chunker    *chunker.Chunker

	// mu guards the in-memory chunk cache, which mirrors the persisted
	// chunk set so repeated searches skip the store.
	mu     sync.RWMutex
	chunks []domain.Chunk
	loaded bool
}

// NewKnowledgeBaseService creates a new knowledge base service.
func NewKnowledgeBaseService(
	loader driven.DocumentLoader,
	embedder driven.EmbeddingService,
	chunkStore driven.ChunkStore,
	c *chunker.Chunker,
) *KnowledgeBaseService {
	if c == nil {
		c = chunker.New()
	}
	return &KnowledgeBaseService{
		loader:     loader,
		embedder:   embedder,
		chunkStore: chunkStore,
		chunker:    c,
	}
}

// Build indexes the corpus folder. When neither the corpus files nor the
// embedding model changed since the last build, the persisted index is
// reused without any embedding calls.
func (s *KnowledgeBaseService) Build(ctx context.Context, folder, embedModelID string) (domain.IndexStats, error) {
	logger.Section("Knowledge Base Build")

	hashes, err := s.loader.Hashes(ctx, folder)
	if err != nil {
		return domain.IndexStats{}, err
	}

	fresh := domain.Fingerprint{ModelID: embedModelID, Files: hashes}

	stored, err := s.chunkStore.Fingerprint(ctx)
	if err == nil && stored.Matches(fresh) {
		chunks, loadErr := s.chunkStore.Load(ctx)
		if loadErr == nil {
			logger.Info("Corpus unchanged, reusing %d indexed chunks", len(chunks))
			s.setCache(chunks)
			return domain.IndexStats{
				NumChunks:    len(chunks),
				NumDocuments: len(hashes),
				ModelID:      embedModelID,
				CacheHit:     true,
			}, nil
		}
		logger.Warn("Stored index unreadable (%v), rebuilding", loadErr)
	}

	docs, err := s.loader.Load(ctx, folder)
	if err != nil {
		return domain.IndexStats{}, err
	}

	logger.Info("Indexing %d documents from %s", len(docs), folder)

	var chunks []domain.Chunk
	for _, doc := range docs {
		for _, chunk := range s.chunker.Split(doc) {
			embedding, embedErr := s.embedder.Embed(ctx, embedModelID, chunk.Content)
			if embedErr != nil {
				if ctx.Err() != nil {
					return domain.IndexStats{}, ctx.Err()
				}
				// A single failed chunk is dropped, not fatal.
				logger.Warn("Embedding %s failed: %v (skipping chunk)", chunk.Name, embedErr)
				continue
			}
			chunk.Embedding = embedding
			chunks = append(chunks, chunk)
		}
	}

	if err := s.chunkStore.Replace(ctx, chunks, fresh); err != nil {
		return domain.IndexStats{}, fmt.Errorf("persisting index: %w", err)
	}
	s.setCache(chunks)

	logger.Info("Indexed %d chunks from %d documents", len(chunks), len(docs))

	return domain.IndexStats{
		NumChunks:    len(chunks),
		NumDocuments: len(hashes),
		ModelID:      embedModelID,
	}, nil
}

// Search returns the k most similar chunks to the query, best first.
// A failed query embedding degrades to an empty result so the caller can
// proceed without context.
func (s *KnowledgeBaseService) Search(ctx context.Context, query, embedModelID string, k int) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}

	chunks, err := s.cachedChunks(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryEmbedding, err := s.embedder.Embed(ctx, embedModelID, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Query embedding failed: %v (searching without context)", err)
		return nil, nil
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		scored = append(scored, domain.ScoredChunk{
			Chunk: chunk,
			Score: cosineSimilarity(queryEmbedding, chunk.Embedding),
		})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Clear discards the persisted index and the in-memory mirror.
func (s *KnowledgeBaseService) Clear(ctx context.Context) error {
	if err := s.chunkStore.Clear(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.chunks = nil
	s.loaded = false
	s.mu.Unlock()
	return nil
}

// Stats describes the current state of the persisted index.
func (s *KnowledgeBaseService) Stats(ctx context.Context) (domain.IndexStats, error) {
	chunks, err := s.cachedChunks(ctx)
	if err != nil {
		return domain.IndexStats{}, err
	}

	fp, err := s.chunkStore.Fingerprint(ctx)
	if err != nil {
		return domain.IndexStats{}, err
	}

	return domain.IndexStats{
		NumChunks:    len(chunks),
		NumDocuments: len(fp.Files),
		ModelID:      fp.ModelID,
	}, nil
}

func (s *KnowledgeBaseService) setCache(chunks []domain.Chunk) {
	s.mu.Lock()
	s.chunks = chunks
	s.loaded = true
	s.mu.Unlock()
}

func (s *KnowledgeBaseService) cachedChunks(ctx context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	if s.loaded {
		chunks := s.chunks
		s.mu.RUnlock()
		return chunks, nil
	}
	s.mu.RUnlock()

	chunks, err := s.chunkStore.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	s.setCache(chunks)
	return chunks, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors score 0.0 rather than erroring, so
// a degenerate embedding simply ranks last.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
