package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sakhedingi/recall/internal/core/domain"
	"github.com/sakhedingi/recall/internal/core/ports/driven"
	"github.com/sakhedingi/recall/internal/core/ports/driving"
	"github.com/sakhedingi/recall/internal/logger"
)

// Ensure OptimizerService implements the interface.
var _ driving.AnswerService = (*OptimizerService)(nil)

const (
	// retrievalTopK is how many chunks are pulled into the context.
	retrievalTopK = 3

	// memoryLimit is how many past exchanges are consulted per question.
	memoryLimit = 3

	// Write-back confidence depends on whether retrieval found anything.
	confidenceWithDocs    = 0.85
	confidenceWithoutDocs = 0.5
)

// OptimizerService runs the layered answer pipeline: exact-match prompt
// cache, context memory, then retrieval-augmented model invocation with
// write-back to both stores. Each layer is consulted in that order and
// the first hit short-circuits the rest.
type OptimizerService struct {
	knowledgeBase driving.KnowledgeBaseService
	promptCache   driven.PromptCache
	memory        driven.MemoryStore
	model         driven.ModelService
	prompts       driven.PromptStore
}

// NewOptimizerService creates a new optimizer service.
func NewOptimizerService(
	knowledgeBase driving.KnowledgeBaseService,
	promptCache driven.PromptCache,
	memory driven.MemoryStore,
	model driven.ModelService,
	prompts driven.PromptStore,
) *OptimizerService {
	return &OptimizerService{
		knowledgeBase: knowledgeBase,
		promptCache:   promptCache,
		memory:        memory,
		model:         model,
		prompts:       prompts,
	}
}

// Answer runs the optimization pipeline for one question.
func (s *OptimizerService) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.AnswerResult, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, domain.ErrInvalidInput
	}

	var stats domain.AnswerStats

	// Layer 1: exact-match prompt cache.
	if req.UseCache {
		if cached := s.cacheLookup(ctx, req.Question); cached != nil {
			logger.Info("Cache hit (saved %d tokens)", cached.TokensSaved)
			stats.CacheHit = true
			stats.TokensSaved = cached.TokensSaved
			stats.Sources = append(stats.Sources, domain.SourcePromptCache)
			return &domain.AnswerResult{
				Response: cached.Response,
				Stats:    stats,
				Delta:    domain.ChatMessage{Role: "assistant", Content: cached.Response},
			}, nil
		}
	}

	// Layer 2: context memory.
	var pastContexts []domain.MemoryEntry
	if req.RetrievePastContexts {
		pastContexts = s.memoryLookup(ctx, req.Question)
		if len(pastContexts) > 0 {
			logger.Info("Found %d similar contexts in memory", len(pastContexts))
			stats.MemoryReused = true
			stats.Sources = append(stats.Sources, domain.SourceContextMemory)

			if exact := exactMemoryMatch(pastContexts, req.Question); exact != nil {
				logger.Info("Exact memory match, returning stored response")
				return &domain.AnswerResult{
					Response: exact.Response,
					Stats:    stats,
					Delta:    domain.ChatMessage{Role: "assistant", Content: exact.Response},
				}, nil
			}
		}
	}

	// Layer 3: retrieval + model invocation.
	retrieved, err := s.knowledgeBase.Search(ctx, req.Question, req.EmbedModelID, retrievalTopK)
	if err != nil {
		return nil, err
	}
	stats.ContextsRetrieved = len(retrieved)
	logger.Info("Retrieved %d relevant chunks", len(retrieved))

	combinedContext := assembleContext(pastContexts, retrieved)
	s.cacheChunks(ctx, retrieved)

	response, err := s.model.Chat(ctx, req.ModelID, s.buildMessages(req, combinedContext), driven.ChatOptions{
		Temperature: req.ClampedTemperature(),
		TopP:        req.ClampedTopP(),
	})
	if err != nil {
		return nil, err
	}

	s.writeBack(ctx, req, combinedContext, response, len(retrieved), len(pastContexts), &stats)

	return &domain.AnswerResult{
		Response: response,
		Stats:    stats,
		Delta:    domain.ChatMessage{Role: "assistant", Content: response},
	}, nil
}

// AnswerStream is Answer with incremental token delivery. Cache and
// memory hits are re-emitted rune by rune so every consumer sees the
// same streaming surface.
func (s *OptimizerService) AnswerStream(ctx context.Context, req domain.AnswerRequest, fn driving.TokenFunc) (domain.AnswerStats, error) {
	if strings.TrimSpace(req.Question) == "" {
		return domain.AnswerStats{}, domain.ErrInvalidInput
	}

	stats := domain.AnswerStats{Streaming: true}

	if req.UseCache {
		if cached := s.cacheLookup(ctx, req.Question); cached != nil {
			logger.Info("Cache hit (saved %d tokens)", cached.TokensSaved)
			stats.CacheHit = true
			stats.TokensSaved = cached.TokensSaved
			stats.Sources = append(stats.Sources, domain.SourcePromptCache)
			if err := emitRunes(cached.Response, stats, fn); err != nil {
				return stats, err
			}
			return stats, nil
		}
	}

	var pastContexts []domain.MemoryEntry
	if req.RetrievePastContexts {
		pastContexts = s.memoryLookup(ctx, req.Question)
		if len(pastContexts) > 0 {
			logger.Info("Found %d similar contexts in memory", len(pastContexts))
			stats.MemoryReused = true
			stats.Sources = append(stats.Sources, domain.SourceContextMemory)

			if exact := exactMemoryMatch(pastContexts, req.Question); exact != nil {
				logger.Info("Exact memory match, streaming stored response")
				if err := emitRunes(exact.Response, stats, fn); err != nil {
					return stats, err
				}
				return stats, nil
			}
		}
	}

	retrieved, err := s.knowledgeBase.Search(ctx, req.Question, req.EmbedModelID, retrievalTopK)
	if err != nil {
		return stats, err
	}
	stats.ContextsRetrieved = len(retrieved)
	logger.Info("Retrieved %d relevant chunks", len(retrieved))

	combinedContext := assembleContext(pastContexts, retrieved)
	s.cacheChunks(ctx, retrieved)

	var full strings.Builder
	err = s.model.ChatStream(ctx, req.ModelID, s.buildMessages(req, combinedContext), driven.ChatOptions{
		Temperature: req.ClampedTemperature(),
		TopP:        req.ClampedTopP(),
	}, func(token string) error {
		full.WriteString(token)
		return fn(token, stats.Clone())
	})
	if err != nil {
		// An aborted stream is never written back: a partial response
		// must not poison the cache or the memory.
		return stats, err
	}

	s.writeBack(ctx, req, combinedContext, full.String(), len(retrieved), len(pastContexts), &stats)

	return stats, nil
}

// InitializeKnowledgeBase builds or reuses the vector index.
func (s *OptimizerService) InitializeKnowledgeBase(ctx context.Context, folder, embedModelID string) (domain.IndexStats, error) {
	return s.knowledgeBase.Build(ctx, folder, embedModelID)
}

// OptimizationStats aggregates diagnostics across all three stores.
func (s *OptimizerService) OptimizationStats(ctx context.Context) (domain.OptimizationStats, error) {
	var stats domain.OptimizationStats

	indexStats, err := s.knowledgeBase.Stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("reading index stats: %w", err)
	}
	stats.VectorStore = indexStats

	cacheStats, err := s.promptCache.Stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("reading cache stats: %w", err)
	}
	stats.PromptCache = cacheStats

	memoryStats, err := s.memory.Stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("reading memory stats: %w", err)
	}
	stats.MemoryStore = memoryStats

	return stats, nil
}

// ClearAllCaches clears the vector index, the prompt cache, and the
// context memory. Everything is rebuildable, so this is always safe.
func (s *OptimizerService) ClearAllCaches(ctx context.Context) error {
	if err := s.knowledgeBase.Clear(ctx); err != nil {
		return fmt.Errorf("clearing vector index: %w", err)
	}
	if err := s.promptCache.Clear(ctx, 0); err != nil {
		return fmt.Errorf("clearing prompt cache: %w", err)
	}
	if err := s.memory.Clear(ctx); err != nil {
		return fmt.Errorf("clearing context memory: %w", err)
	}
	logger.Info("All caches cleared")
	return nil
}

// cacheLookup returns the cached entry for the question, or nil on miss.
// Lookup failures degrade to a miss rather than failing the answer.
func (s *OptimizerService) cacheLookup(ctx context.Context, question string) *domain.CachedPrompt {
	cached, err := s.promptCache.Get(ctx, question, "")
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Cache lookup failed: %v (treating as miss)", err)
		}
		return nil
	}
	return cached
}

// memoryLookup returns similar past exchanges, or nothing on failure.
func (s *OptimizerService) memoryLookup(ctx context.Context, question string) []domain.MemoryEntry {
	entries, err := s.memory.RetrieveSimilar(ctx, question, memoryLimit, 0)
	if err != nil {
		logger.Warn("Memory lookup failed: %v (continuing without memory)", err)
		return nil
	}
	return entries
}

// exactMemoryMatch finds an entry whose query equals the question,
// ignoring case and surrounding whitespace.
func exactMemoryMatch(entries []domain.MemoryEntry, question string) *domain.MemoryEntry {
	want := strings.ToLower(strings.TrimSpace(question))
	for i := range entries {
		if strings.ToLower(strings.TrimSpace(entries[i].Query)) == want {
			return &entries[i]
		}
	}
	return nil
}

// assembleContext renders memory entries and retrieved chunks into the
// annotated context block handed to the model.
func assembleContext(pastContexts []domain.MemoryEntry, retrieved []domain.ScoredChunk) string {
	var parts []string

	for _, entry := range pastContexts {
		parts = append(parts, fmt.Sprintf("[Memory - Confidence: %.2f%%]", entry.ConfidenceScore*100))
		parts = append(parts, entry.Response)
		parts = append(parts, "")
	}

	for _, result := range retrieved {
		parts = append(parts, fmt.Sprintf("[Document: %s]", result.Chunk.Name))
		parts = append(parts, result.Chunk.Content)
		parts = append(parts, "")
	}

	return strings.Join(parts, "\n")
}

// cacheChunks records retrieved chunk content for reuse diagnostics.
// Failures are logged and ignored; chunk caching is bookkeeping, not a
// prerequisite for answering.
func (s *OptimizerService) cacheChunks(ctx context.Context, retrieved []domain.ScoredChunk) {
	for _, result := range retrieved {
		_, err := s.promptCache.CacheChunk(ctx, result.Chunk.Content, map[string]any{
			"source": result.Chunk.Name,
			"score":  result.Score,
		})
		if err != nil {
			logger.Warn("Caching context chunk failed: %v", err)
		}
	}
}

// buildMessages assembles the model invocation: system prompt, caller
// history verbatim, then the question wrapped with its context. The
// request's History slice is only read, never appended to.
func (s *OptimizerService) buildMessages(req domain.AnswerRequest, combinedContext string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(req.History)+2)

	if systemPrompt := s.systemPrompt(); systemPrompt != "" {
		messages = append(messages, domain.ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, req.History...)
	messages = append(messages, domain.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", combinedContext, req.Question),
	})

	return messages
}

func (s *OptimizerService) systemPrompt() string {
	if s.prompts == nil {
		return ""
	}
	prompt, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		logger.Warn("Loading system prompt failed: %v (continuing without)", err)
		return ""
	}
	return prompt
}

// writeBack records a fresh response in the prompt cache and the context
// memory according to the request flags. Failures are logged, never
// propagated: the user already has their answer.
func (s *OptimizerService) writeBack(ctx context.Context, req domain.AnswerRequest, combinedContext, response string, retrievedDocs, pastContextsUsed int, stats *domain.AnswerStats) {
	if req.UseCache {
		tokensSaved := len(strings.Fields(combinedContext)) / 4
		err := s.promptCache.Put(ctx, domain.CachedPrompt{
			Query:       req.Question,
			Context:     combinedContext,
			Response:    response,
			ModelID:     req.ModelID,
			TokensSaved: tokensSaved,
		})
		if err != nil {
			logger.Warn("Caching response failed: %v", err)
		} else {
			stats.TokensSaved = tokensSaved
			stats.Sources = append(stats.Sources, domain.SourceNewlyCached)
		}
	}

	if req.StoreMemory {
		confidence := confidenceWithoutDocs
		if retrievedDocs > 0 {
			confidence = confidenceWithDocs
		}

		source := "optimizer"
		if stats.Streaming {
			source = "optimizer_stream"
		}

		id, err := s.memory.Store(ctx, domain.MemoryEntry{
			Query:    req.Question,
			Context:  combinedContext,
			Response: response,
			Metadata: map[string]any{
				"source":             source,
				"retrieved_docs":     retrievedDocs,
				"past_contexts_used": pastContextsUsed,
			},
			Tags:            extractTags(req.Question),
			ConfidenceScore: confidence,
			ModelID:         req.ModelID,
		})
		if err != nil {
			logger.Warn("Storing memory entry failed: %v", err)
		} else {
			logger.Info("Stored in memory (ID: %d)", id)
			stats.Sources = append(stats.Sources, domain.SourceMemoryStored)
		}
	}
}

// emitRunes replays a stored response through the streaming callback one
// rune at a time, preserving formatting exactly.
func emitRunes(response string, stats domain.AnswerStats, fn driving.TokenFunc) error {
	for _, r := range response {
		if err := fn(string(r), stats.Clone()); err != nil {
			return err
		}
	}
	return nil
}
