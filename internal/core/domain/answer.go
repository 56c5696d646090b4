package domain

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// AnswerRequest carries everything needed to answer one question.
// History is caller-owned and never mutated; the assistant turn produced
// by the call is returned in AnswerResult.Delta instead.
type AnswerRequest struct {
	// Question is the user's question text.
	Question string

	// ModelID is the chat model to invoke on a miss.
	ModelID string

	// EmbedModelID is the embedding model for retrieval.
	EmbedModelID string

	// History is the prior conversation, oldest first.
	History []ChatMessage

	// Temperature is the sampling temperature, clamped to [0, 2].
	Temperature float64

	// TopP is the nucleus sampling parameter, clamped to [0, 1].
	TopP float64

	// UseCache enables the exact-match prompt cache.
	UseCache bool

	// StoreMemory enables the context-memory write-back.
	StoreMemory bool

	// RetrievePastContexts enables memory lookup for additional context.
	RetrievePastContexts bool
}

// ClampedTemperature returns Temperature limited to the valid range.
func (r AnswerRequest) ClampedTemperature() float64 {
	return clamp(r.Temperature, 0, 2)
}

// ClampedTopP returns TopP limited to the valid range.
func (r AnswerRequest) ClampedTopP() float64 {
	return clamp(r.TopP, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Source labels for AnswerStats.Sources.
const (
	SourcePromptCache   = "prompt_cache"
	SourceContextMemory = "context_memory"
	SourceNewlyCached   = "newly_cached"
	SourceMemoryStored  = "memory_stored"
)

// AnswerStats reflects the cumulative cache/memory/retrieval state of
// one answer call. In streaming mode each emitted token carries a copy.
type AnswerStats struct {
	// CacheHit is true when the answer was served from the prompt cache.
	CacheHit bool

	// MemoryReused is true when memory entries contributed context.
	MemoryReused bool

	// ContextsRetrieved is the number of chunks returned by retrieval.
	ContextsRetrieved int

	// TokensSaved is the estimated model-input tokens avoided or newly
	// recorded for this query.
	TokensSaved int

	// Sources lists which optimization layers participated, in order.
	Sources []string

	// Streaming is true for the streaming answer path.
	Streaming bool
}

// Clone returns a copy of the stats safe to hand to a consumer while the
// producer keeps mutating its own copy.
func (s AnswerStats) Clone() AnswerStats {
	c := s
	c.Sources = append([]string(nil), s.Sources...)
	return c
}

// AnswerResult is the outcome of a successful answer call.
type AnswerResult struct {
	// Response is the answer text.
	Response string

	// Stats describes which optimization layers served the answer.
	Stats AnswerStats

	// Delta is the assistant turn the caller may append to its own
	// history. The request's History slice is never modified.
	Delta ChatMessage
}

// OptimizationStats aggregates diagnostics across all three stores.
type OptimizationStats struct {
	VectorStore IndexStats
	PromptCache CacheStats
	MemoryStore MemoryStats
}
