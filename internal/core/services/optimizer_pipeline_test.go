package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakhedingi/recall/internal/adapters/driven/storage/sqlite"
	"github.com/sakhedingi/recall/internal/core/domain"
)

// TestOptimizer_RepeatedQuestionServedFromCache walks the full pipeline
// against the real sqlite stores: the first ask retrieves, invokes the
// model, and writes back; the identical second ask is served from the
// persisted cache without touching the model.
func TestOptimizer_RepeatedQuestionServedFromCache(t *testing.T) {
	dir := t.TempDir()

	cache, err := sqlite.NewPromptCache(dir)
	require.NoError(t, err)
	defer cache.Close()

	memory, err := sqlite.NewMemoryStore(dir)
	require.NoError(t, err)
	defer memory.Close()

	kb := &fakeKB{results: []domain.ScoredChunk{
		{
			Chunk: domain.Chunk{Name: "faq.md__chunk_0", Content: "Refunds take 5 days."},
			Score: 0.97,
		},
	}}
	model := &fakeModel{response: "Refunds are processed within 5 days."}
	svc := NewOptimizerService(kb, cache, memory, model, &fakePrompts{prompt: "be helpful"})

	req := domain.AnswerRequest{
		Question:             "How long do refunds take?",
		ModelID:              "chat-model",
		EmbedModelID:         "embed-model",
		Temperature:          0.7,
		TopP:                 0.9,
		UseCache:             true,
		StoreMemory:          true,
		RetrievePastContexts: true,
	}

	first, err := svc.Answer(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Refunds are processed within 5 days.", first.Response)
	assert.False(t, first.Stats.CacheHit)
	assert.Equal(t, 1, first.Stats.ContextsRetrieved)
	assert.Equal(t, 1, model.calls)

	second, err := svc.Answer(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Response, second.Response)
	assert.True(t, second.Stats.CacheHit)
	assert.Positive(t, second.Stats.TokensSaved)
	assert.Equal(t, []string{domain.SourcePromptCache}, second.Stats.Sources)
	assert.Equal(t, 1, model.calls, "cached answer must not invoke the model again")
}
