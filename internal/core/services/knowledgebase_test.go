package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakhedingi/recall/internal/chunker"
	"github.com/sakhedingi/recall/internal/core/domain"
)

// fakeLoader serves a fixed in-memory corpus.
type fakeLoader struct {
	docs    []domain.RawDocument
	loadErr error
}

func (f *fakeLoader) Load(_ context.Context, _ string) ([]domain.RawDocument, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.docs, nil
}

func (f *fakeLoader) Hashes(_ context.Context, _ string) (map[string]string, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	hashes := make(map[string]string, len(f.docs))
	for _, doc := range f.docs {
		hashes[doc.Filename] = domain.HashText(doc.Content)
	}
	return hashes, nil
}

// fakeEmbedder returns deterministic embeddings and counts calls.
type fakeEmbedder struct {
	calls    int
	failOn   string // text that triggers an error
	perQuery map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, _, text string) ([]float32, error) {
	f.calls++
	if f.failOn != "" && text == f.failOn {
		return nil, fmt.Errorf("%w: simulated", domain.ErrEmbeddingFailed)
	}
	if v, ok := f.perQuery[text]; ok {
		return v, nil
	}
	// Embedding derived from content length keeps vectors distinct.
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) Close() error { return nil }

// fakeChunkStore is an in-memory driven.ChunkStore.
type fakeChunkStore struct {
	chunks      []domain.Chunk
	fingerprint domain.Fingerprint
	replaces    int
}

func (f *fakeChunkStore) Fingerprint(_ context.Context) (domain.Fingerprint, error) {
	return f.fingerprint, nil
}

func (f *fakeChunkStore) Load(_ context.Context) ([]domain.Chunk, error) {
	return f.chunks, nil
}

func (f *fakeChunkStore) Replace(_ context.Context, chunks []domain.Chunk, fp domain.Fingerprint) error {
	f.chunks = chunks
	f.fingerprint = fp
	f.replaces++
	return nil
}

func (f *fakeChunkStore) Clear(ctx context.Context) error {
	return f.Replace(ctx, nil, domain.Fingerprint{})
}

func (f *fakeChunkStore) Close() error { return nil }

func newTestKnowledgeBase(loader *fakeLoader, embedder *fakeEmbedder, store *fakeChunkStore) *KnowledgeBaseService {
	return NewKnowledgeBaseService(loader, embedder, store,
		chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(10)))
}

func TestKnowledgeBase_BuildIndexesCorpus(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{
		{Filename: "a.txt", Content: "alpha document content"},
		{Filename: "b.txt", Content: "beta document content"},
	}}
	embedder := &fakeEmbedder{}
	store := &fakeChunkStore{}
	kb := newTestKnowledgeBase(loader, embedder, store)

	stats, err := kb.Build(context.Background(), "corpus", "embed-model")
	require.NoError(t, err)

	assert.False(t, stats.CacheHit)
	assert.Equal(t, 2, stats.NumDocuments)
	assert.Equal(t, 2, stats.NumChunks)
	assert.Equal(t, "embed-model", stats.ModelID)
	assert.Equal(t, 1, store.replaces)
	assert.Equal(t, "embed-model", store.fingerprint.ModelID)
	assert.Len(t, store.fingerprint.Files, 2)
}

func TestKnowledgeBase_BuildReusesUnchangedIndex(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{
		{Filename: "a.txt", Content: "alpha document content"},
	}}
	embedder := &fakeEmbedder{}
	store := &fakeChunkStore{}
	kb := newTestKnowledgeBase(loader, embedder, store)

	_, err := kb.Build(context.Background(), "corpus", "embed-model")
	require.NoError(t, err)
	firstCalls := embedder.calls

	stats, err := kb.Build(context.Background(), "corpus", "embed-model")
	require.NoError(t, err)

	assert.True(t, stats.CacheHit)
	assert.Equal(t, firstCalls, embedder.calls, "cached build must not embed")
	assert.Equal(t, 1, store.replaces)
}

func TestKnowledgeBase_BuildRebuildsOnContentChange(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{
		{Filename: "a.txt", Content: "original content"},
	}}
	embedder := &fakeEmbedder{}
	store := &fakeChunkStore{}
	kb := newTestKnowledgeBase(loader, embedder, store)

	_, err := kb.Build(context.Background(), "corpus", "embed-model")
	require.NoError(t, err)

	loader.docs[0].Content = "changed content"
	stats, err := kb.Build(context.Background(), "corpus", "embed-model")
	require.NoError(t, err)

	assert.False(t, stats.CacheHit)
	assert.Equal(t, 2, store.replaces)
}

func TestKnowledgeBase_BuildRebuildsOnModelChange(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{
		{Filename: "a.txt", Content: "stable content"},
	}}
	embedder := &fakeEmbedder{}
	store := &fakeChunkStore{}
	kb := newTestKnowledgeBase(loader, embedder, store)

	_, err := kb.Build(context.Background(), "corpus", "model-one")
	require.NoError(t, err)

	stats, err := kb.Build(context.Background(), "corpus", "model-two")
	require.NoError(t, err)

	assert.False(t, stats.CacheHit)
	assert.Equal(t, "model-two", stats.ModelID)
}

func TestKnowledgeBase_BuildSkipsFailedChunks(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{
		{Filename: "a.txt", Content: "good chunk"},
		{Filename: "b.txt", Content: "bad chunk"},
	}}
	embedder := &fakeEmbedder{failOn: "bad chunk"}
	store := &fakeChunkStore{}
	kb := newTestKnowledgeBase(loader, embedder, store)

	stats, err := kb.Build(context.Background(), "corpus", "embed-model")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NumChunks)
	require.Len(t, store.chunks, 1)
	assert.Equal(t, "good chunk", store.chunks[0].Content)
}

func TestKnowledgeBase_BuildPropagatesCorpusError(t *testing.T) {
	loader := &fakeLoader{loadErr: fmt.Errorf("%w: gone", domain.ErrCorpusRead)}
	kb := newTestKnowledgeBase(loader, &fakeEmbedder{}, &fakeChunkStore{})

	_, err := kb.Build(context.Background(), "corpus", "embed-model")
	assert.ErrorIs(t, err, domain.ErrCorpusRead)
}

func TestKnowledgeBase_SearchRanksBySimilarity(t *testing.T) {
	store := &fakeChunkStore{chunks: []domain.Chunk{
		{ID: "c1", Name: "a.txt__chunk_0", Content: "first", Embedding: []float32{1, 0, 0}},
		{ID: "c2", Name: "a.txt__chunk_1", Content: "second", Embedding: []float32{0, 1, 0}},
		{ID: "c3", Name: "b.txt__chunk_0", Content: "third", Embedding: []float32{0.9, 0.1, 0}},
	}}
	embedder := &fakeEmbedder{perQuery: map[string][]float32{
		"find first": {1, 0, 0},
	}}
	kb := newTestKnowledgeBase(&fakeLoader{}, embedder, store)

	results, err := kb.Search(context.Background(), "find first", "embed-model", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "c3", results[1].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestKnowledgeBase_SearchEmptyQueryOrIndex(t *testing.T) {
	kb := newTestKnowledgeBase(&fakeLoader{}, &fakeEmbedder{}, &fakeChunkStore{})

	results, err := kb.Search(context.Background(), "   ", "m", 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = kb.Search(context.Background(), "anything", "m", 3)
	require.NoError(t, err)
	assert.Empty(t, results, "empty index yields no results")
}

func TestKnowledgeBase_SearchDegradesOnEmbeddingFailure(t *testing.T) {
	store := &fakeChunkStore{chunks: []domain.Chunk{
		{ID: "c1", Content: "x", Embedding: []float32{1, 0, 0}},
	}}
	embedder := &fakeEmbedder{failOn: "doomed query"}
	kb := newTestKnowledgeBase(&fakeLoader{}, embedder, store)

	results, err := kb.Search(context.Background(), "doomed query", "m", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestKnowledgeBase_SearchStopsOnCancelledContext(t *testing.T) {
	store := &fakeChunkStore{chunks: []domain.Chunk{
		{ID: "c1", Content: "x", Embedding: []float32{1, 0, 0}},
	}}
	embedder := &fakeEmbedder{failOn: "doomed query"}
	kb := newTestKnowledgeBase(&fakeLoader{}, embedder, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := kb.Search(ctx, "doomed query", "m", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKnowledgeBase_Clear(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{
		{Filename: "a.txt", Content: "content"},
	}}
	store := &fakeChunkStore{}
	kb := newTestKnowledgeBase(loader, &fakeEmbedder{}, store)

	_, err := kb.Build(context.Background(), "corpus", "m")
	require.NoError(t, err)

	require.NoError(t, kb.Clear(context.Background()))
	assert.Empty(t, store.chunks)

	stats, err := kb.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NumChunks)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"both empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

// Guard the degraded-search contract: an embedding failure must never be
// surfaced as an error from Search.
func TestKnowledgeBase_SearchNeverReturnsEmbeddingError(t *testing.T) {
	store := &fakeChunkStore{chunks: []domain.Chunk{
		{ID: "c1", Content: "x", Embedding: []float32{1, 0, 0}},
	}}
	embedder := &fakeEmbedder{failOn: "q"}
	kb := newTestKnowledgeBase(&fakeLoader{}, embedder, store)

	_, err := kb.Search(context.Background(), "q", "m", 1)
	assert.False(t, errors.Is(err, domain.ErrEmbeddingFailed))
	assert.NoError(t, err)
}
