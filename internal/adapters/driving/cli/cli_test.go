package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakhedingi/recall/internal/core/domain"
	"github.com/sakhedingi/recall/internal/core/ports/driving"
)

// fakeAnswerService records calls and returns canned results.
type fakeAnswerService struct {
	result       *domain.AnswerResult
	streamTokens []string
	indexStats   domain.IndexStats
	optStats     domain.OptimizationStats
	gotRequest   domain.AnswerRequest
	cleared      bool
}

func (f *fakeAnswerService) Answer(_ context.Context, req domain.AnswerRequest) (*domain.AnswerResult, error) {
	f.gotRequest = req
	return f.result, nil
}

func (f *fakeAnswerService) AnswerStream(_ context.Context, req domain.AnswerRequest, fn driving.TokenFunc) (domain.AnswerStats, error) {
	f.gotRequest = req
	for _, token := range f.streamTokens {
		if err := fn(token, domain.AnswerStats{Streaming: true}); err != nil {
			return domain.AnswerStats{}, err
		}
	}
	return domain.AnswerStats{Streaming: true}, nil
}

func (f *fakeAnswerService) InitializeKnowledgeBase(_ context.Context, _, embedModelID string) (domain.IndexStats, error) {
	stats := f.indexStats
	stats.ModelID = embedModelID
	return stats, nil
}

func (f *fakeAnswerService) OptimizationStats(_ context.Context) (domain.OptimizationStats, error) {
	return f.optStats, nil
}

func (f *fakeAnswerService) ClearAllCaches(_ context.Context) error {
	f.cleared = true
	return nil
}

// fakeConfigStore is an empty config so commands fall back to defaults
// instead of touching the real config file.
type fakeConfigStore struct{}

func (fakeConfigStore) Get(string) (any, bool)  { return nil, false }
func (fakeConfigStore) GetString(string) string { return "" }
func (fakeConfigStore) GetInt(string) int       { return 0 }
func (fakeConfigStore) GetFloat(string) float64 { return 0 }
func (fakeConfigStore) GetBool(string) bool     { return false }
func (fakeConfigStore) Set(string, any) error   { return nil }
func (fakeConfigStore) Save() error             { return nil }
func (fakeConfigStore) Load() error             { return nil }
func (fakeConfigStore) Path() string            { return "" }

// fakeCLICache backs the stats listing of reused fragments.
type fakeCLICache struct {
	top []domain.CachedChunk
}

func (f *fakeCLICache) Get(_ context.Context, _, _ string) (*domain.CachedPrompt, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeCLICache) Put(_ context.Context, _ domain.CachedPrompt) error { return nil }
func (f *fakeCLICache) CacheChunk(_ context.Context, content string, _ map[string]any) (string, error) {
	return domain.HashText(content), nil
}
func (f *fakeCLICache) TopChunks(_ context.Context, _ int) ([]domain.CachedChunk, error) {
	return f.top, nil
}
func (f *fakeCLICache) Stats(_ context.Context) (domain.CacheStats, error) {
	return domain.CacheStats{}, nil
}
func (f *fakeCLICache) Clear(_ context.Context, _ time.Duration) error { return nil }
func (f *fakeCLICache) Close() error                                   { return nil }

// fakeCLIMemory backs the tag listing command.
type fakeCLIMemory struct {
	byTags []domain.MemoryEntry
}

func (f *fakeCLIMemory) Store(_ context.Context, _ domain.MemoryEntry) (int64, error) {
	return 0, nil
}
func (f *fakeCLIMemory) RetrieveSimilar(_ context.Context, _ string, _ int, _ float64) ([]domain.MemoryEntry, error) {
	return nil, nil
}
func (f *fakeCLIMemory) GetByTags(_ context.Context, _ []string, _ int) ([]domain.MemoryEntry, error) {
	return f.byTags, nil
}
func (f *fakeCLIMemory) CreateThread(_ context.Context, _, _ string) error      { return nil }
func (f *fakeCLIMemory) AddToThread(_ context.Context, _ string, _ int64) error { return nil }
func (f *fakeCLIMemory) GetThread(_ context.Context, _ string) (*domain.Thread, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeCLIMemory) Cleanup(_ context.Context, _ int) (int, error) { return 0, nil }
func (f *fakeCLIMemory) Stats(_ context.Context) (domain.MemoryStats, error) {
	return domain.MemoryStats{}, nil
}
func (f *fakeCLIMemory) Clear(_ context.Context) error { return nil }
func (f *fakeCLIMemory) Close() error                  { return nil }

// runCommand executes the root command against an injected fake service
// and captures its output.
func runCommand(t *testing.T, svc *fakeAnswerService, args ...string) string {
	t.Helper()

	originalService := answerService
	originalConfig := configStore
	originalCache := promptCache
	originalMemory := memoryStore
	answerService = svc
	configStore = fakeConfigStore{}
	if promptCache == nil {
		promptCache = &fakeCLICache{}
	}
	if memoryStore == nil {
		memoryStore = &fakeCLIMemory{}
	}
	t.Cleanup(func() {
		answerService = originalService
		configStore = originalConfig
		promptCache = originalCache
		memoryStore = originalMemory
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out := runCommand(t, &fakeAnswerService{}, "version")
	assert.Contains(t, out, "recall version test-version-1.0.0")
}

func TestAskCmd_PrintsResponse(t *testing.T) {
	svc := &fakeAnswerService{
		result: &domain.AnswerResult{Response: "the answer"},
	}

	out := runCommand(t, svc, "ask", "what is overlap?")

	assert.Contains(t, out, "the answer")
	assert.Equal(t, "what is overlap?", svc.gotRequest.Question)
	assert.True(t, svc.gotRequest.UseCache)
	assert.True(t, svc.gotRequest.StoreMemory)
	assert.True(t, svc.gotRequest.RetrievePastContexts)
	assert.InDelta(t, 0.7, svc.gotRequest.Temperature, 1e-9)
	assert.InDelta(t, 0.9, svc.gotRequest.TopP, 1e-9)
}

func TestAskCmd_OptOutFlags(t *testing.T) {
	svc := &fakeAnswerService{
		result: &domain.AnswerResult{Response: "x"},
	}

	runCommand(t, svc, "ask", "q", "--no-cache", "--no-memory", "--no-past-contexts")

	assert.False(t, svc.gotRequest.UseCache)
	assert.False(t, svc.gotRequest.StoreMemory)
	assert.False(t, svc.gotRequest.RetrievePastContexts)
}

func TestAskCmd_Stream(t *testing.T) {
	svc := &fakeAnswerService{
		streamTokens: []string{"str", "eamed"},
	}

	out := runCommand(t, svc, "ask", "q", "--stream")
	assert.Contains(t, out, "streamed")
}

func TestIndexCmd_ReportsStats(t *testing.T) {
	svc := &fakeAnswerService{
		indexStats: domain.IndexStats{NumChunks: 12, NumDocuments: 3},
	}

	out := runCommand(t, svc, "index", "./docs", "--embed-model", "my-embed")
	assert.Contains(t, out, "Indexed 12 chunks from 3 documents (my-embed)")
}

func TestIndexCmd_CacheHit(t *testing.T) {
	svc := &fakeAnswerService{
		indexStats: domain.IndexStats{NumChunks: 5, NumDocuments: 2, CacheHit: true},
	}

	out := runCommand(t, svc, "index", "./docs")
	assert.Contains(t, out, "Index up to date")
}

func TestStatsCmd_PrintsAllSections(t *testing.T) {
	svc := &fakeAnswerService{
		optStats: domain.OptimizationStats{
			VectorStore: domain.IndexStats{NumChunks: 7, NumDocuments: 2},
			PromptCache: domain.CacheStats{CachedPrompts: 4, TotalTokensSaved: 99},
			MemoryStore: domain.MemoryStats{TotalEntries: 3, Threads: 1},
		},
	}

	out := runCommand(t, svc, "stats")

	assert.Contains(t, out, "Vector index:")
	assert.Contains(t, out, "chunks:            7")
	assert.Contains(t, out, "Prompt cache:")
	assert.Contains(t, out, "cached responses:  4")
	assert.Contains(t, out, "Context memory:")
	assert.Contains(t, out, "entries:           3")
}

func TestStatsCmd_ListsReusedFragments(t *testing.T) {
	t.Cleanup(func() { promptCache = nil })
	promptCache = &fakeCLICache{top: []domain.CachedChunk{
		{Content: "Refunds take 5 days.", ReuseCount: 4},
		{Content: "Shipping is free above 50 euro.", ReuseCount: 2},
	}}

	out := runCommand(t, &fakeAnswerService{}, "stats")

	assert.Contains(t, out, "Most reused context fragments:")
	assert.Contains(t, out, "4x  Refunds take 5 days.")
	assert.Contains(t, out, "2x  Shipping is free above 50 euro.")
}

func TestMemoryCmd_ListsEntriesByTag(t *testing.T) {
	t.Cleanup(func() { memoryStore = nil })
	memoryStore = &fakeCLIMemory{byTags: []domain.MemoryEntry{
		{
			ID:              7,
			Query:           "how do I build the index?",
			Response:        "Run recall index with the corpus folder.",
			Tags:            []string{"implementation"},
			ConfidenceScore: 0.85,
			AccessCount:     3,
		},
	}}

	out := runCommand(t, &fakeAnswerService{}, "memory", "implementation")

	assert.Contains(t, out, "#7 [implementation] confidence 0.85, accessed 3x")
	assert.Contains(t, out, "Q: how do I build the index?")
	assert.Contains(t, out, "A: Run recall index with the corpus folder.")
}

func TestMemoryCmd_NoMatches(t *testing.T) {
	t.Cleanup(func() { memoryStore = nil })
	memoryStore = &fakeCLIMemory{}

	out := runCommand(t, &fakeAnswerService{}, "memory", "design")

	assert.Contains(t, out, "No memory entries tagged design")
}

func TestClearCmd_ClearsEverything(t *testing.T) {
	svc := &fakeAnswerService{}

	out := runCommand(t, svc, "clear")

	assert.True(t, svc.cleared)
	assert.Contains(t, out, "All caches cleared")
}
