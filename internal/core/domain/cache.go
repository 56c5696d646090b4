package domain

import "time"

// CachedPrompt is a previously answered (query, context) pair.
// At most one row exists per (query hash, context hash); a second insert
// with the same key is ignored, never overwritten.
type CachedPrompt struct {
	// Query is the original question text.
	Query string

	// Context is the assembled context the response was generated with.
	// May be empty for context-less queries, which are distinct cache
	// entries from queries answered with context.
	Context string

	// Response is the stored model response, returned verbatim on a hit.
	Response string

	// ModelID is the model that generated the response.
	ModelID string

	// TokensSaved is the estimated model-input tokens avoided per hit.
	TokensSaved int

	// CreatedAt is when the entry was first cached.
	CreatedAt time.Time

	// LastAccessed is refreshed on every hit.
	LastAccessed time.Time

	// AccessCount counts hits, starting at 1 on insert.
	AccessCount int
}

// CachedChunk is a content-addressed context fragment cached independently
// of any specific query. Repeated caching of identical content increments
// ReuseCount; the content itself is stored once.
type CachedChunk struct {
	// Content is the fragment text. Its SHA-256 hash is the identity.
	Content string

	// Metadata holds arbitrary information about the fragment,
	// such as its source document and retrieval score.
	Metadata map[string]any

	// ReuseCount counts how many times identical content was cached.
	ReuseCount int
}

// CacheStats summarises the prompt cache for diagnostics.
type CacheStats struct {
	CachedPrompts    int
	TotalTokensSaved int
	TotalHits        int
	ContextChunks    int
	ChunkReuses      int
}
