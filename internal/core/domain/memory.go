package domain

import "time"

// MemoryEntry is one answered question/answer exchange in the long-term
// context memory. Entries are unique by (query hash, context hash);
// a repeat store bumps AccessCount instead of duplicating.
type MemoryEntry struct {
	// ID is the store-assigned row identifier.
	ID int64

	// Query is the original question text.
	Query string

	// Context is the assembled context used to answer.
	Context string

	// Response is the model response.
	Response string

	// Metadata holds arbitrary key-value pairs recorded at store time.
	Metadata map[string]any

	// Tags are keyword-derived category labels for topical lookup.
	Tags []string

	// ConfidenceScore is a heuristic confidence in [0, 1].
	ConfidenceScore float64

	// ModelID is the model that produced the response.
	ModelID string

	// CreatedAt is when the entry was first stored.
	CreatedAt time.Time

	// LastAccessed is refreshed on repeat stores.
	LastAccessed time.Time

	// AccessCount counts stores of the same key, starting at 1.
	AccessCount int
}

// Thread groups memory entries into a named conversation.
// Entry IDs are appended idempotently; an ID already present is not re-added.
type Thread struct {
	// ThreadID is the unique external identifier.
	ThreadID string

	// Title is a human-readable label.
	Title string

	// ContextIDs are the member memory entry IDs, in append order.
	ContextIDs []int64

	// CreatedAt is when the thread was created.
	CreatedAt time.Time

	// LastUpdated is refreshed when an entry is appended.
	LastUpdated time.Time
}

// MemoryStats summarises the context memory store for diagnostics.
type MemoryStats struct {
	TotalEntries      int
	AverageConfidence float64
	TotalAccesses     int
	Threads           int
	RecentEntries24h  int
}
