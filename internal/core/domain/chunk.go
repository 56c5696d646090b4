package domain

import "time"

// Chunk is a bounded contiguous slice of a source document's text,
// embedded independently for retrieval. Chunks are created during corpus
// (re)indexing and are immutable once created.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Name identifies the chunk for context annotation,
	// e.g. "refunds.txt__chunk_0".
	Name string

	// Source is the filename of the document this chunk was cut from.
	Source string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation for similarity search.
	Embedding []float32

	// CreatedAt is when the chunk was embedded.
	CreatedAt time.Time
}

// ScoredChunk is a chunk paired with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Fingerprint captures the state of an index so a later Build call can
// decide whether the cached chunk set is still valid. The cached set is
// valid if and only if the model ID matches and the per-file hash map is
// identical to a freshly computed one.
type Fingerprint struct {
	// ModelID is the embedding model the chunks were embedded with.
	ModelID string

	// Files maps source filename to the SHA-256 hash of its content.
	Files map[string]string
}

// Matches reports whether other describes the same corpus state.
func (f Fingerprint) Matches(other Fingerprint) bool {
	if f.ModelID != other.ModelID {
		return false
	}
	if len(f.Files) != len(other.Files) {
		return false
	}
	for name, hash := range f.Files {
		if other.Files[name] != hash {
			return false
		}
	}
	return true
}

// RawDocument is a document as produced by the loader, before chunking.
type RawDocument struct {
	// Filename is the base name of the source file.
	Filename string

	// Content is the full extracted text.
	Content string
}

// IndexStats describes the state of the vector store after a Build call.
type IndexStats struct {
	// NumChunks is the number of chunks currently indexed.
	NumChunks int

	// NumDocuments is the number of source files fingerprinted.
	NumDocuments int

	// ModelID is the embedding model of the current index.
	ModelID string

	// CacheHit is true when Build reused the persisted index unchanged.
	CacheHit bool
}
