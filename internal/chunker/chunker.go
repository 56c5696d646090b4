// Package chunker provides fixed-size overlapping text chunking.
package chunker

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakhedingi/recall/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Chunker splits document content into fixed-size overlapping windows.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must stay strictly below chunk size to guarantee forward progress
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split cuts a raw document into chunks without embeddings.
// An empty document produces no chunks. Chunk names follow the
// "<filename>__chunk_<n>" convention used in context annotations.
func (c *Chunker) Split(doc domain.RawDocument) []domain.Chunk {
	if doc.Content == "" {
		return nil
	}

	// Windows are measured in runes, not bytes, so multibyte text is
	// never cut mid-character.
	content := []rune(doc.Content)
	contentLen := len(content)

	estimated := (contentLen / (c.chunkSize - c.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	now := time.Now().UTC()
	start := 0
	position := 0

	for start < contentLen {
		end := start + c.chunkSize
		if end > contentLen {
			end = contentLen
		}

		chunks = append(chunks, domain.Chunk{
			ID:        uuid.New().String(),
			Name:      fmt.Sprintf("%s__chunk_%d", doc.Filename, position),
			Source:    doc.Filename,
			Content:   string(content[start:end]),
			Position:  position,
			CreatedAt: now,
		})
		position++

		if end == contentLen {
			break
		}
		start = end - c.overlap
	}

	return chunks
}
