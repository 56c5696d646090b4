package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sakhedingi/recall/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New()
		if c.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, c.chunkSize)
		}
		if c.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, c.overlap)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		c := New(WithChunkSize(500), WithOverlap(100))
		if c.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", c.chunkSize)
		}
		if c.overlap != 100 {
			t.Errorf("expected overlap 100, got %d", c.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		c := New(WithChunkSize(100), WithOverlap(150))
		if c.overlap >= c.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		c := New(WithChunkSize(0), WithOverlap(-1))
		if c.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", c.chunkSize)
		}
		if c.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", c.overlap)
		}
	})
}

func TestChunker_Split_EmptyContent(t *testing.T) {
	c := New()
	chunks := c.Split(domain.RawDocument{Filename: "empty.txt"})
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestChunker_Split_SmallContent(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(20))
	chunks := c.Split(domain.RawDocument{Filename: "small.txt", Content: "short text"})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "short text" {
		t.Errorf("expected full content in single chunk, got %q", chunks[0].Content)
	}
	if chunks[0].Name != "small.txt__chunk_0" {
		t.Errorf("unexpected chunk name %q", chunks[0].Name)
	}
	if chunks[0].Source != "small.txt" {
		t.Errorf("unexpected chunk source %q", chunks[0].Source)
	}
}

func TestChunker_Split_Overlap(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(20))
	content := strings.Repeat("a", 250)
	chunks := c.Split(domain.RawDocument{Filename: "big.txt", Content: content})

	// Windows: [0,100) [80,180) [160,250)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Position != i {
			t.Errorf("chunk %d has position %d", i, ch.Position)
		}
		if ch.ID == "" {
			t.Errorf("chunk %d has empty ID", i)
		}
	}
	if len(chunks[0].Content) != 100 {
		t.Errorf("expected first chunk of 100 chars, got %d", len(chunks[0].Content))
	}
	if len(chunks[2].Content) != 90 {
		t.Errorf("expected last chunk of 90 chars, got %d", len(chunks[2].Content))
	}
}

func TestChunker_Split_MultibyteContent(t *testing.T) {
	c := New()
	// 400 three-byte runes: 1200 bytes, but only 400 characters, so the
	// default 1000-character window must keep everything in one chunk.
	content := strings.Repeat("世", 400)
	chunks := c.Split(domain.RawDocument{Filename: "cjk.txt", Content: content})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for 400 runes, got %d", len(chunks))
	}
	if chunks[0].Content != content {
		t.Error("expected full content in single chunk")
	}
}

func TestChunker_Split_MultibyteBoundaries(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(20))
	content := strings.Repeat("世", 250)
	chunks := c.Split(domain.RawDocument{Filename: "cjk.txt", Content: content})

	// Windows: [0,100) [80,180) [160,250) in runes
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Content) {
			t.Errorf("chunk %d contains invalid UTF-8", i)
		}
	}
	if got := len([]rune(chunks[0].Content)); got != 100 {
		t.Errorf("expected first chunk of 100 runes, got %d", got)
	}
	if got := len([]rune(chunks[2].Content)); got != 90 {
		t.Errorf("expected last chunk of 90 runes, got %d", got)
	}
}

func TestChunker_Split_ForwardProgress(t *testing.T) {
	// Pathological overlap must still terminate.
	c := New(WithChunkSize(10), WithOverlap(9))
	content := strings.Repeat("x", 1000)
	chunks := c.Split(domain.RawDocument{Filename: "x.txt", Content: content})
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(content, last.Content) {
		t.Error("last chunk should end at document end")
	}
}
