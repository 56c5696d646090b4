package driven

import (
	"context"

	"github.com/sakhedingi/recall/internal/core/domain"
)

// DocumentLoader reads a corpus folder into raw documents.
// Unsupported extensions are skipped silently; a file that matches a
// supported extension but cannot be read is skipped with a log signal,
// never surfaced as an error for the whole folder.
type DocumentLoader interface {
	// Load returns the readable documents in folder.
	Load(ctx context.Context, folder string) ([]domain.RawDocument, error)

	// Hashes returns the content hash of every supported file in
	// folder, keyed by filename. Used for fingerprint comparison
	// without extracting text.
	Hashes(ctx context.Context, folder string) (map[string]string, error)
}
