// Package filesystem loads corpus documents from a local folder.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sakhedingi/recall/internal/core/domain"
	"github.com/sakhedingi/recall/internal/core/ports/driven"
	"github.com/sakhedingi/recall/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.DocumentLoader = (*Loader)(nil)

// supportedExtensions are the file types treated as corpus documents.
// Everything else in the folder is ignored without comment.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Loader reads plain-text documents from a single folder, non-recursively.
// A file that cannot be read is logged and skipped; one bad file never
// fails the whole corpus.
type Loader struct{}

// New creates a folder document loader.
func New() *Loader {
	return &Loader{}
}

// Load returns the readable supported documents in folder, sorted by
// filename so corpus ordering is stable across runs.
func (l *Loader) Load(ctx context.Context, folder string) ([]domain.RawDocument, error) {
	entries, err := l.listSupported(folder)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.RawDocument, 0, len(entries))
	for _, name := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(filepath.Join(folder, name))
		if err != nil {
			logger.Warn("Skipping unreadable document %s: %v", name, err)
			continue
		}
		docs = append(docs, domain.RawDocument{
			Filename: name,
			Content:  string(content),
		})
	}

	return docs, nil
}

// Hashes returns the content hash of every readable supported file in
// folder, keyed by filename. Unreadable files are skipped, so their
// absence from the map registers as a corpus change.
func (l *Loader) Hashes(ctx context.Context, folder string) (map[string]string, error) {
	entries, err := l.listSupported(folder)
	if err != nil {
		return nil, err
	}

	hashes := make(map[string]string, len(entries))
	for _, name := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(filepath.Join(folder, name))
		if err != nil {
			logger.Warn("Skipping unreadable document %s: %v", name, err)
			continue
		}
		hashes[name] = domain.HashText(string(content))
	}

	return hashes, nil
}

func (l *Loader) listSupported(folder string) ([]string, error) {
	dirEntries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: reading corpus folder %s: %v", domain.ErrCorpusRead, folder, err)
	}

	var names []string
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if supportedExtensions[ext] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}
