package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sakhedingi/recall/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// defaultPrompts are the built-in templates, also written to disk as the
// starting content of user-editable prompt files.
var defaultPrompts = map[string]string{
	driven.PromptAnswerSystem: `You are a knowledgeable assistant answering questions about a document collection.

When context is provided, ground your answer in it and prefer it over
general knowledge. If the context does not cover the question, say so
rather than guessing. Be concise and direct.`,
}

// PromptStore serves prompt templates from user-editable files under a
// prompt directory, falling back to the built-in defaults. No I/O
// happens until the first Load: the directory and default files are
// materialised lazily so read-only commands never touch the home dir.
type PromptStore struct {
	dir string

	setup    sync.Once
	setupErr error

	mu     sync.RWMutex
	loaded map[string]string
}

// NewPromptStore returns a store rooted at promptDir, or ~/.recall/prompts
// when promptDir is empty.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".recall", "prompts")
	}
	return &PromptStore{
		dir:    promptDir,
		loaded: map[string]string{},
	}, nil
}

// Load returns the template for name, preferring the on-disk file over
// the built-in default. Results are cached until Reload.
func (s *PromptStore) Load(name string) (string, error) {
	s.setup.Do(s.materialiseDefaults)
	if s.setupErr != nil {
		// The directory could not be prepared; built-ins still work.
		if text, ok := defaultPrompts[name]; ok {
			return text, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.setupErr)
	}

	s.mu.RLock()
	text, ok := s.loaded[name]
	s.mu.RUnlock()
	if ok {
		return text, nil
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		if text, ok := defaultPrompts[name]; ok {
			return text, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	text = strings.TrimSpace(string(raw))

	s.mu.Lock()
	// A concurrent Load may have filled the entry; keep whichever won.
	if cached, ok := s.loaded[name]; ok {
		text = cached
	} else {
		s.loaded[name] = text
	}
	s.mu.Unlock()

	return text, nil
}

// Reload drops cached templates so the next Load rereads the files.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = map[string]string{}
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.dir
}

// materialiseDefaults creates the prompt directory and writes the
// default template files that do not exist yet. Existing user edits are
// left untouched.
func (s *PromptStore) materialiseDefaults() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.setupErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	for name, content := range defaultPrompts {
		path := filepath.Join(s.dir, name+".txt")
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.setupErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}
}
