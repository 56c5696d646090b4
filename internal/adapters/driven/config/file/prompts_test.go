package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakhedingi/recall/internal/core/ports/driven"
)

func TestPromptStore_LoadCreatesDefaultFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)

	// First load materialises the editable default on disk.
	assert.FileExists(t, filepath.Join(dir, driven.PromptAnswerSystem+".txt"))
}

func TestPromptStore_LoadPrefersUserFile(t *testing.T) {
	dir := t.TempDir()
	custom := "Answer only in haiku."
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, driven.PromptAnswerSystem+".txt"), []byte(custom+"\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_LoadUnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("no_such_prompt")
	assert.Error(t, err)
}

func TestPromptStore_ReloadPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Prime the cache with the default.
	first, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)

	edited := "Edited after first load."
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, driven.PromptAnswerSystem+".txt"), []byte(edited), 0600))

	// Cached value survives until Reload.
	cached, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, edited, fresh)
}
