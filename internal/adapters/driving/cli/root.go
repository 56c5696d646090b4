// Package cli implements the recall command-line interface.
package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakhedingi/recall/internal/adapters/driven/config/file"
	embeddingadapter "github.com/sakhedingi/recall/internal/adapters/driven/embedding/openrouter"
	"github.com/sakhedingi/recall/internal/adapters/driven/loader/filesystem"
	llmadapter "github.com/sakhedingi/recall/internal/adapters/driven/llm/openrouter"
	"github.com/sakhedingi/recall/internal/adapters/driven/storage/sqlite"
	"github.com/sakhedingi/recall/internal/chunker"
	"github.com/sakhedingi/recall/internal/core/ports/driven"
	"github.com/sakhedingi/recall/internal/core/ports/driving"
	"github.com/sakhedingi/recall/internal/core/services"
	"github.com/sakhedingi/recall/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Defaults applied when neither flags nor config specify a model.
const (
	defaultChatModel  = "openai/gpt-4o-mini"
	defaultEmbedModel = "openai/text-embedding-3-small"
)

var (
	verbose bool
	dataDir string

	// Services are wired lazily by commands that need them; tests
	// inject fakes by presetting these before Execute.
	answerService driving.AnswerService
	memoryStore   driven.MemoryStore
	promptCache   driven.PromptCache
	configStore   driven.ConfigStore

	// closers releases store handles after a command finishes.
	closers []func() error
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Cached retrieval-augmented question answering",
	Long: `Recall answers questions about a local document folder with three
layers of optimization: a persistent vector index that is only rebuilt
when the corpus changes, an exact-match response cache, and a long-term
memory of past exchanges.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.recall/data)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// resolveDataDir picks the data directory from the flag, the config
// file, or the default location, in that order.
func resolveDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	if cfg, err := loadConfig(); err == nil {
		if configured := cfg.GetString("data.dir"); configured != "" {
			return configured, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".recall", "data"), nil
}

// loadConfig opens the config store once per invocation.
func loadConfig() (driven.ConfigStore, error) {
	if configStore != nil {
		return configStore, nil
	}
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return nil, err
	}
	configStore = cfg
	return cfg, nil
}

// apiKey resolves the OpenRouter API key from the environment or config.
func apiKey() (string, error) {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		return key, nil
	}
	if cfg, err := loadConfig(); err == nil {
		if key := cfg.GetString("openrouter.api_key"); key != "" {
			return key, nil
		}
	}
	return "", errors.New("no API key: set OPENROUTER_API_KEY or openrouter.api_key in config")
}

// setupServices wires the full service graph. With needProvider false
// the embedding and chat clients are skipped, which keeps store-only
// commands (stats, clear, threads) working without an API key.
func setupServices(needProvider bool) error {
	if answerService != nil {
		return nil
	}

	dir, err := resolveDataDir()
	if err != nil {
		return err
	}

	chunkStore, err := sqlite.NewChunkStore(dir)
	if err != nil {
		return err
	}
	closers = append(closers, chunkStore.Close)

	cache, err := sqlite.NewPromptCache(dir)
	if err != nil {
		return err
	}
	closers = append(closers, cache.Close)
	promptCache = cache

	memory, err := sqlite.NewMemoryStore(dir)
	if err != nil {
		return err
	}
	closers = append(closers, memory.Close)
	memoryStore = memory

	var embedder driven.EmbeddingService
	var model driven.ModelService
	if needProvider {
		key, keyErr := apiKey()
		if keyErr != nil {
			return keyErr
		}
		embedder, err = embeddingadapter.NewEmbeddingService(embeddingadapter.Config{APIKey: key})
		if err != nil {
			return err
		}
		closers = append(closers, embedder.Close)
		model, err = llmadapter.NewModelService(llmadapter.Config{APIKey: key})
		if err != nil {
			return err
		}
		closers = append(closers, model.Close)
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return err
	}

	knowledgeBase := services.NewKnowledgeBaseService(
		filesystem.New(), embedder, chunkStore, newChunkerFromConfig())
	answerService = services.NewOptimizerService(
		knowledgeBase, cache, memory, model, prompts)

	return nil
}

func newChunkerFromConfig() *chunker.Chunker {
	cfg, err := loadConfig()
	if err != nil {
		return chunker.New()
	}
	var opts []chunker.Option
	if size := cfg.GetInt("index.chunk_size"); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if _, ok := cfg.Get("index.chunk_overlap"); ok {
		opts = append(opts, chunker.WithOverlap(cfg.GetInt("index.chunk_overlap")))
	}
	return chunker.New(opts...)
}

func closeServices() error {
	var firstErr error
	for _, close := range closers {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	closers = nil
	return firstErr
}

// modelOrDefault resolves a model flag against config and the built-in default.
func modelOrDefault(flagValue, configKey, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg, err := loadConfig(); err == nil {
		if configured := cfg.GetString(configKey); configured != "" {
			return configured
		}
	}
	return fallback
}
