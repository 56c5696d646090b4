package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	clearCacheOlderThan time.Duration
	clearMemoryDays     int
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the vector index, response cache, and context memory",
	Long: `Without flags, clears everything: the vector index, the response cache,
and the context memory. All of it is rebuildable - the next index run
re-embeds the corpus and the next questions repopulate the caches.

With --cache-older-than or --memory-older-than, only the matching aged
entries are removed and the rest is kept. Memory entries accessed five
or more times survive age-based cleanup.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().DurationVar(&clearCacheOlderThan, "cache-older-than", 0,
		"only remove cached responses older than this (e.g. 168h)")
	clearCmd.Flags().IntVar(&clearMemoryDays, "memory-older-than", 0,
		"only remove low-use memory entries older than this many days")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if err := setupServices(false); err != nil {
		return err
	}

	// Selective age-based cleanup.
	if clearCacheOlderThan > 0 || clearMemoryDays > 0 {
		if clearCacheOlderThan > 0 {
			if err := promptCacheClear(cmd, clearCacheOlderThan); err != nil {
				return err
			}
		}
		if clearMemoryDays > 0 {
			deleted, err := memoryStore.Cleanup(cmd.Context(), clearMemoryDays)
			if err != nil {
				return fmt.Errorf("memory cleanup failed: %w", err)
			}
			cmd.Printf("Removed %d memory entries older than %d days\n", deleted, clearMemoryDays)
		}
		return nil
	}

	if err := answerService.ClearAllCaches(cmd.Context()); err != nil {
		return fmt.Errorf("clearing failed: %w", err)
	}
	cmd.Println("All caches cleared")
	return nil
}

func promptCacheClear(cmd *cobra.Command, olderThan time.Duration) error {
	if err := promptCache.Clear(cmd.Context(), olderThan); err != nil {
		return fmt.Errorf("cache cleanup failed: %w", err)
	}
	cmd.Printf("Removed cached responses older than %s\n", olderThan)
	return nil
}
