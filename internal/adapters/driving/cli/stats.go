package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// statsTopChunks caps the reused-fragment listing.
const statsTopChunks = 3

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show optimization statistics across all stores",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := setupServices(false); err != nil {
		return err
	}

	stats, err := answerService.OptimizationStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	cmd.Println("Vector index:")
	cmd.Printf("  chunks:            %d\n", stats.VectorStore.NumChunks)
	cmd.Printf("  documents:         %d\n", stats.VectorStore.NumDocuments)
	if stats.VectorStore.ModelID != "" {
		cmd.Printf("  embedding model:   %s\n", stats.VectorStore.ModelID)
	}

	cmd.Println("Prompt cache:")
	cmd.Printf("  cached responses:  %d\n", stats.PromptCache.CachedPrompts)
	cmd.Printf("  total hits:        %d\n", stats.PromptCache.TotalHits)
	cmd.Printf("  tokens saved:      %d\n", stats.PromptCache.TotalTokensSaved)
	cmd.Printf("  context chunks:    %d\n", stats.PromptCache.ContextChunks)

	cmd.Println("Context memory:")
	cmd.Printf("  entries:           %d\n", stats.MemoryStore.TotalEntries)
	cmd.Printf("  avg confidence:    %.2f\n", stats.MemoryStore.AverageConfidence)
	cmd.Printf("  total accesses:    %d\n", stats.MemoryStore.TotalAccesses)
	cmd.Printf("  threads:           %d\n", stats.MemoryStore.Threads)
	cmd.Printf("  entries (24h):     %d\n", stats.MemoryStore.RecentEntries24h)

	top, err := promptCache.TopChunks(cmd.Context(), statsTopChunks)
	if err != nil {
		return fmt.Errorf("reading top chunks: %w", err)
	}
	if len(top) > 0 {
		cmd.Println("Most reused context fragments:")
		for _, chunk := range top {
			cmd.Printf("  %3dx  %s\n", chunk.ReuseCount, truncate(chunk.Content, 60))
		}
	}

	return nil
}

// truncate shortens s to at most n runes for single-line display.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
