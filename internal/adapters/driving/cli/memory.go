package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var memoryLimit int

var memoryCmd = &cobra.Command{
	Use:   "memory [tag...]",
	Short: "List context memory entries by tag",
	Long: `Lists stored question/answer exchanges whose tags match the given
categories (implementation, explanation, troubleshooting, design).
Entries matching several tags are listed once per tag.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMemory,
}

func init() {
	memoryCmd.Flags().IntVar(&memoryLimit, "limit", 10, "maximum entries per tag")
	rootCmd.AddCommand(memoryCmd)
}

func runMemory(cmd *cobra.Command, args []string) error {
	if err := setupServices(false); err != nil {
		return err
	}

	entries, err := memoryStore.GetByTags(cmd.Context(), args, memoryLimit)
	if err != nil {
		return fmt.Errorf("reading memory: %w", err)
	}
	if len(entries) == 0 {
		cmd.Printf("No memory entries tagged %s\n", strings.Join(args, ", "))
		return nil
	}

	for _, entry := range entries {
		cmd.Printf("#%d [%s] confidence %.2f, accessed %dx\n",
			entry.ID, strings.Join(entry.Tags, ", "), entry.ConfidenceScore, entry.AccessCount)
		cmd.Printf("  Q: %s\n", truncate(entry.Query, 70))
		cmd.Printf("  A: %s\n", truncate(entry.Response, 70))
	}
	return nil
}
