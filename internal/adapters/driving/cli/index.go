package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexEmbedModel string

var indexCmd = &cobra.Command{
	Use:   "index [folder]",
	Short: "Build or refresh the vector index for a document folder",
	Long: `Reads the .txt and .md files in the folder, chunks and embeds them,
and persists the result. When neither the files nor the embedding model
changed since the last run, the existing index is reused without any
embedding calls.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexEmbedModel, "embed-model", "", "embedding model id")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := setupServices(true); err != nil {
		return err
	}

	embedModel := modelOrDefault(indexEmbedModel, "models.embed", defaultEmbedModel)

	stats, err := answerService.InitializeKnowledgeBase(cmd.Context(), args[0], embedModel)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if stats.CacheHit {
		cmd.Printf("Index up to date: %d chunks from %d documents (%s)\n",
			stats.NumChunks, stats.NumDocuments, stats.ModelID)
		return nil
	}
	cmd.Printf("Indexed %d chunks from %d documents (%s)\n",
		stats.NumChunks, stats.NumDocuments, stats.ModelID)
	return nil
}
