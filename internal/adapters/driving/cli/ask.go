package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakhedingi/recall/internal/core/domain"
)

var (
	askModel      string
	askEmbedModel string
	askStream     bool
	askNoCache    bool
	askNoMemory   bool
	askNoRetrieve bool
	askTemp       float64
	askTopP       float64
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question using the indexed corpus",
	Long: `Answers a question with the full optimization pipeline: the exact-match
response cache is consulted first, then the context memory, and only on
a miss is the model invoked with retrieved document context.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askModel, "model", "", "chat model id")
	askCmd.Flags().StringVar(&askEmbedModel, "embed-model", "", "embedding model id")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer token by token")
	askCmd.Flags().BoolVar(&askNoCache, "no-cache", false, "bypass the response cache")
	askCmd.Flags().BoolVar(&askNoMemory, "no-memory", false, "skip the memory write-back")
	askCmd.Flags().BoolVar(&askNoRetrieve, "no-past-contexts", false, "skip memory lookup")
	askCmd.Flags().Float64Var(&askTemp, "temperature", 0.7, "sampling temperature [0-2]")
	askCmd.Flags().Float64Var(&askTopP, "top-p", 0.9, "nucleus sampling parameter [0-1]")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := setupServices(true); err != nil {
		return err
	}

	req := domain.AnswerRequest{
		Question:             args[0],
		ModelID:              modelOrDefault(askModel, "models.chat", defaultChatModel),
		EmbedModelID:         modelOrDefault(askEmbedModel, "models.embed", defaultEmbedModel),
		Temperature:          askTemp,
		TopP:                 askTopP,
		UseCache:             !askNoCache,
		StoreMemory:          !askNoMemory,
		RetrievePastContexts: !askNoRetrieve,
	}

	if askStream {
		return runAskStream(cmd, req)
	}

	result, err := answerService.Answer(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	cmd.Println(result.Response)
	printAnswerStats(cmd, result.Stats)
	return nil
}

func runAskStream(cmd *cobra.Command, req domain.AnswerRequest) error {
	stats, err := answerService.AnswerStream(cmd.Context(), req,
		func(token string, _ domain.AnswerStats) error {
			cmd.Print(token)
			return nil
		})
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	cmd.Println()
	printAnswerStats(cmd, stats)
	return nil
}

func printAnswerStats(cmd *cobra.Command, stats domain.AnswerStats) {
	if !verbose {
		return
	}
	cmd.Println()
	cmd.Printf("cache hit:          %t\n", stats.CacheHit)
	cmd.Printf("memory reused:      %t\n", stats.MemoryReused)
	cmd.Printf("chunks retrieved:   %d\n", stats.ContextsRetrieved)
	cmd.Printf("tokens saved:       %d\n", stats.TokensSaved)
	if len(stats.Sources) > 0 {
		cmd.Printf("sources:            %s\n", strings.Join(stats.Sources, ", "))
	}
}
