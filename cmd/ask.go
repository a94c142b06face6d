package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/regqa/internal/answer"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the ingested documents",
	Long:  `Retrieves the passages closest to the question and asks the configured LLM to answer from them, citing document and page.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Bool("json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.Join(args, " ")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := ensureReady(ctx, a); err != nil {
		return err
	}

	ans, err := a.service.Query(ctx, question)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}

	printAnswer(ans)
	return nil
}

func printAnswer(ans *answer.Answer) {
	fmt.Println(ans.Text)
	if len(ans.Sources) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Sources:")
	for i, src := range ans.Sources {
		fmt.Printf("  [%d] %s, page %d (distance %.4f)\n", i+1, src.Source, src.Page, src.Distance)
		fmt.Printf("      %s\n", src.Content)
	}
	if ans.Cost > 0 {
		fmt.Printf("\nTokens: %d in / %d out (~$%.4f)\n", ans.InputTokens, ans.OutputTokens, ans.Cost)
	}
}
