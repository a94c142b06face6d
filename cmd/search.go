package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/regqa/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantically search the ingested documents",
	Long:  `Returns the passages closest to the query without generating an answer.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default: top_k)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := ensureReady(ctx, a); err != nil {
		return err
	}

	results, err := a.service.Search(ctx, strings.Join(args, " "), limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	fmt.Print(vectordb.FormatResults(results))
	return nil
}
