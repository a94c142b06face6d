package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/regqa/internal/catalog"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List ingested documents and the last ingestion run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := catalog.NewStore(a.db).List(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents ingested. Run `regqa ingest` first.")
			return nil
		}

		for _, d := range docs {
			switch d.Status {
			case catalog.StatusFailed:
				fmt.Printf("  %-40s FAILED  %s\n", d.Name, d.LastError)
			default:
				fmt.Printf("  %-40s %4d chunks  ingested %s\n", d.Name, d.ChunkCount, d.IngestedAt.Local().Format(time.DateTime))
			}
		}

		run, err := catalog.NewStore(a.db).LastRun(ctx)
		if err == nil {
			fmt.Printf("\nLast run %s: processed %d, skipped %d, removed %d, failed %d\n",
				run.StartedAt.Local().Format(time.DateTime), run.Processed, run.Skipped, run.Removed, run.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(documentsCmd)
}
