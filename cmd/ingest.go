package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/regqa/internal/knowledge"
	"github.com/ziadkadry99/regqa/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the documents directory into the vector store",
	Long: `Scans the documents directory, extracts and chunks new or changed PDFs,
embeds them and stores the result. Unchanged documents are skipped and
deleted documents are removed from the index. Use --force to reprocess
everything.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("force", false, "re-ingest every document")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, progress.Func(progress.NewReporter()))
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.service.Initialize(ctx, force)
	if report != nil {
		fmt.Println(report.String())
	}

	var ingestErr *knowledge.IngestError
	if errors.As(err, &ingestErr) {
		fmt.Fprintln(os.Stderr, "\nFailed documents:")
		for _, name := range ingestErr.Names() {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", name, ingestErr.Failed[name])
		}
	}
	return err
}
