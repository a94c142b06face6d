package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/regqa/internal/knowledge"
	"github.com/ziadkadry99/regqa/internal/logging"
	"github.com/ziadkadry99/regqa/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP question answering server",
	Long: `Starts the regqa HTTP server with the REST API and the WebSocket chat
endpoint. Ingestion of the documents directory starts in the background;
questions are rejected with 409 until it has completed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		srv := server.New(server.Config{
			Port:     port,
			AllowAll: a.cfg.Server.AllowAll,
		}, a.service)

		logger := logging.Component("serve")

		// The catalog is closed on return, so stop ingestion and wait for it.
		waitIngest := startIngestion(ctx, a.service)
		defer func() {
			stop()
			waitIngest()
		}()

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("shutdown")
			}
		}()

		logger.Info().Str("version", Version).Str("documents", a.cfg.DocumentsDir).
			Str("data", a.cfg.DataDir).Msg("regqa server starting")

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// initializer is the part of the knowledge base startup ingestion needs.
type initializer interface {
	Initialize(ctx context.Context, force bool) (*knowledge.IngestReport, error)
}

// startIngestion runs Initialize(false) in the background and returns a
// func that blocks until it has finished.
func startIngestion(ctx context.Context, kb initializer) (wait func()) {
	logger := logging.Component("serve")
	done := make(chan struct{})
	go func() {
		defer close(done)
		report, err := kb.Initialize(ctx, false)
		if err != nil {
			logger.Error().Err(err).Msg("startup ingestion failed; POST /initialize to retry")
			return
		}
		logger.Info().Msg(report.String())
	}()
	return func() { <-done }
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 5000, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
