package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/regqa/internal/logging"
	mcpserver "github.com/ziadkadry99/regqa/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing ask, search and list tools over the ingested documents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		logger := logging.Component("mcp")
		// Stdout carries the protocol, so ingestion must not print anything.
		if err := ensureReady(ctx, a); err != nil {
			logger.Warn().Err(err).Msg("knowledge base not ready; tools will report it")
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		logger.Info().Strs("documents", documentNames(ctx, a)).Msg("regqa MCP server started on stdio")
		return mcpserver.NewServer(a.service).Serve()
	},
}

func documentNames(ctx context.Context, a *app) []string {
	docs, _ := a.service.ListDocuments(ctx)
	return docs
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
