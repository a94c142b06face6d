package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/regqa/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "regqa",
	Short: "Question answering over tax and transfer pricing PDFs",
	Long: `regqa ingests a directory of regulatory PDF documents into a local
vector store and answers natural language questions about them, citing
the document and page each answer was drawn from. It can run as an HTTP
service, an MCP server for AI agents, or from the command line.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
