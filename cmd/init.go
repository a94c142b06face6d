package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/regqa/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize regqa configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure providers, the documents directory and chunking, and writes regqa.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
