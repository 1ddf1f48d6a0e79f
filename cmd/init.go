package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/brandchat/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize brandchat configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose generation and embedding providers and writes a .brandchat.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
