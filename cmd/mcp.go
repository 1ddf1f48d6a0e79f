package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/brandchat/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing ask_brand, search_knowledge and get_document tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer logger.Sync()

		a, err := buildApp(cfg, logger, true)
		if err != nil {
			return err
		}

		database, store, err := openQueryLog(cfg)
		if err != nil {
			return err
		}
		var queries mcpserver.QueryLogger
		if database != nil {
			defer database.Close()
			queries = store
		}

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "brandchat MCP server started on stdio (documents=%d)\n", a.orchestrator.Corpus().Len())

		return mcpserver.NewServer(a.orchestrator, queries, logger).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
