package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/brandchat/internal/progress"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Embed every knowledge document to check the embedding provider",
	Long: `Embeds the whole corpus through the configured embedding provider and
reports cache statistics. Useful to verify credentials and model dimensions
before deploying.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer logger.Sync()

		a, err := buildApp(cfg, logger, false)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		reporter := progress.NewReporter(os.Stderr)
		reporter.Start(a.orchestrator.Corpus().Len(), "Embedding corpus")
		err = a.orchestrator.Warm(ctx, func(done int, id string) {
			reporter.Update(done, id)
		})
		reporter.Finish()
		if err != nil {
			return fmt.Errorf("warming cache: %w", err)
		}

		stats := a.cache.Stats()
		fmt.Fprintf(os.Stderr, "Embedded %d documents with %s (%d cached, %d calls)\n",
			a.orchestrator.Corpus().Len(), a.cache.Model(), stats.Entries, stats.Misses)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(warmCmd)
}
