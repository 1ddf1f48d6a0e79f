package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/brandchat/internal/audit"
)

var (
	queriesLimit     int
	queriesStatus    string
	queriesPruneDays int
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Show recent chat queries from the query log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, store, err := openQueryLog(cfg)
		if err != nil {
			return err
		}
		if database == nil {
			return fmt.Errorf("query log is disabled (query_log.enabled=false)")
		}
		defer database.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if queriesPruneDays > 0 {
			n, err := store.DeleteBefore(ctx, time.Now().AddDate(0, 0, -queriesPruneDays))
			if err != nil {
				return fmt.Errorf("pruning: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Deleted %d entries older than %d days\n", n, queriesPruneDays)
		}

		filter := audit.QueryFilter{Limit: queriesLimit}
		switch queriesStatus {
		case "":
		case string(audit.StatusAnswered), string(audit.StatusFailed):
			filter.Status = audit.Status(queriesStatus)
		default:
			return fmt.Errorf("unknown status %q (want answered or failed)", queriesStatus)
		}

		entries, err := store.Query(ctx, filter)
		if err != nil {
			return err
		}
		sum, err := store.Summarize(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tCHANNEL\tSTATUS\tLATENCY\tQUERY")
		for _, e := range entries {
			status := string(e.Status)
			if e.Fallback {
				status += "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04"), e.Channel, status, e.LatencyMS, truncate(e.Query, 60))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\n%d total, %d answered, %d failed, %d retrieval fallbacks (*)\n",
			sum.Total, sum.Answered, sum.Failed, sum.Fallbacks)
		return nil
	},
}

func init() {
	queriesCmd.Flags().IntVarP(&queriesLimit, "limit", "n", 20, "number of entries to show")
	queriesCmd.Flags().StringVar(&queriesStatus, "status", "", "only show answered or failed queries")
	queriesCmd.Flags().IntVar(&queriesPruneDays, "prune-days", 0, "first delete entries older than this many days")
	rootCmd.AddCommand(queriesCmd)
}
