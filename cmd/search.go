package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/brandchat/internal/corpus"
	"github.com/ziadkadry99/brandchat/internal/retrieval"
)

var (
	searchLimit  int
	searchSource string
	searchJSON   bool
)

type searchHit struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Rank knowledge documents against a query",
	Long:  `Scores every knowledge document by embedding similarity to the query without generating an answer.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		var kind corpus.SourceKind
		if searchSource != "" {
			k, err := corpus.ParseSourceKind(searchSource)
			if err != nil {
				return err
			}
			kind = k
		}

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
		ranked, err := a.orchestrator.Rank(ctx, query)
		if err != nil {
			return fmt.Errorf("ranking: %w", err)
		}

		hits := filterRanked(ranked, kind, searchLimit)
		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(hits)
		}

		if len(hits) == 0 {
			fmt.Println("No matching documents.")
			return nil
		}
		for i, h := range hits {
			fmt.Printf("%2d. %.4f  %-40s [%s]\n", i+1, h.Score, truncate(h.Title, 40), h.Source)
		}
		return nil
	},
}

// filterRanked keeps documents of kind (all when empty), up to limit (all
// when limit <= 0), preserving rank order.
func filterRanked(ranked []retrieval.ScoredDocument, kind corpus.SourceKind, limit int) []searchHit {
	hits := []searchHit{}
	for _, sd := range ranked {
		if kind != "" && sd.Document.Source != kind {
			continue
		}
		hits = append(hits, searchHit{
			ID:     sd.Document.ID,
			Title:  sd.Document.Title(),
			Source: string(sd.Document.Source),
			Score:  sd.Score,
		})
		if limit > 0 && len(hits) == limit {
			break
		}
	}
	return hits
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of documents to show (0 for all)")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "only show documents of this source kind")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}
