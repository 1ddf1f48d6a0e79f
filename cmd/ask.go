package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/brandchat/internal/audit"
	"github.com/ziadkadry99/brandchat/internal/chat"
	"github.com/ziadkadry99/brandchat/internal/retrieval"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the command line",
	Long:  `Runs one question through retrieval and generation, printing the answer and the documents it was grounded in.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return chat.ErrMessageRequired
		}

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
		if database != nil {
			defer database.Close()
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		start := time.Now()
		result, err := a.orchestrator.AnswerQuery(ctx, question)
		if store != nil {
			entry := audit.Entry{
				Channel:   audit.ChannelCLI,
				Query:     question,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				entry.Status = audit.StatusFailed
				entry.Error = err.Error()
			} else {
				entry.Status = audit.StatusAnswered
				entry.Fallback = result.Fallback
				entry.Model = result.Model
				entry.InputTokens = result.InputTokens
				entry.OutputTokens = result.OutputTokens
				for _, d := range result.Sources {
					entry.SourceIDs = append(entry.SourceIDs, d.ID)
				}
			}
			if logErr := store.Log(ctx, entry); logErr != nil {
				logger.Warn("recording query failed", zap.Error(logErr))
			}
		}
		if err != nil {
			return err
		}

		if askJSON {
			return printAnswerJSON(result)
		}

		fmt.Println(result.Response)
		fmt.Println()
		if result.Fallback {
			fmt.Println("Sources (retrieval unavailable, using default documents):")
		} else {
			fmt.Println("Sources:")
		}
		for i, d := range result.Sources {
			fmt.Printf("  %d. %s [%s]", i+1, d.Title(), d.Source)
			if d.Metadata.ExternalURL != "" {
				fmt.Printf(" %s", d.Metadata.ExternalURL)
			}
			fmt.Println()
		}
		fmt.Fprintf(os.Stderr, "\n%s: %d input / %d output tokens\n", result.Model, result.InputTokens, result.OutputTokens)
		return nil
	},
}

// printAnswerJSON prints result in the same shape POST /chat returns.
func printAnswerJSON(result *retrieval.Result) error {
	resp := chat.Response{Response: result.Response, Sources: chat.ToSources(result.Sources)}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}
