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
	"go.uber.org/zap"

	"github.com/ziadkadry99/brandchat/internal/audit"
	"github.com/ziadkadry99/brandchat/internal/chat"
	"github.com/ziadkadry99/brandchat/internal/server"
)

var (
	servePort int
	serveWarm bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat HTTP server",
	Long: `Starts the HTTP API: POST /chat for the website widget, a websocket
endpoint at /chat/ws, the query log under /api/queries and runtime counters
at /api/stats.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Port = servePort
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if store != nil && cfg.QueryLog.RetentionDays > 0 {
			pruneQueryLog(ctx, store, cfg.QueryLog.RetentionDays, logger)
		}

		if serveWarm {
			logger.Info("warming embedding cache", zap.Int("documents", a.orchestrator.Corpus().Len()))
			if err := a.orchestrator.Warm(ctx, nil); err != nil {
				// Requests still work; retrieval falls back until embeddings succeed.
				logger.Warn("cache warm-up failed", zap.Error(err))
			}
		}

		var queries chat.QueryLogger
		if store != nil {
			queries = store
		}
		srv := server.New(server.Config{
			Port:           cfg.Port,
			AllowedOrigins: cfg.AllowedOrigins,
			AllowAll:       cfg.AllowAllOrigins,
			RequestTimeout: cfg.RequestTimeout,
		}, server.Deps{
			Chat:         chat.NewHandler(a.orchestrator, queries, logger),
			Queries:      store,
			Cache:        a.cache,
			Orchestrator: a.orchestrator,
		}, logger)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		fmt.Fprintf(os.Stderr, "brandchat serving on :%d (provider=%s, model=%s, embeddings=%s)\n",
			cfg.Port, cfg.Provider, cfg.Model, a.cache.Model())

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// pruneQueryLog removes query log entries older than the retention window.
func pruneQueryLog(ctx context.Context, store *audit.Store, days int, logger *zap.Logger) {
	cutoff := time.Now().AddDate(0, 0, -days)
	n, err := store.DeleteBefore(ctx, cutoff)
	if err != nil {
		logger.Warn("pruning query log failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("pruned query log", zap.Int64("deleted", n), zap.Int("retention_days", days))
	}
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveWarm, "warm", false, "embed the whole corpus before accepting requests")
	rootCmd.AddCommand(serveCmd)
}
