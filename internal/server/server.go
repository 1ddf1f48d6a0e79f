package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ziadkadry99/brandchat/internal/audit"
	"github.com/ziadkadry99/brandchat/internal/chat"
	"github.com/ziadkadry99/brandchat/internal/embeddings"
	"github.com/ziadkadry99/brandchat/internal/retrieval"
)

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	AllowAll       bool // allow all CORS origins (dev mode)
	RequestTimeout time.Duration
}

// Deps are the components the server routes to. Queries may be nil when the
// query log is disabled.
type Deps struct {
	Chat         *chat.Handler
	Queries      *audit.Store
	Cache        *embeddings.Cache
	Orchestrator *retrieval.Orchestrator
}

// Server is the brandchat HTTP API.
type Server struct {
	cfg        Config
	deps       Deps
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server and builds its router.
func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.Named("server"),
	}

	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	origins := s.allowedOrigins()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		if s.deps.Chat != nil {
			s.deps.Chat.RegisterRoutes(r)
		}
		if s.deps.Queries != nil {
			audit.RegisterRoutes(r, s.deps.Queries)
		}
		r.Get("/api/stats", s.handleStats)
	})

	if s.deps.Chat != nil {
		s.deps.Chat.AllowOrigins(origins...)
		s.deps.Chat.RegisterWebSocket(r)
	}

	return r
}

// allowedOrigins is the origin list shared by CORS and the websocket
// handshake: local development hosts plus the configured origins, or "*".
func (s *Server) allowedOrigins() []string {
	if s.cfg.AllowAll {
		return []string{"*"}
	}
	return append([]string{"http://localhost:*", "http://127.0.0.1:*"}, s.cfg.AllowedOrigins...)
}

// Stats is the body of GET /api/stats.
type Stats struct {
	Cache     *embeddings.CacheStats `json:"cache,omitempty"`
	Retrieval *retrieval.Stats       `json:"retrieval,omitempty"`
	Queries   *audit.Summary         `json:"queries,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var out Stats
	if s.deps.Cache != nil {
		cs := s.deps.Cache.Stats()
		out.Cache = &cs
	}
	if s.deps.Orchestrator != nil {
		rs := s.deps.Orchestrator.Stats()
		out.Retrieval = &rs
	}
	if s.deps.Queries != nil {
		sum, err := s.deps.Queries.Summarize(r.Context())
		if err != nil {
			s.logger.Warn("summarizing query log", zap.Error(err))
		} else {
			out.Queries = &sum
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("brandchat listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
