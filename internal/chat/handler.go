// Package chat is the HTTP and websocket boundary of the chat feature.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/brandchat/internal/audit"
	"github.com/ziadkadry99/brandchat/internal/corpus"
	"github.com/ziadkadry99/brandchat/internal/retrieval"
)

// ApologyMessage is the user-facing error for a failed answer.
const ApologyMessage = "Sorry, we couldn't put an answer together just now. " +
	"Please try again in a moment, or reach out to us directly through the contact form."

const maxBodyBytes = 64 << 10

// Answerer produces grounded answers. *retrieval.Orchestrator satisfies it.
type Answerer interface {
	AnswerQuery(ctx context.Context, query string) (*retrieval.Result, error)
}

// QueryLogger records query outcomes. *audit.Store satisfies it.
type QueryLogger interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Source is one attribution entry in a chat response.
type Source struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

// Response is the 200 body.
type Response struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

// ErrorResponse is the 400 and 500 body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler serves the chat endpoints.
type Handler struct {
	answerer Answerer
	queries  QueryLogger
	logger   *zap.Logger
	origins  []string
}

// NewHandler creates a Handler. queries and logger may be nil.
func NewHandler(answerer Answerer, queries QueryLogger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{answerer: answerer, queries: queries, logger: logger.Named("chat")}
}

// RegisterRoutes mounts POST /chat and POST /api/chat.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/api/chat", h.handleChat)
}

// RegisterWebSocket mounts GET /chat/ws. Connections are long-lived, so it
// belongs outside any request timeout middleware.
func (h *Handler) RegisterWebSocket(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: MessageRequired})
		return
	}

	req, err := ParseRequest(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: MessageRequired})
		return
	}

	resp, failure := h.answer(r.Context(), audit.ChannelHTTP, req.Message)
	if failure != nil {
		writeJSON(w, http.StatusInternalServerError, failure)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// answer runs one query and records it. Exactly one return value is non-nil.
func (h *Handler) answer(ctx context.Context, channel audit.Channel, message string) (*Response, *ErrorResponse) {
	start := time.Now()
	res, err := h.answerer.AnswerQuery(ctx, message)

	entry := audit.Entry{
		Channel:   channel,
		Query:     message,
		LatencyMS: time.Since(start).Milliseconds(),
	}

	if err != nil {
		var genErr *retrieval.GenerationServiceError
		if !errors.As(err, &genErr) {
			h.logger.Error("answering query", zap.Error(err))
		}
		entry.Status = audit.StatusFailed
		entry.Error = err.Error()
		h.record(entry)
		return nil, &ErrorResponse{Error: ApologyMessage, Details: err.Error()}
	}

	entry.Status = audit.StatusAnswered
	entry.Fallback = res.Fallback
	entry.Model = res.Model
	entry.InputTokens = res.InputTokens
	entry.OutputTokens = res.OutputTokens
	entry.SourceIDs = make([]string, len(res.Sources))
	for i, d := range res.Sources {
		entry.SourceIDs[i] = d.ID
	}
	h.record(entry)

	return &Response{Response: res.Response, Sources: ToSources(res.Sources)}, nil
}

func (h *Handler) record(entry audit.Entry) {
	if h.queries == nil {
		return
	}
	// The request context may already be cancelled; the log entry should still land.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.queries.Log(ctx, entry); err != nil {
		h.logger.Warn("recording query", zap.Error(err))
	}
}

// ToSources converts retrieved documents to response attribution entries.
func ToSources(docs []corpus.Document) []Source {
	out := make([]Source, len(docs))
	for i, d := range docs {
		out[i] = Source{
			ID:     d.ID,
			Title:  d.Title(),
			Source: string(d.Source),
			URL:    d.Metadata.ExternalURL,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
