// Package audit records every chat query in the SQLite query log so that
// degraded answers and generation failures can be reviewed after the fact.
package audit

import (
	"errors"
	"time"
)

// Status is the outcome of a query.
type Status string

const (
	StatusAnswered Status = "answered"
	StatusFailed   Status = "failed"
)

// Channel is the transport a query arrived on.
type Channel string

const (
	ChannelHTTP      Channel = "http"
	ChannelWebSocket Channel = "websocket"
	ChannelMCP       Channel = "mcp"
	ChannelCLI       Channel = "cli"
)

// ErrNotFound is returned by GetByID for unknown IDs.
var ErrNotFound = errors.New("query log entry not found")

// Entry is a single query log record.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Channel      Channel   `json:"channel"`
	Query        string    `json:"query"`
	SourceIDs    []string  `json:"source_ids"`
	Fallback     bool      `json:"fallback"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	Model        string    `json:"model,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	LatencyMS    int64     `json:"latency_ms"`
}

// Summary aggregates the query log.
type Summary struct {
	Total     int `json:"total"`
	Answered  int `json:"answered"`
	Failed    int `json:"failed"`
	Fallbacks int `json:"fallbacks"`
}
