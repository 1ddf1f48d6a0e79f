package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/brandchat/internal/db"
)

// timestamps keep millisecond precision so Recent orders bursts correctly.
const timeLayout = "2006-01-02 15:04:05.000"

// Store reads and writes the query log.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a new entry. Empty ID and zero Timestamp are filled in.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Channel == "" {
		entry.Channel = ChannelHTTP
	}
	if entry.SourceIDs == nil {
		entry.SourceIDs = []string{}
	}

	sources, err := json.Marshal(entry.SourceIDs)
	if err != nil {
		return fmt.Errorf("marshalling source ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_log (
			id, timestamp, channel, query, source_ids, fallback,
			status, error, model, input_tokens, output_tokens, latency_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(timeLayout),
		string(entry.Channel),
		entry.Query,
		string(sources),
		entry.Fallback,
		string(entry.Status),
		entry.Error,
		entry.Model,
		entry.InputTokens,
		entry.OutputTokens,
		entry.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("inserting query log entry: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, timestamp, channel, query, source_ids, fallback,
	status, error, model, input_tokens, output_tokens, latency_ms FROM query_log`

// GetByID retrieves a single entry, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading query log entry: %w", err)
	}
	return e, nil
}

// QueryFilter controls which entries Query returns.
type QueryFilter struct {
	Status   Status
	Fallback *bool
	Since    *time.Time
	Limit    int
	Offset   int
}

// Query returns entries matching filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Fallback != nil {
		clauses = append(clauses, "fallback = ?")
		args = append(args, *filter.Fallback)
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	query := selectColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying query log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Recent returns the newest limit entries.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.Query(ctx, QueryFilter{Limit: limit})
}

// Summarize counts entries by outcome.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(status = 'answered'), 0),
		       COALESCE(SUM(status = 'failed'), 0),
		       COALESCE(SUM(fallback), 0)
		FROM query_log`).Scan(&sum.Total, &sum.Answered, &sum.Failed, &sum.Fallbacks)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing query log: %w", err)
	}
	return sum, nil
}

// DeleteBefore removes entries older than before and returns how many went.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM query_log WHERE timestamp < ?",
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old query log entries: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e                   Entry
		ts, channel, status string
		sourcesJSON         string
	)

	err := sc.Scan(
		&e.ID, &ts, &channel, &e.Query, &sourcesJSON, &e.Fallback,
		&status, &e.Error, &e.Model, &e.InputTokens, &e.OutputTokens, &e.LatencyMS,
	)
	if err != nil {
		return nil, err
	}

	e.Channel = Channel(channel)
	e.Status = Status(status)

	for _, layout := range []string{timeLayout, time.DateTime, time.RFC3339Nano} {
		if t, perr := time.Parse(layout, ts); perr == nil {
			e.Timestamp = t
			break
		}
	}

	if err := json.Unmarshal([]byte(sourcesJSON), &e.SourceIDs); err != nil {
		e.SourceIDs = nil
	}

	return &e, nil
}
