package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ziadkadry99/brandchat/internal/audit"
	"github.com/ziadkadry99/brandchat/internal/corpus"
	"github.com/ziadkadry99/brandchat/internal/retrieval"
)

func (s *Server) handleAskBrand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	start := time.Now()
	res, err := s.backend.AnswerQuery(ctx, question)
	entry := audit.Entry{
		Channel:   audit.ChannelMCP,
		Query:     question,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = audit.StatusFailed
		entry.Error = err.Error()
		s.record(ctx, entry)

		var genErr *retrieval.GenerationServiceError
		if errors.As(err, &genErr) {
			return mcp.NewToolResultError(fmt.Sprintf("generation failed (%s): %v", genErr.Provider, genErr.Err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("answering failed: %v", err)), nil
	}

	entry.Status = audit.StatusAnswered
	entry.Fallback = res.Fallback
	entry.Model = res.Model
	entry.InputTokens = res.InputTokens
	entry.OutputTokens = res.OutputTokens
	for _, d := range res.Sources {
		entry.SourceIDs = append(entry.SourceIDs, d.ID)
	}
	s.record(ctx, entry)

	return mcp.NewToolResultText(formatAnswer(res)), nil
}

func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", retrieval.DefaultTopK)
	if limit <= 0 {
		limit = retrieval.DefaultTopK
	}

	var kind corpus.SourceKind
	if v := request.GetString("source", ""); v != "" {
		kind, err = corpus.ParseSourceKind(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	scored, err := s.backend.Rank(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	var results []retrieval.ScoredDocument
	for _, sd := range scored {
		if kind != "" && sd.Document.Source != kind {
			continue
		}
		results = append(results, sd)
		if len(results) >= limit {
			break
		}
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No matching documents."), nil
	}
	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	doc, ok := s.backend.Corpus().Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no document with id %q", id)), nil
	}

	var sb strings.Builder
	writeHeader(&sb, doc)
	sb.WriteString("\n")
	sb.WriteString(doc.Content)
	sb.WriteString("\n")
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) record(ctx context.Context, entry audit.Entry) {
	if s.queries == nil {
		return
	}
	if err := s.queries.Log(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("recording query", zap.Error(err))
	}
}

func formatAnswer(res *retrieval.Result) string {
	var sb strings.Builder
	sb.WriteString(res.Response)
	sb.WriteString("\n\nSources:\n")
	for i, d := range res.Sources {
		fmt.Fprintf(&sb, "%d. %s [%s] (id: %s)", i+1, d.Title(), d.Source, d.ID)
		if d.Metadata.ExternalURL != "" {
			fmt.Fprintf(&sb, " %s", d.Metadata.ExternalURL)
		}
		sb.WriteString("\n")
	}
	if res.Fallback {
		sb.WriteString("\nNote: semantic ranking was unavailable; sources are in default order.\n")
	}
	return sb.String()
}

// formatSearchResults renders ranked documents for agent consumption.
func formatSearchResults(results []retrieval.ScoredDocument) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d document(s):\n", len(results))

	for i, r := range results {
		fmt.Fprintf(&sb, "\n--- Result %d ---\n", i+1)
		writeHeader(&sb, r.Document)
		fmt.Fprintf(&sb, "Similarity: %.1f%%\n", r.Score*100)
		sb.WriteString("\n")
		sb.WriteString(excerpt(r.Document.Content, 400))
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeHeader(sb *strings.Builder, d corpus.Document) {
	fmt.Fprintf(sb, "ID: %s\nTitle: %s\nSource: %s\n", d.ID, d.Title(), d.Source)
	if d.Metadata.ExternalURL != "" {
		fmt.Fprintf(sb, "URL: %s\n", d.Metadata.ExternalURL)
	}
	if !d.Metadata.PublishedDate.IsZero() {
		fmt.Fprintf(sb, "Published: %s\n", d.Metadata.PublishedDate.Format("2006-01-02"))
	}
	if len(d.Metadata.Tags) > 0 {
		fmt.Fprintf(sb, "Tags: %s\n", strings.Join(d.Metadata.Tags, ", "))
	}
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
