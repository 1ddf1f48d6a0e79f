// Package retrieval answers visitor questions from the fixed knowledge corpus:
// it ranks documents by embedding similarity, grounds a prompt in the best
// matches and hands the prompt to the generation provider.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/brandchat/internal/corpus"
	"github.com/ziadkadry99/brandchat/internal/embeddings"
	"github.com/ziadkadry99/brandchat/internal/llm"
)

// DefaultTopK is the number of documents used to ground an answer.
const DefaultTopK = 3

// ErrInvalidTopK is returned when topK is not positive.
var ErrInvalidTopK = errors.New("topK must be greater than zero")

// EmbeddingSource produces embeddings for arbitrary text. *embeddings.Cache
// satisfies it.
type EmbeddingSource interface {
	GetEmbedding(ctx context.Context, text string) (embeddings.Vector, error)
}

// GenerationServiceError wraps a failed generation call.
type GenerationServiceError struct {
	Provider string
	Err      error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service (%s): %v", e.Provider, e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }

// ScoredDocument pairs a document with its similarity to a query.
type ScoredDocument struct {
	Document corpus.Document
	Score    float64
}

// Result is the answer to one query and the documents it was grounded in,
// most relevant first.
type Result struct {
	Response     string
	Sources      []corpus.Document
	Fallback     bool
	Model        string
	InputTokens  int
	OutputTokens int
}

// Options tunes an Orchestrator. Zero TopK and Concurrency select defaults;
// Temperature is passed through as given.
type Options struct {
	Model       string
	TopK        int
	MaxTokens   int
	Temperature float64
	// Concurrency bounds in-flight document embedding calls.
	Concurrency int
	// CountTokens, when set, is used to log the prompt size.
	CountTokens func(string) int
	Logger      *zap.Logger
}

// Stats is a snapshot of orchestrator counters.
type Stats struct {
	Answered          int64 `json:"answered"`
	GenerationErrors  int64 `json:"generation_errors"`
	RetrievalFallback int64 `json:"retrieval_fallbacks"`
}

// Orchestrator implements retrieval-augmented answering over a fixed corpus.
// It is safe for concurrent use.
type Orchestrator struct {
	corpus    *corpus.Corpus
	embedder  EmbeddingSource
	generator llm.Provider
	opts      Options
	logger    *zap.Logger

	answered  atomic.Int64
	genErrors atomic.Int64
	fallbacks atomic.Int64
}

func New(c *corpus.Corpus, embedder EmbeddingSource, generator llm.Provider, opts Options) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		corpus:    c,
		embedder:  embedder,
		generator: generator,
		opts:      opts,
		logger:    logger.Named("retrieval"),
	}
}

// Corpus returns the corpus this orchestrator retrieves from.
func (o *Orchestrator) Corpus() *corpus.Corpus { return o.corpus }

// Rank scores every corpus document against query and returns them sorted by
// descending similarity. Ties keep corpus order. Any embedding failure is
// returned as is; no partial ranking is produced.
func (o *Orchestrator) Rank(ctx context.Context, query string) ([]ScoredDocument, error) {
	queryVec, err := o.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	docs := o.corpus.Documents()
	vecs := make([]embeddings.Vector, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i, d := range docs {
		g.Go(func() error {
			v, err := o.embedder.GetEmbedding(gctx, d.Content)
			if err != nil {
				return fmt.Errorf("embedding document %s: %w", d.ID, err)
			}
			vecs[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scored := make([]ScoredDocument, len(docs))
	for i, d := range docs {
		scored[i] = ScoredDocument{Document: d, Score: embeddings.CosineSimilarity(queryVec, vecs[i])}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored, nil
}

// RetrieveRelevant returns the topK documents most similar to query. If any
// embedding call fails it returns the first topK documents in corpus order
// instead of an error.
func (o *Orchestrator) RetrieveRelevant(ctx context.Context, query string, topK int) ([]corpus.Document, error) {
	docs, _, err := o.retrieve(ctx, query, topK)
	return docs, err
}

func (o *Orchestrator) retrieve(ctx context.Context, query string, topK int) ([]corpus.Document, bool, error) {
	if topK <= 0 {
		return nil, false, ErrInvalidTopK
	}
	n := min(topK, o.corpus.Len())

	scored, err := o.Rank(ctx, query)
	if err != nil {
		o.fallbacks.Add(1)
		o.logger.Warn("retrieval fallback: using corpus order",
			zap.Int("top_k", topK),
			zap.Error(err))
		return o.corpus.Documents()[:n], true, nil
	}

	out := make([]corpus.Document, n)
	for i := range out {
		out[i] = scored[i].Document
	}
	return out, false, nil
}

// AnswerQuery retrieves the configured number of documents for query,
// grounds a prompt in them and returns the generated answer. A generation
// failure is returned as *GenerationServiceError.
func (o *Orchestrator) AnswerQuery(ctx context.Context, query string) (*Result, error) {
	start := time.Now()

	docs, fallback, err := o.retrieve(ctx, query, o.opts.TopK)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(query, docs)
	if o.opts.CountTokens != nil {
		o.logger.Debug("prompt assembled",
			zap.Int("documents", len(docs)),
			zap.Int("prompt_tokens", o.opts.CountTokens(personaPrompt+prompt)))
	}

	resp, err := o.generator.Complete(ctx, llm.CompletionRequest{
		Model: o.opts.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: personaPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   o.opts.MaxTokens,
		Temperature: o.opts.Temperature,
	})
	if err != nil {
		o.genErrors.Add(1)
		o.logger.Error("generation failed",
			zap.String("provider", o.generator.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, &GenerationServiceError{Provider: o.generator.Name(), Err: err}
	}

	o.answered.Add(1)
	o.logger.Info("query answered",
		zap.Strings("sources", documentIDs(docs)),
		zap.Bool("fallback", fallback),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Float64("cost_usd", llm.EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Response:     strings.TrimSpace(resp.Content),
		Sources:      docs,
		Fallback:     fallback,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// Stats returns current counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Answered:          o.answered.Load(),
		GenerationErrors:  o.genErrors.Load(),
		RetrievalFallback: o.fallbacks.Load(),
	}
}

func documentIDs(docs []corpus.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
