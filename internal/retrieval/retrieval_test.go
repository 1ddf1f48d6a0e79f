package retrieval

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ziadkadry99/brandchat/internal/corpus"
	"github.com/ziadkadry99/brandchat/internal/embeddings"
	"github.com/ziadkadry99/brandchat/internal/llm"
)

// keywordEmbedder maps text onto one axis per keyword it contains.
type keywordEmbedder struct {
	keywords []string
	failOn   string

	mu    sync.Mutex
	calls int
}

func (k *keywordEmbedder) GetEmbedding(ctx context.Context, text string) (embeddings.Vector, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k.failOn != "" && strings.Contains(text, k.failOn) {
		return nil, errors.New("embedding backend unavailable")
	}
	lower := strings.ToLower(text)
	v := make(embeddings.Vector, len(k.keywords))
	for i, kw := range k.keywords {
		if strings.Contains(lower, kw) {
			v[i] = 1
		}
	}
	return v, nil
}

type failingEmbedder struct{}

func (failingEmbedder) GetEmbedding(context.Context, string) (embeddings.Vector, error) {
	return nil, errors.New("quota exceeded")
}

type stubGenerator struct {
	mu    sync.Mutex
	reqs  []llm.CompletionRequest
	reply string
	err   error
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.reply, InputTokens: 100, OutputTokens: 40, Model: "stub-model"}, nil
}

func scenarioCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New([]corpus.Document{
		{ID: "color", Source: corpus.SourceArticle, Content: "Color psychology shapes how people feel about a brand.", Metadata: corpus.Metadata{Title: "Color Psychology"}},
		{ID: "ux", Source: corpus.SourceArticle, Content: "UX research starts with interviews and ends with evidence.", Metadata: corpus.Metadata{Title: "UX Research"}},
		{ID: "case-a", Source: corpus.SourceCaseStudy, Content: "Case study A: a fintech onboarding redesign.", Metadata: corpus.Metadata{Title: "Case Study A"}},
		{ID: "case-b", Source: corpus.SourceCaseStudy, Content: "Case study B: a wellness brand refresh.", Metadata: corpus.Metadata{Title: "Case Study B"}},
		{ID: "method", Source: corpus.SourceWebsiteCopy, Content: "Our methodology: discover, define, design, deliver.", Metadata: corpus.Metadata{Title: "Methodology"}},
	})
	if err != nil {
		t.Fatalf("building corpus: %v", err)
	}
	return c
}

func ids(docs []corpus.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{keywords: []string{"case stud", "color", "ux", "methodology"}}
}

func TestRetrieveRelevantCaseStudies(t *testing.T) {
	o := New(scenarioCorpus(t), newKeywordEmbedder(), &stubGenerator{}, Options{})

	docs, err := o.RetrieveRelevant(context.Background(), "tell me about your case studies", 2)
	if err != nil {
		t.Fatalf("RetrieveRelevant: %v", err)
	}
	got := ids(docs)
	want := []string{"case-a", "case-b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRetrieveRelevantIsDeterministic(t *testing.T) {
	o := New(scenarioCorpus(t), newKeywordEmbedder(), &stubGenerator{}, Options{})
	ctx := context.Background()

	first, err := o.RetrieveRelevant(ctx, "what about color and ux?", 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := o.RetrieveRelevant(ctx, "what about color and ux?", 4)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(ids(first), ids(again)) {
			t.Fatalf("run %d: got %v, want %v", i, ids(again), ids(first))
		}
	}
}

func TestRetrieveRelevantTiesKeepCorpusOrder(t *testing.T) {
	// No keyword matches anything, so every score is 0.
	emb := &keywordEmbedder{keywords: []string{"zzz"}}
	o := New(scenarioCorpus(t), emb, &stubGenerator{}, Options{})

	docs, err := o.RetrieveRelevant(context.Background(), "hello", 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"color", "ux", "case-a", "case-b", "method"}
	if got := ids(docs); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRetrieveRelevantTopKBound(t *testing.T) {
	o := New(scenarioCorpus(t), newKeywordEmbedder(), &stubGenerator{}, Options{})

	for _, k := range []int{1, 3, 5, 8} {
		docs, err := o.RetrieveRelevant(context.Background(), "methodology", k)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if want := min(k, 5); len(docs) != want {
			t.Errorf("k=%d: got %d documents, want %d", k, len(docs), want)
		}
	}
}

func TestRetrieveRelevantRejectsNonPositiveTopK(t *testing.T) {
	o := New(scenarioCorpus(t), newKeywordEmbedder(), &stubGenerator{}, Options{})
	if _, err := o.RetrieveRelevant(context.Background(), "q", 0); !errors.Is(err, ErrInvalidTopK) {
		t.Errorf("expected ErrInvalidTopK, got %v", err)
	}
}

func TestRetrieveRelevantFallsBackOnEmbeddingFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	o := New(scenarioCorpus(t), failingEmbedder{}, &stubGenerator{}, Options{Logger: zap.New(core)})

	docs, err := o.RetrieveRelevant(context.Background(), "tell me about your case studies", 3)
	if err != nil {
		t.Fatalf("fallback must not return an error: %v", err)
	}
	want := []string{"color", "ux", "case-a"}
	if got := ids(docs); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want corpus order %v", got, want)
	}
	if n := logs.FilterMessageSnippet("retrieval fallback").Len(); n != 1 {
		t.Errorf("expected 1 fallback warning, got %d", n)
	}
	if got := o.Stats().RetrievalFallback; got != 1 {
		t.Errorf("fallback counter = %d, want 1", got)
	}
}

func TestRetrieveRelevantNoPartialRanking(t *testing.T) {
	// Only the last document fails; the whole call still falls back.
	emb := newKeywordEmbedder()
	emb.failOn = "methodology:"
	o := New(scenarioCorpus(t), emb, &stubGenerator{}, Options{Concurrency: 1})

	docs, err := o.RetrieveRelevant(context.Background(), "tell me about your case studies", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(docs), []string{"color", "ux"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want corpus order %v", got, want)
	}
}

func TestRetrieveRelevantCancelledContextFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(scenarioCorpus(t), newKeywordEmbedder(), &stubGenerator{}, Options{})

	docs, err := o.RetrieveRelevant(ctx, "case studies", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].ID != "color" {
		t.Errorf("expected corpus-order fallback, got %v", ids(docs))
	}
}

func TestRankReturnsEmbeddingError(t *testing.T) {
	o := New(scenarioCorpus(t), failingEmbedder{}, &stubGenerator{}, Options{})
	if _, err := o.Rank(context.Background(), "q"); err == nil {
		t.Error("expected error from Rank")
	}
}

func TestRankScoresDescending(t *testing.T) {
	o := New(scenarioCorpus(t), newKeywordEmbedder(), &stubGenerator{}, Options{})
	scored, err := o.Rank(context.Background(), "color")
	if err != nil {
		t.Fatal(err)
	}
	if len(scored) != 5 {
		t.Fatalf("expected 5 scored documents, got %d", len(scored))
	}
	if scored[0].Document.ID != "color" || scored[0].Score != 1 {
		t.Errorf("top = %s (%v), want color (1)", scored[0].Document.ID, scored[0].Score)
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestRetrieveRelevantUsesCache(t *testing.T) {
	backend := &countingBackend{}
	cache := embeddings.NewCache(backend, nil, nil)
	o := New(scenarioCorpus(t), cache, &stubGenerator{}, Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := o.RetrieveRelevant(ctx, "same question", 3); err != nil {
			t.Fatal(err)
		}
	}
	// One query plus five documents, each embedded once.
	if got := backend.texts(); got != 6 {
		t.Errorf("backend embedded %d texts, want 6", got)
	}
}

type countingBackend struct {
	mu sync.Mutex
	n  int
}

func (c *countingBackend) Embed(_ context.Context, texts []string) ([]embeddings.Vector, error) {
	c.mu.Lock()
	c.n += len(texts)
	c.mu.Unlock()
	out := make([]embeddings.Vector, len(texts))
	for i, t := range texts {
		out[i] = embeddings.Vector{float32(len(t)), 1}
	}
	return out, nil
}

func (c *countingBackend) Dimensions() int { return 2 }
func (c *countingBackend) Name() string    { return "counting" }

func (c *countingBackend) texts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestAnswerQuery(t *testing.T) {
	gen := &stubGenerator{reply: "  We love case studies.  "}
	o := New(scenarioCorpus(t), newKeywordEmbedder(), gen, Options{Model: "test-model", MaxTokens: 300})

	res, err := o.AnswerQuery(context.Background(), "tell me about your case studies")
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if res.Response != "We love case studies." {
		t.Errorf("Response = %q", res.Response)
	}
	if got := ids(res.Sources); len(got) != 3 || got[0] != "case-a" || got[1] != "case-b" {
		t.Errorf("Sources = %v", got)
	}
	if res.Fallback {
		t.Error("Fallback should be false")
	}

	if len(gen.reqs) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(gen.reqs))
	}
	req := gen.reqs[0]
	if req.Model != "test-model" || req.MaxTokens != 300 {
		t.Errorf("request model/max tokens = %q/%d", req.Model, req.MaxTokens)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem || req.Messages[1].Role != llm.RoleUser {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	user := req.Messages[1].Content
	for _, want := range []string{"[1] Case Study A (case-study)", "Case study B: a wellness brand refresh.", "tell me about your case studies"} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestAnswerQueryPassesTemperatureThrough(t *testing.T) {
	for _, temp := range []float64{0, 0.7} {
		gen := &stubGenerator{reply: "ok"}
		o := New(scenarioCorpus(t), newKeywordEmbedder(), gen, Options{Temperature: temp})
		if _, err := o.AnswerQuery(context.Background(), "color"); err != nil {
			t.Fatalf("AnswerQuery: %v", err)
		}
		if len(gen.reqs) != 1 || gen.reqs[0].Temperature != temp {
			t.Errorf("temperature %v: requests = %+v", temp, gen.reqs)
		}
	}
}

func TestAnswerQueryGenerationFailure(t *testing.T) {
	cause := errors.New("upstream 503")
	gen := &stubGenerator{err: cause}
	o := New(scenarioCorpus(t), newKeywordEmbedder(), gen, Options{})

	res, err := o.AnswerQuery(context.Background(), "hi")
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	var genErr *GenerationServiceError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationServiceError, got %T %v", err, err)
	}
	if genErr.Provider != "stub" {
		t.Errorf("Provider = %q", genErr.Provider)
	}
	if !errors.Is(err, cause) {
		t.Error("error should unwrap to the provider failure")
	}
	if got := o.Stats().GenerationErrors; got != 1 {
		t.Errorf("GenerationErrors = %d, want 1", got)
	}
}

func TestAnswerQueryReportsFallback(t *testing.T) {
	o := New(scenarioCorpus(t), failingEmbedder{}, &stubGenerator{reply: "ok"}, Options{})
	res, err := o.AnswerQuery(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fallback {
		t.Error("Fallback should be true")
	}
	if got, want := ids(res.Sources), []string{"color", "ux", "case-a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sources = %v, want %v", got, want)
	}
}

func TestAnswerQueryCountsPromptTokens(t *testing.T) {
	var counted string
	o := New(scenarioCorpus(t), newKeywordEmbedder(), &stubGenerator{reply: "ok"}, Options{
		CountTokens: func(s string) int { counted = s; return len(s) },
	})
	if _, err := o.AnswerQuery(context.Background(), "methodology?"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(counted, "methodology?") {
		t.Error("CountTokens should see the full prompt")
	}
}

func TestBuildPromptWithoutDocuments(t *testing.T) {
	p := BuildPrompt("anything?", nil)
	if !strings.Contains(p, "(none)") || !strings.HasSuffix(p, "anything?\n") {
		t.Errorf("unexpected prompt:\n%s", p)
	}
}

func TestWarm(t *testing.T) {
	backend := &countingBackend{}
	cache := embeddings.NewCache(backend, nil, nil)
	o := New(scenarioCorpus(t), cache, &stubGenerator{}, Options{})

	var seen []string
	err := o.Warm(context.Background(), func(done int, id string) {
		if done != len(seen)+1 {
			t.Errorf("done = %d, want %d", done, len(seen)+1)
		}
		seen = append(seen, id)
	})
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if len(seen) != 5 || seen[0] != "color" {
		t.Errorf("progress ids = %v", seen)
	}
	if _, err := o.RetrieveRelevant(context.Background(), "q", 1); err != nil {
		t.Fatal(err)
	}
	// Only the query is new after warming.
	if got := backend.texts(); got != 6 {
		t.Errorf("backend embedded %d texts, want 6", got)
	}
}

func TestWarmStopsOnError(t *testing.T) {
	o := New(scenarioCorpus(t), failingEmbedder{}, &stubGenerator{}, Options{})
	if err := o.Warm(context.Background(), nil); err == nil {
		t.Error("expected error")
	}
}
