package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ziadkadry99/brandchat/internal/config"
	"github.com/ziadkadry99/brandchat/internal/corpus"
	"github.com/ziadkadry99/brandchat/internal/embeddings"
	"github.com/ziadkadry99/brandchat/internal/retrieval"
)

func TestCreateEmbedderFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	t.Setenv("OPENAI_API_KEY", "")
	cfg.EmbeddingProvider = config.ProviderOpenAI
	if _, err := createEmbedderFromConfig(cfg); err == nil {
		t.Error("expected error without OPENAI_API_KEY")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	e, err := createEmbedderFromConfig(cfg)
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if e.Name() != "openai/text-embedding-3-small" {
		t.Errorf("Name = %q", e.Name())
	}

	cfg.EmbeddingProvider = config.ProviderOllama
	cfg.EmbeddingModel = "mxbai-embed-large:latest"
	e, err = createEmbedderFromConfig(cfg)
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if e.Dimensions() != 1024 {
		t.Errorf("Dimensions = %d, want 1024", e.Dimensions())
	}

	cfg.EmbeddingProvider = config.ProviderAnthropic
	if _, err := createEmbedderFromConfig(cfg); err == nil {
		t.Error("anthropic has no embedding API and should be rejected")
	}
}

func TestNewCachePolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Policy = config.CacheLRU
	cfg.Cache.Size = 2
	p := newCachePolicy(cfg)

	p.Put("a", embeddings.Vector{1})
	p.Put("b", embeddings.Vector{2})
	p.Put("c", embeddings.Vector{3})
	if p.Len() != 2 {
		t.Errorf("LRU Len = %d, want 2", p.Len())
	}

	cfg.Cache.Policy = config.CacheUnbounded
	p = newCachePolicy(cfg)
	for _, k := range []string{"a", "b", "c"} {
		p.Put(k, embeddings.Vector{0})
	}
	if p.Len() != 3 {
		t.Errorf("unbounded Len = %d, want 3", p.Len())
	}
}

func TestFilterRanked(t *testing.T) {
	ranked := []retrieval.ScoredDocument{
		{Document: corpus.Document{ID: "a", Source: corpus.SourceCaseStudy}, Score: 0.9},
		{Document: corpus.Document{ID: "b", Source: corpus.SourceArticle}, Score: 0.8},
		{Document: corpus.Document{ID: "c", Source: corpus.SourceCaseStudy}, Score: 0.7},
	}

	all := filterRanked(ranked, "", 0)
	if len(all) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(all))
	}

	cases := filterRanked(ranked, corpus.SourceCaseStudy, 0)
	if len(cases) != 2 || cases[0].ID != "a" || cases[1].ID != "c" {
		t.Errorf("source filter = %+v", cases)
	}

	top := filterRanked(ranked, "", 1)
	if len(top) != 1 || top[0].ID != "a" || top[0].Title != "a" {
		t.Errorf("limit = %+v", top)
	}

	if none := filterRanked(ranked, corpus.SourceTalk, 5); none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("a  multi\nline   query", 100); got != "a multi line query" {
		t.Errorf("whitespace not collapsed: %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("got %q", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BRANDCHAT_TEST_KEY=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BRANDCHAT_TEST_KEY", "")
	os.Unsetenv("BRANDCHAT_TEST_KEY")
	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("BRANDCHAT_TEST_KEY"); got != "from-file" {
		t.Errorf("BRANDCHAT_TEST_KEY = %q", got)
	}
}

func TestOpenQueryLogDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.QueryLog.Enabled = false
	database, store, err := openQueryLog(cfg)
	if err != nil || database != nil || store != nil {
		t.Errorf("disabled query log: %v %v %v", database, store, err)
	}

	cfg.QueryLog.Enabled = true
	cfg.DataDir = t.TempDir()
	database, store, err = openQueryLog(cfg)
	if err != nil {
		t.Fatalf("openQueryLog: %v", err)
	}
	defer database.Close()
	if store == nil {
		t.Error("expected a store")
	}
}
