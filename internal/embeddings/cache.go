package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// EmbeddingServiceError wraps a failure of the embedding provider.
type EmbeddingServiceError struct {
	Model string
	Err   error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service (%s): %v", e.Model, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// sharedCallTimeout bounds an outbound embedding call that may be serving
// several callers at once.
const sharedCallTimeout = 30 * time.Second

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Errors  int64 `json:"errors"`
	Entries int   `json:"entries"`
}

// Cache memoizes embeddings by exact input text. Keys are scoped to the
// embedder's model name so vectors from different models never mix.
type Cache struct {
	embedder Embedder
	policy   CachePolicy
	logger   *zap.Logger
	group    singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
}

// NewCache returns a Cache in front of embedder. A nil policy means
// NewUnboundedCache and a nil logger discards output.
func NewCache(embedder Embedder, policy CachePolicy, logger *zap.Logger) *Cache {
	if policy == nil {
		policy = NewUnboundedCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		embedder: embedder,
		policy:   policy,
		logger:   logger.Named("embeddings"),
	}
}

// Model returns the name of the underlying embedding model.
func (c *Cache) Model() string { return c.embedder.Name() }

func (c *Cache) key(text string) string {
	return c.embedder.Name() + "\x00" + text
}

// GetEmbedding returns the vector for text, calling the embedding service
// only on a cache miss. Concurrent misses for the same text share one call,
// which is detached from any single caller's cancellation; each caller stops
// waiting when its own ctx is done. On failure the cache is left untouched.
func (c *Cache) GetEmbedding(ctx context.Context, text string) (Vector, error) {
	key := c.key(text)
	if v, ok := c.policy.Get(key); ok {
		c.hits.Add(1)
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		c.errs.Add(1)
		return nil, &EmbeddingServiceError{Model: c.embedder.Name(), Err: err}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if v, ok := c.policy.Get(key); ok {
			c.hits.Add(1)
			return v, nil
		}
		c.misses.Add(1)

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()
		vecs, err := c.embedder.Embed(callCtx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 || len(vecs[0]) == 0 {
			return nil, errors.New("provider returned no embedding")
		}
		c.policy.Put(key, vecs[0])
		c.logger.Debug("embedding cached",
			zap.String("model", c.embedder.Name()),
			zap.Int("text_len", len(text)),
			zap.Int("entries", c.policy.Len()))
		return vecs[0], nil
	})

	select {
	case <-ctx.Done():
		c.errs.Add(1)
		return nil, &EmbeddingServiceError{Model: c.embedder.Name(), Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			c.errs.Add(1)
			return nil, &EmbeddingServiceError{Model: c.embedder.Name(), Err: res.Err}
		}
		return res.Val.(Vector), nil
	}
}

// Stats returns current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errs.Load(),
		Entries: c.policy.Len(),
	}
}
