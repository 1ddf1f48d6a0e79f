package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryProvider retries retryable failures a bounded number of times.
type RetryProvider struct {
	provider Provider
	retries  int
	backoff  time.Duration
	logger   *zap.Logger
}

// NewRetryProvider wraps provider so that a retryable error (see IsRetryable)
// is retried up to retries times, waiting backoff between attempts.
// retries <= 0 returns provider unchanged.
func NewRetryProvider(provider Provider, retries int, backoff time.Duration, logger *zap.Logger) Provider {
	if retries <= 0 {
		return provider
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryProvider{
		provider: provider,
		retries:  retries,
		backoff:  backoff,
		logger:   logger.Named("llm"),
	}
}

func (r *RetryProvider) Name() string { return r.provider.Name() }

func (r *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("retrying completion",
				zap.String("provider", r.provider.Name()),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
