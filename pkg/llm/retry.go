package llm

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultMaxAttempts = 3

// RetryConfig bounds the retry loop around one logical model call.
type RetryConfig struct {
	// MaxAttempts caps the attempts. Defaults to 3.
	MaxAttempts int
	// AttemptTimeout bounds each individual attempt, so a stalled backend
	// degrades to a timeout error instead of hanging the turn. Zero leaves
	// the caller's deadline in charge.
	AttemptTimeout time.Duration
	// Backoff computes the delay before retry n (n starts at 1). Nil uses
	// exponential seconds.
	Backoff func(attempt int) time.Duration
	Log     *logrus.Logger
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// CompleteWithRetry calls the provider with bounded exponential backoff.
// Only retryable provider errors trigger another attempt; the backoff sleep
// respects context cancellation.
func CompleteWithRetry(ctx context.Context, p Provider, req Request, cfg RetryConfig) (*Response, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff == nil {
		cfg.Backoff = defaultBackoff
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := cfg.Backoff(attempt)
			log.WithFields(logrus.Fields{
				"provider": p.Name(),
				"attempt":  attempt,
				"backoff":  backoff.String(),
			}).Debug("retrying model call")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, AsProviderError(p.Name(), ctx.Err())
			}
		}

		resp, err := completeOnce(ctx, p, req, cfg.AttemptTimeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsRetryable(err) {
			return nil, AsProviderError(p.Name(), err)
		}
	}
	return nil, AsProviderError(p.Name(), lastErr)
}

// completeOnce runs one attempt under its own deadline. An expired attempt
// deadline with a still-live parent context reports as a retryable timeout.
func completeOnce(ctx context.Context, p Provider, req Request, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		return p.Complete(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := p.Complete(attemptCtx, req)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, AsProviderError(p.Name(), context.DeadlineExceeded)
	}
	return resp, err
}
