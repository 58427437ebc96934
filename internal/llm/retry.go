package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type retryProvider struct {
	next       Provider
	maxRetries int
	backoff    time.Duration
}

// WithRetry repeats calls that failed for transient reasons (transport
// errors, 408, 429, 5xx) up to maxRetries times, doubling the backoff after
// each attempt. Malformed model output is not retried here.
func WithRetry(p Provider, maxRetries int, backoff time.Duration) Provider {
	if maxRetries <= 0 {
		return p
	}
	return &retryProvider{next: p, maxRetries: maxRetries, backoff: backoff}
}

func (r *retryProvider) Analyze(ctx context.Context, messages []Message, opts ...Option) (*Response, error) {
	wait := r.backoff
	for attempt := 0; ; attempt++ {
		resp, err := r.next.Analyze(ctx, messages, opts...)
		if err == nil {
			return resp, nil
		}
		if attempt >= r.maxRetries || !retryable(ctx, err) {
			return nil, err
		}

		slog.Warn("Model API call failed, retrying", "attempt", attempt+1, "backoff", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
		wait *= 2
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	return upstream.Temporary()
}
