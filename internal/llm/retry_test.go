package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	errs  []error
	calls int
}

func (s *scriptedProvider) Analyze(ctx context.Context, messages []Message, opts ...Option) (*Response, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return nil, s.errs[s.calls-1]
	}
	return &Response{Content: "ok"}, nil
}

func TestWithRetry_RetriesTransientFailures(t *testing.T) {
	p := &scriptedProvider{errs: []error{&UpstreamError{StatusCode: http.StatusServiceUnavailable}}}

	resp, err := WithRetry(p, 1, 0).Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, p.calls)
}

func TestWithRetry_IsBounded(t *testing.T) {
	transient := &UpstreamError{StatusCode: http.StatusTooManyRequests}
	p := &scriptedProvider{errs: []error{transient, transient, transient}}

	_, err := WithRetry(p, 1, 0).Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 2, p.calls)
}

func TestWithRetry_DoesNotRetryClientErrors(t *testing.T) {
	p := &scriptedProvider{errs: []error{&UpstreamError{StatusCode: http.StatusUnauthorized}}}

	_, err := WithRetry(p, 3, 0).Analyze(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestWithRetry_DoesNotRetryOtherErrors(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("boom")}}

	_, err := WithRetry(p, 3, 0).Analyze(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &scriptedProvider{errs: []error{&UpstreamError{Err: context.Canceled}}}

	_, err := WithRetry(p, 3, 0).Analyze(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestWithRetry_ZeroRetriesReturnsProvider(t *testing.T) {
	p := &scriptedProvider{}
	assert.Same(t, p, WithRetry(p, 0, 0))
}
