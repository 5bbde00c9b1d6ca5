package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/soundprediction/textencode/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRetryClient(inner Client, maxRetries int) (*RetryClient, *[]time.Duration) {
	r := NewRetryClient(inner, config.RetryConfig{
		MaxRetries:        maxRetries,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          250 * time.Millisecond,
		BackoffMultiplier: 2,
	}, nil)
	var delays []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return r, &delays
}

func TestRetryClientRecovers(t *testing.T) {
	inner := newFakeClient("m")
	inner.errs = []error{
		&openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "overloaded"},
		&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"},
	}
	r, delays := newTestRetryClient(inner, 3)

	out, err := r.Embed(context.Background(), []string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3, 3}}, out)
	assert.Equal(t, 3, inner.calls())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *delays)
}

func TestRetryClientCapsDelay(t *testing.T) {
	inner := newFakeClient("m")
	inner.errs = []error{
		errors.New("connection reset by peer"),
		errors.New("connection reset by peer"),
		errors.New("connection reset by peer"),
		errors.New("connection reset by peer"),
	}
	r, delays := newTestRetryClient(inner, 3)

	_, err := r.Embed(context.Background(), []string{"abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 retries")
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond}, *delays)
}

func TestRetryClientStopsOnPermanentError(t *testing.T) {
	inner := newFakeClient("m")
	permanent := &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}
	inner.errs = []error{permanent}
	r, delays := newTestRetryClient(inner, 3)

	_, err := r.Embed(context.Background(), []string{"abc"})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, inner.calls())
	assert.Empty(t, *delays)
}

func TestRetryClientHonoursContext(t *testing.T) {
	inner := newFakeClient("m")
	inner.errs = []error{errors.New("service unavailable")}
	r, _ := newTestRetryClient(inner, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Embed(ctx, []string{"abc"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrapped: %w", ErrUnknownModel), false},
		{&openai.APIError{HTTPStatusCode: 500}, true},
		{&openai.APIError{HTTPStatusCode: 400}, false},
		{&openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, true},
		{errors.New("i/o timeout"), true},
		{errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryable(tt.err), "%v", tt.err)
	}
}
