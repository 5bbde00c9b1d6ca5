package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/textencode/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAlerter struct {
	subjects []string
}

func (r *recordingAlerter) Alert(subject, message string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

func TestCircuitBreakerTrips(t *testing.T) {
	inner := newFakeClient("m")
	boom := errors.New("upstream down")
	inner.errs = []error{boom, boom, boom}
	alerter := &recordingAlerter{}

	cb := NewCircuitBreakerClient(inner, config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          60,
		ReadyToTripRatio: 0.5,
	}, alerter, "embedder:m", nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := cb.Embed(ctx, []string{"x"})
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	require.Len(t, alerter.subjects, 1)
	assert.Contains(t, alerter.subjects[0], "embedder:m")

	_, err := cb.Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.calls())
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	inner := newFakeClient("m")
	cb := NewCircuitBreakerClient(inner, config.CircuitBreakerConfig{Enabled: true}, nil, "embedder:m", nil)

	out, err := cb.Embed(context.Background(), []string{"ab", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 2}, {1, 1}}, out)
	assert.Equal(t, 2, cb.Dimensions())
	assert.Equal(t, "m", cb.Model())
}
