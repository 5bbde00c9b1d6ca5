package encoder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/soundprediction/textencode/pkg/bridge"
	"github.com/soundprediction/textencode/pkg/bridge/bridgetest"
	"github.com/soundprediction/textencode/pkg/config"
	"github.com/soundprediction/textencode/pkg/dataset"
	"github.com/soundprediction/textencode/pkg/embedder"
	"github.com/soundprediction/textencode/pkg/encoder"
	"github.com/soundprediction/textencode/pkg/engine"
	"github.com/soundprediction/textencode/pkg/frame"
	"github.com/soundprediction/textencode/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDataset(t *testing.T, sess *session.Session) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromColumns(sess, frame.StringColumn("text", "hello", "encoder"))
	require.NoError(t, err)
	return ds
}

func TestNewTextEncoder(t *testing.T) {
	enc := encoder.NewTextEncoder("text", "embedding", "bert-base-uncased")
	assert.Equal(t, "text", enc.InputCol())
	assert.Equal(t, "embedding", enc.OutputCol())
	assert.Equal(t, "bert-base-uncased", enc.ModelID())
	_, ok := enc.BatchSize()
	assert.False(t, ok)

	enc = encoder.NewTextEncoder("text", "embedding", "bert-base-uncased", encoder.WithBatchSize(0))
	size, ok := enc.BatchSize()
	assert.True(t, ok)
	assert.Equal(t, 0, size, "batch size is forwarded without local validation")
}

func TestEncodeWithoutBatchSize(t *testing.T) {
	b := &bridgetest.Bridge{}
	sess := session.New("test", b)
	enc := encoder.NewTextEncoder("text", "embedding", "bert-base-uncased")

	out, err := enc.Encode(context.Background(), sess, newDataset(t, sess))
	require.NoError(t, err)

	stages := b.Stages()
	require.Len(t, stages, 1)
	calls := stages[0].Calls()
	require.Len(t, calls, 4, stages[0].String())
	assert.Equal(t, bridgetest.Call{Method: "SetInputCol", Arg: "text"}, calls[0])
	assert.Equal(t, bridgetest.Call{Method: "SetOutputCol", Arg: "embedding"}, calls[1])
	assert.Equal(t, bridgetest.Call{Method: "SetModelID", Arg: "bert-base-uncased"}, calls[2])
	assert.Equal(t, "Encode", calls[3].Method)
	assert.Empty(t, stages[0].CallsTo("SetBatchSize"))

	assert.Same(t, sess, out.Session())
	assert.True(t, out.Frame().HasColumn("embedding"))
}

func TestEncodeWithBatchSize(t *testing.T) {
	b := &bridgetest.Bridge{}
	sess := session.New("test", b)
	enc := encoder.NewTextEncoder("text", "embedding", "bert-base-uncased", encoder.WithBatchSize(16))

	_, err := enc.Encode(context.Background(), sess, newDataset(t, sess))
	require.NoError(t, err)

	stage := b.Stages()[0]
	assert.Equal(t, []bridgetest.Call{{Method: "SetBatchSize", Arg: 16}}, stage.CallsTo("SetBatchSize"))
	assert.Len(t, stage.CallsTo("Encode"), 1)

	calls := stage.Calls()
	assert.Equal(t, "Encode", calls[len(calls)-1].Method, "setters must precede Encode")
}

func TestEncodeIsStatelessAcrossCalls(t *testing.T) {
	b := &bridgetest.Bridge{}
	sess := session.New("test", b)
	enc := encoder.NewTextEncoder("text", "embedding", "bert-base-uncased", encoder.WithBatchSize(8))
	ds := newDataset(t, sess)

	for i := 0; i < 3; i++ {
		_, err := enc.Encode(context.Background(), sess, ds)
		require.NoError(t, err)
	}

	stages := b.Stages()
	require.Len(t, stages, 3, "each call constructs a fresh stage")
	for _, s := range stages {
		assert.Len(t, s.CallsTo("SetBatchSize"), 1)
		assert.Len(t, s.CallsTo("Encode"), 1)
	}
}

func TestEncodeBindsResultToInputSession(t *testing.T) {
	b := &bridgetest.Bridge{}
	owner := session.New("owner", b)
	caller := session.New("caller", b)
	ds := newDataset(t, owner)

	out, err := encoder.NewTextEncoder("text", "embedding", "m").Encode(context.Background(), caller, ds)
	require.NoError(t, err)
	assert.Same(t, owner, out.Session())
}

func TestEncodePassesNativeFrame(t *testing.T) {
	b := &bridgetest.Bridge{}
	sess := session.New("test", b)
	ds := newDataset(t, sess)

	_, err := encoder.NewTextEncoder("text", "embedding", "m").Encode(context.Background(), sess, ds)
	require.NoError(t, err)

	encodeCalls := b.Stages()[0].CallsTo("Encode")
	require.Len(t, encodeCalls, 1)
	assert.Same(t, ds.Frame(), encodeCalls[0].Arg)
}

func TestEncodeRequiresActiveSession(t *testing.T) {
	b := &bridgetest.Bridge{}
	sess := session.New("test", b)
	ds := newDataset(t, sess)
	enc := encoder.NewTextEncoder("text", "embedding", "m")

	out, err := enc.Encode(context.Background(), nil, ds)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
	assert.Nil(t, out)

	require.NoError(t, sess.Close())
	_, err = enc.Encode(context.Background(), sess, ds)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)

	assert.Empty(t, b.Stages(), "no stage may be constructed without a session")
}

func TestEncodePropagatesErrorsUnchanged(t *testing.T) {
	missing := errors.New("extension text_encoder not registered")
	rejected := errors.New("unknown model")

	tests := []struct {
		name   string
		bridge *bridgetest.Bridge
		want   error
	}{
		{name: "bridge cannot build stage", bridge: &bridgetest.Bridge{NewErr: missing}, want: missing},
		{name: "stage rejects configuration", bridge: &bridgetest.Bridge{EncodeErr: rejected}, want: rejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := session.New("test", tt.bridge)
			_, err := encoder.NewTextEncoder("text", "embedding", "m").Encode(context.Background(), sess, newDataset(t, sess))
			assert.Same(t, tt.want, err)
		})
	}
}

type staticResolver struct{}

func (staticResolver) Resolve(ctx context.Context, modelID string) (embedder.Client, error) {
	return nil, errors.New("unreachable in this test")
}

func TestEncodeThroughEngineWithoutExtension(t *testing.T) {
	e := engine.New(staticResolver{}, config.EngineConfig{}, engine.WithExtensions())
	sess := session.New("test", e)

	_, err := encoder.NewTextEncoder("text", "embedding", "m").Encode(context.Background(), sess, newDataset(t, sess))
	assert.ErrorIs(t, err, bridge.ErrExtensionNotRegistered)
}
