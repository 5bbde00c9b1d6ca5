// Package encoder provides TextEncoder, the host-side configuration object for
// sentence encoding.
//
// TextEncoder does no encoding itself. Encode asks the session's bridge for a
// text encoder stage, relays the configuration through the stage setters, runs
// the stage on the dataset's frame and wraps the result in a dataset bound to
// the input's session. Errors from the session check, the bridge and the stage
// are returned unchanged.
package encoder

import (
	"context"

	"github.com/soundprediction/textencode/pkg/dataset"
	"github.com/soundprediction/textencode/pkg/session"
)

// TextEncoder holds the configuration of a sentence encoding request. It is
// immutable after construction and safe for concurrent use.
type TextEncoder struct {
	inputCol  string
	outputCol string
	modelID   string
	batchSize *int
}

// Option configures optional TextEncoder fields.
type Option func(*TextEncoder)

// WithBatchSize sets the batch size forwarded to the stage. The value is not
// checked here; the engine decides what it accepts.
func WithBatchSize(size int) Option {
	return func(e *TextEncoder) {
		e.batchSize = &size
	}
}

// NewTextEncoder creates a TextEncoder. Without WithBatchSize the engine's
// default batch size applies.
func NewTextEncoder(inputCol, outputCol, modelID string, opts ...Option) *TextEncoder {
	e := &TextEncoder{
		inputCol:  inputCol,
		outputCol: outputCol,
		modelID:   modelID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InputCol returns the text column name.
func (e *TextEncoder) InputCol() string { return e.inputCol }

// OutputCol returns the vector column name.
func (e *TextEncoder) OutputCol() string { return e.outputCol }

// ModelID returns the model identifier.
func (e *TextEncoder) ModelID() string { return e.modelID }

// BatchSize returns the batch size and whether one was set.
func (e *TextEncoder) BatchSize() (int, bool) {
	if e.batchSize == nil {
		return 0, false
	}
	return *e.batchSize, true
}

// Encode encodes the input column of ds through sess and returns a new
// dataset with the output column added, bound to ds's session.
func (e *TextEncoder) Encode(ctx context.Context, sess *session.Session, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if err := session.Check(sess); err != nil {
		return nil, err
	}

	stage, err := sess.Bridge().NewTextEncoder(ctx)
	if err != nil {
		return nil, err
	}
	stage = stage.
		SetInputCol(e.inputCol).
		SetOutputCol(e.outputCol).
		SetModelID(e.modelID)
	if e.batchSize != nil {
		stage = stage.SetBatchSize(*e.batchSize)
	}

	result, err := stage.Encode(ctx, ds.Frame())
	if err != nil {
		return nil, err
	}
	return dataset.New(result, ds.Session()), nil
}
