// Package bridge defines the capability interface between host-side dataset
// handles and the engine that actually runs pipeline stages.
//
// Callers never construct engine objects directly. They ask a Bridge for a
// stage, configure it through its setters and hand it an engine-native frame.
// Any engine that implements these interfaces can be plugged into a session,
// which is how tests substitute a recording fake for the real engine.
package bridge

import (
	"context"
	"errors"

	"github.com/soundprediction/textencode/pkg/frame"
)

// ExtensionTextEncoder is the extension name of the sentence encoding stage.
const ExtensionTextEncoder = "text_encoder"

// ErrExtensionNotRegistered is returned by a Bridge that cannot load the
// requested stage.
var ErrExtensionNotRegistered = errors.New("extension not registered")

// Bridge constructs engine-side pipeline stages.
type Bridge interface {
	// NewTextEncoder constructs a fresh, unconfigured text encoding stage.
	NewTextEncoder(ctx context.Context) (TextEncoderStage, error)

	// Extensions lists the names of the stages this bridge can construct.
	Extensions() []string
}

// TextEncoderStage is the engine-side text encoder. Setters follow the
// builder style and return the stage so calls can be chained. Values are not
// validated until Encode runs.
type TextEncoderStage interface {
	SetInputCol(name string) TextEncoderStage
	SetOutputCol(name string) TextEncoderStage
	SetModelID(modelID string) TextEncoderStage
	SetBatchSize(size int) TextEncoderStage

	// Encode reads the input column of in and returns a new frame with the
	// output column added. It may block for as long as the engine needs.
	Encode(ctx context.Context, in *frame.Frame) (*frame.Frame, error)
}
