// Package bridgetest provides a recording Bridge for tests.
package bridgetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/soundprediction/textencode/pkg/bridge"
	"github.com/soundprediction/textencode/pkg/frame"
)

// Call is one recorded method call on a Stage.
type Call struct {
	Method string
	Arg    any
}

// Bridge hands out recording stages and keeps every stage it created.
type Bridge struct {
	// NewErr, when set, is returned by NewTextEncoder.
	NewErr error
	// EncodeErr, when set, is returned by every stage's Encode.
	EncodeErr error
	// Dimensions is the length of the vectors the stages emit. Defaults to 3.
	Dimensions int

	mu     sync.Mutex
	stages []*Stage
}

var _ bridge.Bridge = (*Bridge)(nil)

// NewTextEncoder implements bridge.Bridge.
func (b *Bridge) NewTextEncoder(ctx context.Context) (bridge.TextEncoderStage, error) {
	if b.NewErr != nil {
		return nil, b.NewErr
	}
	dims := b.Dimensions
	if dims <= 0 {
		dims = 3
	}
	s := &Stage{encodeErr: b.EncodeErr, dims: dims}

	b.mu.Lock()
	b.stages = append(b.stages, s)
	b.mu.Unlock()
	return s, nil
}

// Extensions implements bridge.Bridge.
func (b *Bridge) Extensions() []string {
	if b.NewErr != nil {
		return nil
	}
	return []string{bridge.ExtensionTextEncoder}
}

// Stages returns the stages created so far.
func (b *Bridge) Stages() []*Stage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Stage, len(b.stages))
	copy(out, b.stages)
	return out
}

// Stage records setter and Encode calls. Encode emits one constant vector per
// row under the configured output column.
type Stage struct {
	encodeErr error
	dims      int

	mu        sync.Mutex
	calls     []Call
	inputCol  string
	outputCol string
}

var _ bridge.TextEncoderStage = (*Stage)(nil)

func (s *Stage) record(method string, arg any) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Arg: arg})
	s.mu.Unlock()
}

func (s *Stage) SetInputCol(name string) bridge.TextEncoderStage {
	s.record("SetInputCol", name)
	s.inputCol = name
	return s
}

func (s *Stage) SetOutputCol(name string) bridge.TextEncoderStage {
	s.record("SetOutputCol", name)
	s.outputCol = name
	return s
}

func (s *Stage) SetModelID(modelID string) bridge.TextEncoderStage {
	s.record("SetModelID", modelID)
	return s
}

func (s *Stage) SetBatchSize(size int) bridge.TextEncoderStage {
	s.record("SetBatchSize", size)
	return s
}

func (s *Stage) Encode(ctx context.Context, in *frame.Frame) (*frame.Frame, error) {
	s.record("Encode", in)
	if s.encodeErr != nil {
		return nil, s.encodeErr
	}
	texts, err := in.Strings(s.inputCol)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, s.dims)
		for j := range vec {
			vec[j] = float32(len(text))
		}
		vectors[i] = vec
	}
	return in.WithColumn(frame.VectorColumn(s.outputCol, vectors...))
}

// Calls returns the recorded calls in order.
func (s *Stage) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the recorded calls to method.
func (s *Stage) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// String summarizes the call log, handy in assertion messages.
func (s *Stage) String() string {
	return fmt.Sprintf("%v", s.Calls())
}
