package embedder

import (
	"context"
	"sync"
)

// fakeClient returns len(text) repeated dims times and records every batch.
type fakeClient struct {
	model string
	dims  int
	errs  []error

	mu      sync.Mutex
	batches [][]string
	closed  bool
}

func newFakeClient(model string) *fakeClient {
	return &fakeClient{model: model, dims: 2}
}

func (f *fakeClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, append([]string(nil), texts...))
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dims)
		for j := range vec {
			vec[j] = float32(len(text))
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeClient) Dimensions() int { return f.dims }
func (f *fakeClient) Model() string   { return f.model }

func (f *fakeClient) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}
