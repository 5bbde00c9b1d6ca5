package embedder

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/soundprediction/go-embedeverything/pkg/embedder"
)

// EmbedEverythingClient implements the Client interface for EmbedEverything.
type EmbedEverythingClient struct {
	client     *embedder.Embedder
	model      string
	dimensions atomic.Int64
}

// NewEmbedEverythingClient loads the Hugging Face model identified by model.
// dimensions is reported by Dimensions until the first embedding is produced.
func NewEmbedEverythingClient(model string, dimensions int) (*EmbedEverythingClient, error) {
	client, err := embedder.NewEmbedder(model)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder for %s: %w", model, err)
	}

	c := &EmbedEverythingClient{
		client: client,
		model:  model,
	}
	c.dimensions.Store(int64(dimensions))
	return c, nil
}

// Embed generates embeddings for the given texts.
func (e *EmbedEverythingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	// go-embedeverything does not support context yet
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings, err := e.client.Embed(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmptyResponse, len(embeddings), len(texts))
	}
	if len(embeddings[0]) > 0 {
		e.dimensions.Store(int64(len(embeddings[0])))
	}
	return embeddings, nil
}

// Dimensions returns the number of dimensions in the embeddings.
func (e *EmbedEverythingClient) Dimensions() int {
	return int(e.dimensions.Load())
}

// Model returns the Hugging Face model id.
func (e *EmbedEverythingClient) Model() string {
	return e.model
}

// Close cleans up any resources.
func (e *EmbedEverythingClient) Close() error {
	e.client.Close()
	return nil
}
