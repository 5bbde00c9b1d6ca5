package embedder

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Known output sizes of OpenAI embedding models.
var openAIDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions requests shortened vectors from models that support it.
	Dimensions int
}

// OpenAIClient implements Client against an OpenAI-compatible embeddings API.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	dimensions int
	request    int
}

// NewOpenAIClient creates a new OpenAI embeddings client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = openAIDimensions[cfg.Model]
	}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: dims,
		request:    cfg.Dimensions,
	}
}

// Embed generates embeddings for the given texts in one request.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: c.request,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmptyResponse, len(resp.Data), len(texts))
	}

	// The API reports an index per item; do not rely on response order.
	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmptyResponse, item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, fmt.Errorf("%w: missing embedding for text %d", ErrEmptyResponse, i)
		}
	}
	return embeddings, nil
}

// Dimensions returns the configured or known vector size.
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}

// Model returns the OpenAI model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Close is a no-op for HTTP clients.
func (c *OpenAIClient) Close() error {
	return nil
}
