package embedder

import (
	"context"
	"errors"
)

// Client generates vector embeddings for text.
type Client interface {
	// Embed returns one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the size of the vectors, or 0 when unknown.
	Dimensions() int

	// Model returns the provider-local model name.
	Model() string

	// Close releases any resources held by the client.
	Close() error
}

// ProviderID identifies an embedding provider.
type ProviderID string

const (
	// ProviderEmbedEverything runs Hugging Face models locally.
	ProviderEmbedEverything ProviderID = "embedeverything"
	// ProviderOpenAI calls an OpenAI-compatible embeddings endpoint.
	ProviderOpenAI ProviderID = "openai"
)

var (
	// ErrUnknownModel indicates the model identifier cannot be served.
	ErrUnknownModel = errors.New("unknown model")

	// ErrEmptyResponse indicates the provider returned fewer embeddings than requested.
	ErrEmptyResponse = errors.New("provider returned an incomplete response")
)

// EmbedSingle embeds a single text with c.
func EmbedSingle(ctx context.Context, c Client, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, ErrEmptyResponse
	}
	return embeddings[0], nil
}
