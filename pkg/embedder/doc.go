// Package embedder provides text embedding clients used by the encoding engine.
//
// This package defines the Client interface and implementations backed by
// local Hugging Face models (go-embedeverything) and OpenAI-compatible APIs.
//
// # Model Identifiers
//
// A model identifier optionally carries a provider prefix:
//
//	all-MiniLM-L6-v2                       // default provider (embedeverything)
//	sentence-transformers/all-mpnet-base-v2
//	openai:text-embedding-3-small          // OpenAI provider
//
// The Resolver turns identifiers into clients, loads each model once and
// wraps remote clients with retries, a circuit breaker and an optional
// badger-backed cache.
//
// # Usage
//
//	resolver := embedder.NewResolver(cfg.Embedding, embedder.WithCache(db))
//	defer resolver.Close()
//
//	client, err := resolver.Resolve(ctx, "openai:text-embedding-3-small")
//	embeddings, err := client.Embed(ctx, []string{"hello world"})
package embedder
