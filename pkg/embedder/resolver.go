package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/soundprediction/textencode/pkg/alert"
	"github.com/soundprediction/textencode/pkg/config"
)

// Factory creates a client for a provider-local model name.
type Factory func(ctx context.Context, model string) (Client, error)

// Resolver maps model identifiers to clients. Each identifier is loaded once
// and shared by every caller until Close.
type Resolver struct {
	cfg       config.EmbeddingConfig
	retry     *config.RetryConfig
	breaker   *config.CircuitBreakerConfig
	alerter   alert.Alerter
	cache     *badger.DB
	logger    *slog.Logger
	factories map[ProviderID]Factory

	mu      sync.Mutex
	clients map[string]Client
	loading map[string]*pendingLoad
}

// pendingLoad is a model load in progress. done is closed once client and
// err are set.
type pendingLoad struct {
	done   chan struct{}
	client Client
	err    error
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRetry wraps remote clients in a RetryClient.
func WithRetry(cfg config.RetryConfig) ResolverOption {
	return func(r *Resolver) { r.retry = &cfg }
}

// WithCircuitBreaker wraps remote clients in a CircuitBreakerClient when cfg.Enabled is set.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig, alerter alert.Alerter) ResolverOption {
	return func(r *Resolver) {
		if cfg.Enabled {
			r.breaker = &cfg
			r.alerter = alerter
		}
	}
}

// WithCache serves every client through a CachedClient backed by db.
func WithCache(db *badger.DB) ResolverOption {
	return func(r *Resolver) { r.cache = db }
}

// WithFactory registers or replaces the factory for a provider.
func WithFactory(provider ProviderID, f Factory) ResolverOption {
	return func(r *Resolver) { r.factories[provider] = f }
}

// NewResolver creates a resolver with the embedeverything and openai providers.
func NewResolver(cfg config.EmbeddingConfig, opts ...ResolverOption) *Resolver {
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = string(ProviderEmbedEverything)
	}

	r := &Resolver{
		cfg:     cfg,
		logger:  slog.Default(),
		clients: make(map[string]Client),
		loading: make(map[string]*pendingLoad),
	}
	r.factories = map[ProviderID]Factory{
		ProviderEmbedEverything: func(ctx context.Context, model string) (Client, error) {
			return NewEmbedEverythingClient(model, cfg.Dimensions)
		},
		ProviderOpenAI: func(ctx context.Context, model string) (Client, error) {
			return NewOpenAIClient(OpenAIConfig{
				APIKey:     cfg.OpenAI.APIKey,
				BaseURL:    cfg.OpenAI.BaseURL,
				Model:      model,
				Dimensions: cfg.OpenAI.Dimensions,
			}), nil
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseModelID splits an identifier into provider and model. Identifiers
// without a known "<provider>:" prefix belong to defaultProvider.
func ParseModelID(modelID string, defaultProvider ProviderID) (ProviderID, string) {
	if prefix, model, ok := strings.Cut(modelID, ":"); ok && prefix != "" && !strings.Contains(prefix, "/") {
		return ProviderID(prefix), model
	}
	return defaultProvider, modelID
}

// Resolve returns the client for modelID, loading it on first use.
func (r *Resolver) Resolve(ctx context.Context, modelID string) (Client, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, fmt.Errorf("%w: empty model identifier", ErrUnknownModel)
	}
	if len(r.cfg.AllowedModels) > 0 && !slices.Contains(r.cfg.AllowedModels, modelID) {
		return nil, fmt.Errorf("%w: %s is not in the allowed model list", ErrUnknownModel, modelID)
	}

	provider, model := ParseModelID(modelID, ProviderID(r.cfg.DefaultProvider))
	factory, ok := r.factories[provider]
	if !ok {
		return nil, fmt.Errorf("%w: no provider %q for %s", ErrUnknownModel, provider, modelID)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: missing model name in %s", ErrUnknownModel, modelID)
	}

	r.mu.Lock()
	if client, ok := r.clients[modelID]; ok {
		r.mu.Unlock()
		return client, nil
	}
	pending, inFlight := r.loading[modelID]
	if !inFlight {
		pending = &pendingLoad{done: make(chan struct{})}
		r.loading[modelID] = pending
	}
	r.mu.Unlock()

	// The first caller loads; later callers for the same id wait for it.
	if !inFlight {
		r.load(ctx, pending, factory, provider, modelID, model)
	}

	select {
	case <-pending.done:
		return pending.client, pending.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs factory without holding r.mu and publishes the result.
func (r *Resolver) load(ctx context.Context, pending *pendingLoad, factory Factory, provider ProviderID, modelID, model string) {
	r.logger.Info("Loading embedding model", "model_id", modelID, "provider", provider)
	client, err := factory(ctx, model)
	if err != nil {
		err = fmt.Errorf("failed to load model %s: %w", modelID, err)
	} else {
		client = r.wrap(provider, modelID, client)
	}

	r.mu.Lock()
	delete(r.loading, modelID)
	if err == nil {
		r.clients[modelID] = client
	}
	r.mu.Unlock()

	pending.client, pending.err = client, err
	close(pending.done)
}

func (r *Resolver) wrap(provider ProviderID, modelID string, client Client) Client {
	remote := provider != ProviderEmbedEverything
	if remote && r.retry != nil {
		client = NewRetryClient(client, *r.retry, r.logger)
	}
	if remote && r.breaker != nil {
		client = NewCircuitBreakerClient(client, *r.breaker, r.alerter, "embedder:"+modelID, r.logger)
	}
	if r.cache != nil {
		client = NewCachedClient(client, r.cache, modelID)
	}
	return client
}

// Loaded returns the identifiers of the models loaded so far.
func (r *Resolver) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Providers returns the registered provider ids.
func (r *Resolver) Providers() []ProviderID {
	ids := make([]ProviderID, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close closes every loaded client.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, client := range r.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", id, err))
		}
		delete(r.clients, id)
	}
	return errors.Join(errs...)
}
