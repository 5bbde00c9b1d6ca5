package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/soundprediction/textencode/pkg/bridge"
	"github.com/soundprediction/textencode/pkg/config"
	"github.com/soundprediction/textencode/pkg/embedder"
)

// ModelResolver turns model identifiers into embedding clients.
type ModelResolver interface {
	Resolve(ctx context.Context, modelID string) (embedder.Client, error)
}

// Engine implements bridge.Bridge on top of a ModelResolver.
type Engine struct {
	resolver   ModelResolver
	cfg        config.EngineConfig
	logger     *slog.Logger
	extensions []string

	rowsEncoded    atomic.Int64
	batchesEncoded atomic.Int64
	failures       atomic.Int64
}

var _ bridge.Bridge = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithExtensions overrides the set of stages the engine can construct.
func WithExtensions(names ...string) Option {
	return func(e *Engine) {
		e.extensions = slices.Clone(names)
	}
}

// New creates an engine. Zero config values fall back to a batch size of 32
// and a concurrency of 4.
func New(resolver ModelResolver, cfg config.EngineConfig, opts ...Option) *Engine {
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = 32
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}

	e := &Engine{
		resolver:   resolver,
		cfg:        cfg,
		logger:     slog.Default(),
		extensions: []string{bridge.ExtensionTextEncoder},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewTextEncoder implements bridge.Bridge.
func (e *Engine) NewTextEncoder(ctx context.Context) (bridge.TextEncoderStage, error) {
	if !slices.Contains(e.extensions, bridge.ExtensionTextEncoder) {
		return nil, fmt.Errorf("%w: %s", bridge.ErrExtensionNotRegistered, bridge.ExtensionTextEncoder)
	}
	return &TextEncoder{engine: e}, nil
}

// Extensions implements bridge.Bridge.
func (e *Engine) Extensions() []string {
	return slices.Clone(e.extensions)
}

// Stats is a snapshot of the engine counters.
type Stats struct {
	RowsEncoded    int64 `json:"rows_encoded"`
	BatchesEncoded int64 `json:"batches_encoded"`
	Failures       int64 `json:"failures"`
}

// Stats returns the counters accumulated since the engine was created.
func (e *Engine) Stats() Stats {
	return Stats{
		RowsEncoded:    e.rowsEncoded.Load(),
		BatchesEncoded: e.batchesEncoded.Load(),
		Failures:       e.failures.Load(),
	}
}
