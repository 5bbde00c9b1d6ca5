package textencode

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/soundprediction/textencode/pkg/alert"
	"github.com/soundprediction/textencode/pkg/config"
	"github.com/soundprediction/textencode/pkg/embedder"
	"github.com/soundprediction/textencode/pkg/engine"
	"github.com/soundprediction/textencode/pkg/logger"
	"github.com/soundprediction/textencode/pkg/telemetry"
)

// runtime holds everything a command needs to encode text.
type runtime struct {
	logger    *slog.Logger
	telemetry *telemetry.ParquetHandler
	cache     *badger.DB
	resolver  *embedder.Resolver
	engine    *engine.Engine
}

// newLogger builds the process logger from cfg. When a telemetry path is
// configured, error records are also written to Parquet files there.
func newLogger(cfg config.LogConfig, telemetryPath string) (*slog.Logger, *telemetry.ParquetHandler, error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	case "", "text":
		handler = logger.NewColorHandler(os.Stderr, logger.Options{Level: level, Color: true})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if telemetryPath == "" {
		return slog.New(handler), nil, nil
	}
	parquetHandler, err := telemetry.NewParquetHandler(handler, telemetryPath)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(parquetHandler), parquetHandler, nil
}

// newRuntime wires the resolver, its cache, retry and circuit breaker
// wrappers, and the engine.
func newRuntime(cfg *config.Config) (*runtime, error) {
	log, parquetHandler, err := newLogger(cfg.Log, cfg.Telemetry.ParquetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	rt := &runtime{logger: log, telemetry: parquetHandler}

	opts := []embedder.ResolverOption{
		embedder.WithLogger(log),
		embedder.WithRetry(cfg.Retry),
		embedder.WithCircuitBreaker(cfg.CircuitBreaker, alert.New(cfg.Alert, log)),
	}
	if cfg.Cache.Enabled {
		db, err := embedder.OpenCache(cfg.Cache)
		if err != nil {
			log.Error("Failed to open embedding cache", "path", cfg.Cache.Path, "error", err)
			if cerr := rt.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			return nil, fmt.Errorf("failed to open embedding cache: %w", err)
		}
		rt.cache = db
		opts = append(opts, embedder.WithCache(db))
		log.Info("Embedding cache opened", "path", cfg.Cache.Path, "in_memory", cfg.Cache.InMemory)
	}

	rt.resolver = embedder.NewResolver(cfg.Embedding, opts...)
	rt.engine = engine.New(rt.resolver, cfg.Engine, engine.WithLogger(log))
	return rt, nil
}

// Close releases the models, the cache and flushes telemetry.
func (rt *runtime) Close() error {
	var errs []error
	if rt.resolver != nil {
		errs = append(errs, rt.resolver.Close())
	}
	if rt.cache != nil {
		errs = append(errs, rt.cache.Close())
	}
	if rt.telemetry != nil {
		errs = append(errs, rt.telemetry.Close())
	}
	return errors.Join(errs...)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
