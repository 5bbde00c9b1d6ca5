package textencode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundprediction/textencode/pkg/config"
	"github.com/soundprediction/textencode/pkg/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the textencode HTTP server",
	Long: `Start the textencode HTTP server to provide REST access to text encoding.

The server provides endpoints for:
- Encoding rows of JSON objects (POST /api/v1/encode)
- Health checks (/health, /ready, /live, /health/detailed)

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")
	serverCmd.Flags().Int("max-rows", 10000, "Maximum rows per encode request")

	// Engine flags
	serverCmd.Flags().Int("batch-size", 32, "Default texts per model call")
	serverCmd.Flags().Int("max-concurrency", 4, "Batches embedded at once")
	serverCmd.Flags().Bool("normalize", false, "Scale vectors to unit length")

	// Embedding flags
	serverCmd.Flags().String("embedding-provider", "embedeverything", "Provider for model ids without a prefix (embedeverything, openai)")
	serverCmd.Flags().StringSlice("allowed-models", nil, "Restrict the accepted model ids")
	serverCmd.Flags().String("openai-api-key", "", "OpenAI API key")
	serverCmd.Flags().String("openai-base-url", "", "OpenAI-compatible base URL")

	// Cache flags
	serverCmd.Flags().Bool("cache", false, "Cache embeddings in badger")
	serverCmd.Flags().String("cache-path", "", "Embedding cache directory")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for error telemetry")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	overrideConfigWithFlags(cmd, cfg)

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize encoder: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.logger.Warn("Failed to release resources", "error", err)
		}
	}()
	rt.logger.Info("Encoder initialized",
		"default_provider", cfg.Embedding.DefaultProvider,
		"providers", rt.resolver.Providers(),
		"batch_size", cfg.Engine.DefaultBatchSize,
		"max_concurrency", cfg.Engine.MaxConcurrency)

	srv := server.New(cfg, rt.engine, rt.logger)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		rt.logger.Info("Received signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		rt.logger.Info("Server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Server flags
	if flags.Changed("host") {
		cfg.Server.Host = serverHost
	}
	if flags.Changed("port") {
		cfg.Server.Port = serverPort
	}
	if flags.Changed("mode") {
		cfg.Server.Mode = serverMode
	}
	if flags.Changed("max-rows") {
		cfg.Server.MaxRows, _ = flags.GetInt("max-rows")
	}

	// Engine flags
	if flags.Changed("batch-size") {
		cfg.Engine.DefaultBatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("max-concurrency") {
		cfg.Engine.MaxConcurrency, _ = flags.GetInt("max-concurrency")
	}
	if flags.Changed("normalize") {
		cfg.Engine.Normalize, _ = flags.GetBool("normalize")
	}

	// Embedding flags
	if flags.Changed("embedding-provider") {
		cfg.Embedding.DefaultProvider, _ = flags.GetString("embedding-provider")
	}
	if flags.Changed("allowed-models") {
		cfg.Embedding.AllowedModels, _ = flags.GetStringSlice("allowed-models")
	}
	if flags.Changed("openai-api-key") {
		cfg.Embedding.OpenAI.APIKey, _ = flags.GetString("openai-api-key")
	}
	if flags.Changed("openai-base-url") {
		cfg.Embedding.OpenAI.BaseURL, _ = flags.GetString("openai-base-url")
	}

	// Cache flags
	if flags.Changed("cache") {
		cfg.Cache.Enabled, _ = flags.GetBool("cache")
	}
	if flags.Changed("cache-path") {
		cfg.Cache.Path, _ = flags.GetString("cache-path")
	}

	// Telemetry flags
	if flags.Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = flags.GetString("telemetry-parquet-path")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Engine.DefaultBatchSize <= 0 {
		return fmt.Errorf("invalid default batch size: %d", cfg.Engine.DefaultBatchSize)
	}
	if cfg.Cache.Enabled && !cfg.Cache.InMemory && cfg.Cache.Path == "" {
		return fmt.Errorf("cache path is required when the cache is enabled")
	}
	return nil
}
