package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Engine configuration
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Retry configuration for remote providers
	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert" yaml:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username string   `mapstructure:"username" yaml:"username"`
	Password string   `mapstructure:"password" yaml:"-"`
	From     string   `mapstructure:"from" yaml:"from"`
	To       []string `mapstructure:"to" yaml:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled" yaml:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests" yaml:"max_requests"`
	Interval         int     `mapstructure:"interval" yaml:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout" yaml:"timeout"`   // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio" yaml:"ready_to_trip_ratio"`
}

// RetryConfig holds backoff settings for remote embedding providers
type RetryConfig struct {
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	InitialDelay      time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" yaml:"backoff_multiplier"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path" yaml:"parquet_path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	Mode       string `mapstructure:"mode" yaml:"mode"` // gin mode: debug, release, test
	MaxRows    int    `mapstructure:"max_rows" yaml:"max_rows"`
	SessionTag string `mapstructure:"session_tag" yaml:"session_tag"`
}

// EngineConfig holds settings of the local encoding engine
type EngineConfig struct {
	// DefaultBatchSize is used when a stage has no batch size configured
	DefaultBatchSize int `mapstructure:"default_batch_size" yaml:"default_batch_size"`
	// MaxConcurrency bounds the number of batches embedded at once
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	// Normalize scales every vector to unit length
	Normalize bool `mapstructure:"normalize" yaml:"normalize"`
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	// DefaultProvider handles model ids without a provider prefix
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`
	// AllowedModels restricts the accepted model ids when non-empty
	AllowedModels []string `mapstructure:"allowed_models" yaml:"allowed_models"`
	// Dimensions is reported for models whose size cannot be queried
	Dimensions int          `mapstructure:"dimensions" yaml:"dimensions"`
	OpenAI     OpenAIConfig `mapstructure:"openai" yaml:"openai"`
}

// OpenAIConfig holds settings of the OpenAI-compatible provider
type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key" yaml:"-"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
}

// CacheConfig holds embedding cache configuration
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Path     string `mapstructure:"path" yaml:"path"`
	InMemory bool   `mapstructure:"in_memory" yaml:"in_memory"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	return LoadWith(viper.GetViper())
}

// LoadWith loads configuration from the given viper instance
func LoadWith(v *viper.Viper) (*Config, error) {
	// Set defaults
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_rows", 10000)
	v.SetDefault("server.session_tag", "textencode-server")

	// Engine defaults
	v.SetDefault("engine.default_batch_size", 32)
	v.SetDefault("engine.max_concurrency", 4)
	v.SetDefault("engine.normalize", false)

	v.SetDefault("embedding.default_provider", "embedeverything")
	v.SetDefault("embedding.dimensions", 384)

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay", time.Second)
	v.SetDefault("retry.max_delay", 60*time.Second)
	v.SetDefault("retry.backoff_multiplier", 2.0)

	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", 60)
	v.SetDefault("circuit_breaker.timeout", 30)
	v.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Cache and telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		v.SetDefault("cache.path", filepath.Join(home, ".textencode", "cache"))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && config.Embedding.OpenAI.APIKey == "" {
		config.Embedding.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" && config.Embedding.OpenAI.BaseURL == "" {
		config.Embedding.OpenAI.BaseURL = baseURL
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
