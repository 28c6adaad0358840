// Package config loads runtime configuration from file, environment and flags
// through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	consts "github.com/khanhnv2901/phishscope/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

// EnvPrefix prefixes every environment override, e.g. PHISHSCOPE_LLM_MODEL.
const EnvPrefix = "PHISHSCOPE"

var (
	errConcurrencyOutOfRange = errors.New("batch.concurrency must be 1-16")
	errNonPositiveTimeout    = errors.New("timeout must be positive")
	errMaxBatch              = errors.New("api.max_batch must be at least 1")
	errLogFormat             = errors.New("log.format must be json or console")
	errLogLevel              = errors.New("log.level must be debug, info, warn or error")
	errNegative              = errors.New("value must not be negative")
	errTemperature           = errors.New("llm.temperature must be between 0 and 2")
)

// Config is the fully resolved configuration.
type Config struct {
	Fetch FetchConfig `mapstructure:"fetch" yaml:"fetch"`
	TLS   TLSConfig   `mapstructure:"tls" yaml:"tls"`
	LLM   LLMConfig   `mapstructure:"llm" yaml:"llm"`
	Feed  FeedConfig  `mapstructure:"feed" yaml:"feed"`
	Batch BatchConfig `mapstructure:"batch" yaml:"batch"`
	API   APIConfig   `mapstructure:"api" yaml:"api"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

// FetchConfig controls the page title fetcher.
type FetchConfig struct {
	Timeout              time.Duration `mapstructure:"timeout" yaml:"timeout"`
	BlockPrivateNetworks bool          `mapstructure:"block_private_networks" yaml:"block_private_networks"`
}

// TLSConfig controls the TLS inspector.
type TLSConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	Port             string        `mapstructure:"port" yaml:"port"`
}

// LLMConfig controls the text-generation client.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Model       string        `mapstructure:"model" yaml:"model"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// FeedConfig controls the threat-intel feed fetcher.
type FeedConfig struct {
	URL        string        `mapstructure:"url" yaml:"url"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	Limit      int           `mapstructure:"limit" yaml:"limit"`
}

// BatchConfig controls batch execution.
type BatchConfig struct {
	Concurrency     int           `mapstructure:"concurrency" yaml:"concurrency"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout" yaml:"analysis_timeout"`
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	MaxBatch        int           `mapstructure:"max_batch" yaml:"max_batch"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers every key with its default so environment overrides
// are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("fetch.timeout", consts.DefaultFetchTimeout)
	v.SetDefault("fetch.block_private_networks", false)

	v.SetDefault("tls.handshake_timeout", consts.DefaultHandshakeTimeout)
	v.SetDefault("tls.port", consts.DefaultTLSPort)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", consts.DefaultModel)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", consts.DefaultGenerationTimeout)
	v.SetDefault("llm.max_retries", 2)

	v.SetDefault("feed.url", "")
	v.SetDefault("feed.timeout", consts.DefaultFeedTimeout)
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.limit", 0)

	v.SetDefault("batch.concurrency", consts.DefaultBatchConcurrency)
	v.SetDefault("batch.rate_limit", 0)
	v.SetDefault("batch.analysis_timeout", consts.DefaultAnalysisTimeout)

	v.SetDefault("api.addr", "127.0.0.1:8080")
	v.SetDefault("api.max_batch", consts.DefaultMaxBatch)
	v.SetDefault("api.cors_origins", []string{})
	v.SetDefault("api.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// BindEnv enables PHISHSCOPE_* overrides and accepts OPENAI_API_KEY for the
// generation key.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return fmt.Errorf("bind llm.api_key: %w", err)
	}
	return nil
}

// New returns a viper instance with defaults and environment bindings.
func New() (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	var errs []error

	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > consts.MaxBatchConcurrency {
		errs = append(errs, fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.Batch.Concurrency))
	}
	for name, d := range map[string]time.Duration{
		"fetch.timeout":          c.Fetch.Timeout,
		"tls.handshake_timeout":  c.TLS.HandshakeTimeout,
		"llm.timeout":            c.LLM.Timeout,
		"feed.timeout":           c.Feed.Timeout,
		"batch.analysis_timeout": c.Batch.AnalysisTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: %w: got %s", name, errNonPositiveTimeout, d))
		}
	}
	if c.API.MaxBatch < 1 {
		errs = append(errs, fmt.Errorf("%w: got %d", errMaxBatch, c.API.MaxBatch))
	}
	for name, n := range map[string]float64{
		"llm.max_retries":  float64(c.LLM.MaxRetries),
		"llm.max_tokens":   float64(c.LLM.MaxTokens),
		"feed.max_retries": float64(c.Feed.MaxRetries),
		"feed.limit":       float64(c.Feed.Limit),
		"batch.rate_limit": c.Batch.RateLimit,
	} {
		if n < 0 {
			errs = append(errs, fmt.Errorf("%s: %w", name, errNegative))
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("%w: got %v", errTemperature, c.LLM.Temperature))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", errLogFormat, c.Log.Format))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", errLogLevel, c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", sharedErrors.ErrValidation, errors.Join(errs...))
	}
	return nil
}

// GenerationEnabled reports whether an API key is configured.
func (c Config) GenerationEnabled() bool {
	return c.LLM.APIKey != ""
}
