package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	analysisapp "github.com/khanhnv2901/phishscope/internal/application/analysis"
	"github.com/khanhnv2901/phishscope/internal/checker"
	"github.com/khanhnv2901/phishscope/internal/config"
	"github.com/khanhnv2901/phishscope/internal/feed"
	"github.com/khanhnv2901/phishscope/internal/llm"
	"github.com/khanhnv2901/phishscope/internal/metrics"
)

// Container holds all application services
// This is a simple dependency injection container
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Gathering steps and generation
	Titles    *checker.TitleFetcher
	TLS       *checker.TLSInspector
	Generator llm.Generator
	Feed      *feed.Fetcher

	// Services
	Orchestrator *analysisapp.Orchestrator
	Runner       *analysisapp.Runner
	Health       *Health
}

// NewContainer wires every service from cfg. A nil logger discards output.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.New()

	titles := checker.NewTitleFetcher(checker.TitleFetcherOptions{
		Timeout:              cfg.Fetch.Timeout,
		BlockPrivateNetworks: cfg.Fetch.BlockPrivateNetworks,
		Logger:               logger.Named("title"),
	})
	inspector := checker.NewTLSInspector(checker.TLSInspectorOptions{
		HandshakeTimeout:     cfg.TLS.HandshakeTimeout,
		Port:                 cfg.TLS.Port,
		BlockPrivateNetworks: cfg.Fetch.BlockPrivateNetworks,
		Logger:               logger.Named("tls"),
	})

	generator, err := newGenerator(cfg, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	feedFetcher := feed.NewFetcher(feed.Options{
		URL:        cfg.Feed.URL,
		Timeout:    cfg.Feed.Timeout,
		MaxRetries: cfg.Feed.MaxRetries,
		Limit:      cfg.Feed.Limit,
		Logger:     logger.Named("feed"),
	})

	orchestrator := analysisapp.NewOrchestrator(titles, inspector, generator, m, logger.Named("analysis"))
	runner := analysisapp.NewRunner(orchestrator, analysisapp.RunnerOptions{
		Concurrency:     cfg.Batch.Concurrency,
		RateLimit:       cfg.Batch.RateLimit,
		AnalysisTimeout: cfg.Batch.AnalysisTimeout,
		Metrics:         m,
		Logger:          logger.Named("batch"),
	})

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		Titles:       titles,
		TLS:          inspector,
		Generator:    generator,
		Feed:         feedFetcher,
		Orchestrator: orchestrator,
		Runner:       runner,
		Health:       &Health{generationEnabled: cfg.GenerationEnabled()},
	}, nil
}

// newGenerator returns the OpenAI client when a key is configured and the
// disabled generator otherwise.
func newGenerator(cfg *config.Config, logger *zap.Logger) (llm.Generator, error) {
	if !cfg.GenerationEnabled() {
		logger.Warn("no API key configured, text generation disabled")
		return llm.DisabledGenerator{}, nil
	}
	retry := llm.DefaultRetryConfig()
	retry.MaxAttempts = cfg.LLM.MaxRetries + 1
	return llm.NewOpenAIGenerator(llm.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		Retry:       retry,
		Logger:      logger,
	})
}

// Health backs the liveness and readiness endpoints.
type Health struct {
	generationEnabled bool
	draining          atomic.Bool
}

// Check always succeeds while the process is serving.
func (h *Health) Check(context.Context) error { return nil }

// Ready fails once Drain has been called.
func (h *Health) Ready(context.Context) error {
	if h.draining.Load() {
		return errors.New("server is shutting down")
	}
	return nil
}

// Drain marks the service as not ready.
func (h *Health) Drain() { h.draining.Store(true) }

// GenerationEnabled reports whether analyses can produce narratives.
func (h *Health) GenerationEnabled() bool { return h.generationEnabled }
