// Package analysis runs the per-URL analysis pipeline and batches of it.
package analysis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/phishscope/internal/checker"
	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
	"github.com/khanhnv2901/phishscope/internal/llm"
	"github.com/khanhnv2901/phishscope/internal/metrics"
	"github.com/khanhnv2901/phishscope/internal/prompt"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

// Pipeline states, logged as each step finishes.
const (
	StateStart             = "start"
	StateDecomposed        = "decomposed"
	StateTitleFetched      = "title_fetched"
	StateTLSChecked        = "tls_checked"
	StatePromptComposed    = "prompt_composed"
	StateAnalysisRequested = "analysis_requested"
	StateCompleted         = "completed"
	StateFailed            = "failed"
)

// TitleFetcher retrieves a page title. Failures are returned as data.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, url string) domain.PageTitleResult
}

// TLSInspector reports the TLS status of a URL. Failures are returned as data.
type TLSInspector interface {
	Inspect(ctx context.Context, url string) domain.TLSStatus
}

// Analyzer analyses a single URL.
type Analyzer interface {
	Analyze(ctx context.Context, url string) domain.AnalysisResult
}

// Orchestrator sequences the gathering steps and the generation call for one
// URL and aggregates them into an AnalysisResult.
type Orchestrator struct {
	titles    TitleFetcher
	inspector TLSInspector
	generator llm.Generator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewOrchestrator creates a new analysis orchestrator. metrics and logger may
// be nil.
func NewOrchestrator(
	titles TitleFetcher,
	inspector TLSInspector,
	generator llm.Generator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		titles:    titles,
		inspector: inspector,
		generator: generator,
		metrics:   m,
		logger:    logger,
	}
}

// Analyze runs the pipeline for one URL. Title and TLS failures are recorded
// in the result and never stop the pipeline; only a failed generation call
// sets Error. The result never carries a Go error.
func (o *Orchestrator) Analyze(ctx context.Context, url string) domain.AnalysisResult {
	result := domain.AnalysisResult{URL: url}
	log := o.logger.With(zap.String("url", url))

	if ctx.Err() != nil {
		return o.cancelled(result, log)
	}
	log.Debug("analysis state", zap.String("state", StateStart))

	result.Components = checker.Decompose(url)
	log.Debug("analysis state", zap.String("state", StateDecomposed),
		zap.String("host", result.Components.Host))

	result.PageTitle = o.titles.FetchTitle(ctx, url)
	if result.PageTitle.Failed() {
		o.metrics.ObserveTitleFailure()
	}
	log.Debug("analysis state", zap.String("state", StateTitleFetched),
		zap.Bool("title_failed", result.PageTitle.Failed()))

	result.TLSStatus = o.inspector.Inspect(ctx, url)
	o.metrics.ObserveTLSStatus(string(result.TLSStatus.Kind()))
	log.Debug("analysis state", zap.String("state", StateTLSChecked),
		zap.String("tls_status", string(result.TLSStatus.Kind())))

	text := prompt.Compose(url, result.Components, result.PageTitle, result.TLSStatus)
	log.Debug("analysis state", zap.String("state", StatePromptComposed), zap.Int("prompt_bytes", len(text)))

	log.Debug("analysis state", zap.String("state", StateAnalysisRequested))
	start := time.Now()
	narrative, err := o.generator.Generate(ctx, text)
	latency := time.Since(start)
	result.AnalysisLatency = domain.DurationFrom(latency)
	o.metrics.ObserveGeneration(latency, err == nil)

	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return o.cancelled(result, log)
		}
		// A deadline is a generation timeout, not a caller cancellation.
		if llm.KindOf(err) == "" && errors.Is(err, context.DeadlineExceeded) {
			err = &llm.GenerationError{Kind: llm.KindTimeout, Err: err}
		}
		result.Fail(err.Error())
		o.metrics.ObserveAnalysis(metrics.OutcomeFailed)
		log.Debug("analysis state", zap.String("state", StateFailed),
			zap.Duration("latency", latency), zap.Error(err))
		return result
	}

	result.Complete(narrative)
	o.metrics.ObserveAnalysis(metrics.OutcomeCompleted)
	log.Debug("analysis state", zap.String("state", StateCompleted), zap.Duration("latency", latency))
	return result
}

func (o *Orchestrator) cancelled(result domain.AnalysisResult, log *zap.Logger) domain.AnalysisResult {
	result.Fail(sharedErrors.ErrAnalysisCancelled.Error())
	o.metrics.ObserveAnalysis(metrics.OutcomeCancelled)
	log.Debug("analysis state", zap.String("state", StateFailed), zap.String("reason", "cancelled"))
	return result
}
