package analysis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
	"github.com/khanhnv2901/phishscope/internal/metrics"
	consts "github.com/khanhnv2901/phishscope/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

// ResultFunc is called once per URL as its analysis finishes. Calls are
// serialised by the Runner.
type ResultFunc func(index int, result domain.AnalysisResult)

// FeedSource supplies the URLs for a feed run.
type FeedSource interface {
	FetchResult(ctx context.Context) domain.FeedResult
}

// FeedRun is the outcome of analysing a feed. FeedError is set when the feed
// could not be read, in which case Results is empty.
type FeedRun struct {
	FeedError string             `json:"feed_error,omitempty" yaml:"feed_error,omitempty"`
	URLs      []string           `json:"urls" yaml:"urls"`
	Results   domain.BatchResult `json:"results" yaml:"results"`
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Concurrency     int           // maximum in-flight analyses
	RateLimit       float64       // analyses started per second, 0 disables
	AnalysisTimeout time.Duration // per URL
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

// Runner orchestrates batch analysis with bounded concurrency and an optional
// outbound rate limit.
type Runner struct {
	analyzer    Analyzer
	concurrency int
	limiter     *rate.Limiter
	timeout     time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewRunner creates a batch runner around analyzer.
func NewRunner(analyzer Analyzer, opts RunnerOptions) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = consts.DefaultBatchConcurrency
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = consts.DefaultAnalysisTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Runner{
		analyzer:    analyzer,
		concurrency: opts.Concurrency,
		limiter:     limiter,
		timeout:     opts.AnalysisTimeout,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
}

// Analyze runs a single URL under the runner's per-URL timeout.
func (r *Runner) Analyze(ctx context.Context, url string) domain.AnalysisResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.analyzer.Analyze(ctx, url)
}

// RunBatch analyses urls and returns one result per URL in input order.
func (r *Runner) RunBatch(ctx context.Context, urls []string) domain.BatchResult {
	return r.RunBatchWithProgress(ctx, urls, nil)
}

// RunBatchWithProgress is RunBatch with a per-result callback. Each task
// writes only its own slot. Once ctx is cancelled no further analyses are
// started and the remaining slots are filled with a cancellation error;
// analyses already running finish or hit their own timeout.
func (r *Runner) RunBatchWithProgress(ctx context.Context, urls []string, onResult ResultFunc) domain.BatchResult {
	results := make(domain.BatchResult, len(urls))
	issued := make([]bool, len(urls))

	var mu sync.Mutex
	report := func(i int, res domain.AnalysisResult) {
		if onResult == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onResult(i, res)
	}

	// Plain group: one URL's failure must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, url := range urls {
		if ctx.Err() != nil {
			break
		}
		issued[i] = true
		g.Go(func() error {
			r.metrics.BatchStarted()
			defer r.metrics.BatchFinished()

			if r.limiter != nil {
				if err := r.limiter.Wait(ctx); err != nil {
					results[i] = cancelledResult(url)
					report(i, results[i])
					return nil
				}
			}

			results[i] = r.Analyze(ctx, url)
			report(i, results[i])
			return nil
		})
	}
	_ = g.Wait()

	skipped := 0
	for i, url := range urls {
		if !issued[i] {
			results[i] = cancelledResult(url)
			report(i, results[i])
			r.metrics.ObserveAnalysis(metrics.OutcomeCancelled)
			skipped++
		}
	}
	if skipped > 0 {
		r.logger.Info("batch cancelled", zap.Int("skipped", skipped), zap.Int("total", len(urls)))
	}

	summary := results.Summary()
	r.logger.Info("batch finished",
		zap.Int("total", summary.Total),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
	)
	return results
}

// RunFeed fetches the feed and analyses every URL it lists. A feed failure
// yields an empty batch and the error text.
func (r *Runner) RunFeed(ctx context.Context, source FeedSource) FeedRun {
	feed := source.FetchResult(ctx)
	r.metrics.ObserveFeedFetch(feed.Error == "")
	if feed.Error != "" {
		r.logger.Warn("feed unavailable", zap.String("error", feed.Error))
		return FeedRun{FeedError: feed.Error, URLs: []string{}, Results: domain.BatchResult{}}
	}
	return FeedRun{URLs: feed.URLs, Results: r.RunBatch(ctx, feed.URLs)}
}

func cancelledResult(url string) domain.AnalysisResult {
	res := domain.AnalysisResult{URL: url}
	res.Fail(sharedErrors.ErrAnalysisCancelled.Error())
	return res
}
