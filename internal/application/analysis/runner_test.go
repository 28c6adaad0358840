package analysis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
	"github.com/khanhnv2901/phishscope/internal/llm"
	"github.com/khanhnv2901/phishscope/internal/llm/testutil"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

func TestRunBatch_OrderAndIsolation(t *testing.T) {
	gen := &testutil.MockGenerator{Func: func(p string) (string, error) {
		if slices.Contains(strings.Split(p, "\n"), "URL: not a url") {
			return "", &llm.GenerationError{Kind: llm.KindRejected, StatusCode: 400, Err: errors.New("bad prompt")}
		}
		return "analysed", nil
	}}
	o, _, _ := newStubOrchestrator(t, gen)
	r := NewRunner(o, RunnerOptions{Concurrency: 3, Logger: zaptest.NewLogger(t)})

	urls := []string{"https://good.example", "not a url", "https://unreachable.invalid"}
	results := r.RunBatch(context.Background(), urls)

	require.Len(t, results, 3)
	for i, u := range urls {
		assert.Equal(t, u, results[i].URL)
	}

	assert.False(t, results[0].Failed())
	assert.Equal(t, domain.TLSSecure, results[0].TLSStatus.Kind())

	assert.True(t, results[1].Failed())
	assert.Empty(t, results[1].Components.Host)
	assert.Equal(t, domain.TLSNotSecure, results[1].TLSStatus.Kind())

	assert.False(t, results[2].Failed())
	assert.True(t, results[2].PageTitle.Failed())
	assert.Equal(t, domain.TLSFailed, results[2].TLSStatus.Kind())

	summary := results.Summary()
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunBatch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	gen := &testutil.MockGenerator{Func: func(string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return "ok", nil
	}}
	o, _, _ := newStubOrchestrator(t, gen)
	r := NewRunner(o, RunnerOptions{Concurrency: 2})

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = "http://host.example/" + string(rune('a'+i))
	}
	results := r.RunBatch(context.Background(), urls)

	require.Len(t, results, 10)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	for i, u := range urls {
		assert.Equal(t, u, results[i].URL)
		assert.False(t, results[i].Failed())
	}
}

func TestRunBatch_CancelStopsIssuing(t *testing.T) {
	gen := &testutil.MockGenerator{Response: "ok"}
	o, _, _ := newStubOrchestrator(t, gen)
	r := NewRunner(o, RunnerOptions{Concurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := map[int]bool{}
	urls := []string{"http://a.example", "http://b.example", "http://c.example", "http://d.example"}
	results := r.RunBatchWithProgress(ctx, urls, func(i int, _ domain.AnalysisResult) {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
		if i == 0 {
			cancel()
		}
	})

	require.Len(t, results, 4)
	assert.False(t, results[0].Failed())
	for i := 1; i < len(urls); i++ {
		require.NotNil(t, results[i].Error, "slot %d", i)
		assert.Equal(t, sharedErrors.ErrAnalysisCancelled.Error(), *results[i].Error)
		assert.Equal(t, urls[i], results[i].URL)
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 1, gen.CallCount())
}

func TestRunBatch_Empty(t *testing.T) {
	o, _, _ := newStubOrchestrator(t, &testutil.MockGenerator{})
	results := NewRunner(o, RunnerOptions{}).RunBatch(context.Background(), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRunBatch_RateLimited(t *testing.T) {
	gen := &testutil.MockGenerator{Response: "ok"}
	o, _, _ := newStubOrchestrator(t, gen)
	r := NewRunner(o, RunnerOptions{Concurrency: 4, RateLimit: 20})

	urls := []string{"http://a.example", "http://b.example", "http://c.example"}
	results := r.RunBatch(context.Background(), urls)
	require.Len(t, results, 3)
	assert.Equal(t, 3, gen.CallCount())
}

type stubFeed struct {
	result domain.FeedResult
}

func (s stubFeed) FetchResult(context.Context) domain.FeedResult { return s.result }

func TestRunFeed(t *testing.T) {
	gen := &testutil.MockGenerator{Response: "ok"}
	o, _, _ := newStubOrchestrator(t, gen)
	r := NewRunner(o, RunnerOptions{Concurrency: 2})

	run := r.RunFeed(context.Background(), stubFeed{result: domain.FeedResult{URLs: []string{"https://good.example", "http://b.example"}}})
	assert.Empty(t, run.FeedError)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "https://good.example", run.Results[0].URL)

	failed := r.RunFeed(context.Background(), stubFeed{result: domain.FeedResult{URLs: []string{}, Error: "feed down"}})
	assert.Equal(t, "feed down", failed.FeedError)
	assert.Empty(t, failed.Results)
	assert.Equal(t, 2, gen.CallCount())
}

// blockingGenerator waits for the context to end and reports a timeout the
// way OpenAIGenerator does.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", &llm.GenerationError{Kind: llm.KindTimeout, Err: ctx.Err()}
}

func TestRunBatch_AnalysisTimeoutIsGenerationFailure(t *testing.T) {
	o, _, _ := newStubOrchestrator(t, blockingGenerator{})
	r := NewRunner(o, RunnerOptions{Concurrency: 1, AnalysisTimeout: 50 * time.Millisecond})

	results := r.RunBatch(context.Background(), []string{"https://good.example"})

	require.Len(t, results, 1)
	require.NotNil(t, results[0].Error)
	assert.NotEqual(t, sharedErrors.ErrAnalysisCancelled.Error(), *results[0].Error)
	assert.Contains(t, *results[0].Error, string(llm.KindTimeout))
	assert.Equal(t, domain.TLSSecure, results[0].TLSStatus.Kind())
}

func TestRunBatch_BareDeadlineErrorReportedAsTimeout(t *testing.T) {
	gen := &testutil.MockGenerator{Func: func(string) (string, error) {
		time.Sleep(100 * time.Millisecond)
		return "", context.DeadlineExceeded
	}}
	o, _, _ := newStubOrchestrator(t, gen)
	r := NewRunner(o, RunnerOptions{Concurrency: 1, AnalysisTimeout: 20 * time.Millisecond})

	results := r.RunBatch(context.Background(), []string{"http://a.example"})

	require.Len(t, results, 1)
	require.NotNil(t, results[0].Error)
	assert.Equal(t, "text generation failed (timeout): context deadline exceeded", *results[0].Error)
}
