package api

import (
	"context"
	"sync"

	appanalysis "github.com/khanhnv2901/phishscope/internal/application/analysis"
	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
)

// stubRunner returns a completed result per URL and records every call.
type stubRunner struct {
	mu    sync.Mutex
	urls  []string
	block chan struct{} // when set, batches wait for it or ctx
}

func (s *stubRunner) result(url string) domain.AnalysisResult {
	s.mu.Lock()
	s.urls = append(s.urls, url)
	s.mu.Unlock()
	r := domain.AnalysisResult{URL: url, PageTitle: domain.Title("Example")}
	r.Complete("narrative for " + url)
	return r
}

func (s *stubRunner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

func (s *stubRunner) Analyze(ctx context.Context, url string) domain.AnalysisResult {
	return s.result(url)
}

func (s *stubRunner) RunBatch(ctx context.Context, urls []string) domain.BatchResult {
	return s.RunBatchWithProgress(ctx, urls, nil)
}

func (s *stubRunner) RunBatchWithProgress(ctx context.Context, urls []string, onResult appanalysis.ResultFunc) domain.BatchResult {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}
	out := make(domain.BatchResult, len(urls))
	for i, url := range urls {
		if ctx.Err() != nil {
			reason := "analysis cancelled"
			out[i] = domain.AnalysisResult{URL: url, Error: &reason}
		} else {
			out[i] = s.result(url)
		}
		if onResult != nil {
			onResult(i, out[i])
		}
	}
	return out
}

func (s *stubRunner) RunFeed(ctx context.Context, source appanalysis.FeedSource) appanalysis.FeedRun {
	feed := source.FetchResult(ctx)
	if feed.Error != "" {
		return appanalysis.FeedRun{FeedError: feed.Error, URLs: []string{}, Results: domain.BatchResult{}}
	}
	return appanalysis.FeedRun{URLs: feed.URLs, Results: s.RunBatch(ctx, feed.URLs)}
}

type stubFeed struct {
	result domain.FeedResult
}

func (f stubFeed) FetchResult(context.Context) domain.FeedResult {
	return f.result
}
