// Package feed retrieves newline-delimited candidate URLs from a threat-intel
// feed endpoint.
package feed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/khanhnv2901/phishscope/internal/domain/analysis"
	consts "github.com/khanhnv2901/phishscope/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

// FetchError reports why a feed could not be read. It matches
// ErrFeedUnavailable under errors.Is.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("feed %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	return target == sharedErrors.ErrFeedUnavailable
}

// Options controls feed retrieval.
type Options struct {
	URL          string
	Timeout      time.Duration // per attempt
	MaxRetries   int
	Limit        int // 0 means no limit
	MaxBodyBytes int64
	RetryBase    time.Duration
	Client       *http.Client
	Logger       *zap.Logger
}

// Fetcher downloads and parses a URL feed.
type Fetcher struct {
	url          string
	client       *http.Client
	maxRetries   int
	limit        int
	maxBodyBytes int64
	retryBase    time.Duration
	logger       *zap.Logger
}

// NewFetcher constructs a feed fetcher.
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = consts.DefaultFeedTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = consts.MaxFeedBodyBytes
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Fetcher{
		url:          strings.TrimSpace(opts.URL),
		client:       client,
		maxRetries:   opts.MaxRetries,
		limit:        opts.Limit,
		maxBodyBytes: opts.MaxBodyBytes,
		retryBase:    opts.RetryBase,
		logger:       opts.Logger,
	}
}

// URL returns the configured feed endpoint.
func (f *Fetcher) URL() string { return f.url }

// Fetch downloads the feed and returns its URLs in feed order. Transport
// errors, 429 and 5xx responses are retried with exponential backoff.
func (f *Fetcher) Fetch(ctx context.Context) ([]string, error) {
	if f.url == "" {
		return nil, sharedErrors.ErrFeedNotConfigured
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryBase
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.maxRetries)), ctx)

	var urls []string
	op := func() error {
		out, err := f.fetchOnce(ctx)
		if err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				return err
			}
			var fe *FetchError
			if errors.As(err, &fe) && !retryableStatus(fe.StatusCode) {
				return backoff.Permanent(err)
			}
			return err
		}
		urls = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Warn("feed fetch failed, retrying", zap.String("feed", f.url), zap.Duration("backoff", wait), zap.Error(err))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{URL: f.url, Err: err}
	}

	f.logger.Info("feed fetched", zap.String("feed", f.url), zap.Int("urls", len(urls)))
	return urls, nil
}

// FetchResult is the non-fatal form of Fetch: a failure becomes an empty list
// plus the error text.
func (f *Fetcher) FetchResult(ctx context.Context) analysis.FeedResult {
	urls, err := f.Fetch(ctx)
	if err != nil {
		return analysis.FeedResult{URLs: []string{}, Error: err.Error()}
	}
	return analysis.FeedResult{URLs: urls}
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{URL: f.url, StatusCode: -1, Err: err}
	}
	req.Header.Set("User-Agent", consts.UserAgent)
	req.Header.Set("Accept", "text/plain, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: f.url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodyBytes {
		body = truncateToLine(body[:f.maxBodyBytes])
		f.logger.Warn("feed body exceeds size cap, truncated at last complete line",
			zap.String("feed", f.url), zap.Int64("max_bytes", f.maxBodyBytes))
	}

	// The same bytes fail the same way on every attempt.
	urls, err := Parse(bytes.NewReader(body), f.limit)
	if err != nil {
		return nil, backoff.Permanent(&FetchError{URL: f.url, Err: fmt.Errorf("parse body: %w", err)})
	}
	return urls, nil
}

// truncateToLine drops the trailing partial line of a cut-off body.
func truncateToLine(body []byte) []byte {
	idx := bytes.LastIndexByte(body, '\n')
	if idx < 0 {
		return body[:0]
	}
	return body[:idx+1]
}

// retryableStatus reports whether a response status warrants another
// attempt. Zero means no response was received.
func retryableStatus(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// Parse reads one URL per line. Lines are trimmed; blank lines, "#"
// comments and repeats are skipped. A positive limit caps the result.
func Parse(r io.Reader, limit int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	seen := make(map[string]struct{})
	urls := make([]string, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		urls = append(urls, line)
		if limit > 0 && len(urls) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}
