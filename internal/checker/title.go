package checker

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/khanhnv2901/phishscope/internal/domain/analysis"
	consts "github.com/khanhnv2901/phishscope/internal/shared/constants"
)

// TitleFetcher retrieves a page and extracts its <title>.
type TitleFetcher struct {
	client       *http.Client
	maxBodyBytes int64
	logger       *zap.Logger
}

// TitleFetcherOptions configures a TitleFetcher.
type TitleFetcherOptions struct {
	Timeout              time.Duration
	BlockPrivateNetworks bool
	Transport            http.RoundTripper // overrides the default transport, used in tests
	Logger               *zap.Logger
}

// NewTitleFetcher returns a fetcher with a bounded timeout. Redirects follow
// the http.Client default cap; no retries are attempted.
func NewTitleFetcher(opts TitleFetcherOptions) *TitleFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = consts.DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	transport := opts.Transport
	if transport == nil {
		dialer := newDialer(opts.Timeout, opts.BlockPrivateNetworks)
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   opts.Timeout,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: time.Second,
			// We negotiate gzip/br ourselves so brotli is accepted too.
			DisableCompression: true,
		}
	}

	return &TitleFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		maxBodyBytes: consts.MaxTitleBodyBytes,
		logger:       opts.Logger,
	}
}

// FetchTitle issues a single GET and returns the first <title>'s trimmed
// text. Transport, status and decode failures come back as FetchError; a
// page without a title yields Title(NoTitleFound).
func (f *TitleFetcher) FetchTitle(ctx context.Context, target string) analysis.PageTitleResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return analysis.FetchErrorf("create request: %v", err)
	}
	req.Header.Set("User-Agent", consts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return analysis.FetchError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return analysis.FetchErrorf("HTTP %s", resp.Status)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return analysis.FetchErrorf("decode body: %v", err)
	}
	if c, ok := body.(io.Closer); ok {
		defer c.Close()
	}

	title, found, err := extractTitle(io.LimitReader(body, f.maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return analysis.FetchErrorf("parse html: %v", err)
	}
	if !found {
		f.logger.Debug("page has no title", zap.String("url", target))
		return analysis.Title(analysis.NoTitleFound)
	}
	return analysis.Title(title)
}

// decodeBody unwraps gzip or brotli content encodings.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "", "identity":
		return resp.Body, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// extractTitle converts the body to UTF-8 using the declared or sniffed
// charset and returns the first title element's text.
func extractTitle(body io.Reader, contentType string) (string, bool, error) {
	utf8Body, err := charset.NewReader(body, contentType)
	if err != nil {
		return "", false, err
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return "", false, err
	}

	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return "", false, nil
	}
	return strings.Join(strings.Fields(sel.Text()), " "), true, nil
}
