package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
	"github.com/khanhnv2901/phishscope/internal/metrics"
)

func newTestServer(t *testing.T, runner *stubRunner) *Server {
	t.Helper()
	return NewServer(Config{
		Runner:   runner,
		Feed:     stubFeed{result: domain.FeedResult{URLs: []string{"https://feed.example/a"}}},
		Logger:   zaptest.NewLogger(t),
		Metrics:  metrics.New(),
		MaxBatch: 3,
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content-type, got %s", got)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestWriteErrorInternal(t *testing.T) {
	s := &Server{cfg: Config{Logger: zaptest.NewLogger(t)}}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.writeError(rr, req, http.StatusInternalServerError, errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal server error") || strings.Contains(rr.Body.String(), "boom") {
		t.Fatalf("expected sanitized message, got %s", rr.Body.String())
	}
}

func TestWriteErrorClient(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.writeError(rr, req, http.StatusBadRequest, errors.New("bad input"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "bad input") {
		t.Fatalf("expected original error message, got %s", rr.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &stubRunner{})
	for _, path := range []string{"/api/v1/analyze", "/api/v1/batch", "/api/v1/feed/analyze"} {
		if rr := doRequest(t, s, http.MethodGet, path, ""); rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: expected 405, got %d", path, rr.Code)
		}
	}
	if rr := doRequest(t, s, http.MethodPost, "/api/v1/health", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST health: expected 405, got %d", rr.Code)
	}
}

func TestWriteStreamChunk(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	if !s.writeStreamChunk(rr, []byte("hello")) {
		t.Fatal("expected writeStreamChunk to succeed")
	}
	if rr.Body.String() != "hello" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}

	if s.writeStreamChunk(&failingWriter{}, []byte("fail")) {
		t.Fatalf("expected writeStreamChunk to fail")
	}
}

type failingWriter struct{}

func (f *failingWriter) Header() http.Header { return http.Header{} }
func (f *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}
func (f *failingWriter) WriteHeader(statusCode int) {}

func TestHandleAnalyze(t *testing.T) {
	runner := &stubRunner{}
	s := newTestServer(t, runner)

	rr := doRequest(t, s, http.MethodPost, "/api/v1/analyze", `{"url":"  https://example.com  "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["url"] != "https://example.com" {
		t.Errorf("expected trimmed url, got %v", result["url"])
	}
	if result["narrative"] != "narrative for https://example.com" || result["error"] != nil {
		t.Errorf("unexpected result: %v", result)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	// The unversioned alias serves the same handler.
	if rr := doRequest(t, s, http.MethodPost, "/api/analyze", `{"url":"https://example.org"}`); rr.Code != http.StatusOK {
		t.Fatalf("alias: expected 200, got %d", rr.Code)
	}
}

func TestHandleAnalyzeRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty body":      "",
		"malformed json":  `{"url":`,
		"missing url":     `{}`,
		"blank url":       `{"url":"   "}`,
		"wrong type":      `{"url":42}`,
		"oversized input": `{"url":"` + strings.Repeat("a", 2<<20) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			runner := &stubRunner{}
			s := newTestServer(t, runner)

			rr := doRequest(t, s, http.MethodPost, "/api/v1/analyze", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if runner.calls() != 0 {
				t.Fatalf("expected no analysis, got %d calls", runner.calls())
			}
		})
	}
}

func TestHandleBatch(t *testing.T) {
	runner := &stubRunner{}
	s := newTestServer(t, runner)

	body := `{"urls":[{"url":"https://a.example"},{"url":"https://b.example"}]}`
	rr := doRequest(t, s, http.MethodPost, "/api/v1/batch", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp BatchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 2 || resp.Results[0].URL != "https://a.example" || resp.Results[1].URL != "https://b.example" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if resp.Summary.Total != 2 || resp.Summary.Completed != 2 {
		t.Errorf("unexpected summary: %+v", resp.Summary)
	}
}

func TestHandleBatchRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty body":    "",
		"missing urls":  `{}`,
		"empty urls":    `{"urls":[]}`,
		"blank entry":   `{"urls":[{"url":"https://a.example"},{"url":""}]}`,
		"too many urls": `{"urls":[{"url":"a"},{"url":"b"},{"url":"c"},{"url":"d"}]}`,
		"not an array":  `{"urls":"https://a.example"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			runner := &stubRunner{}
			s := newTestServer(t, runner)

			rr := doRequest(t, s, http.MethodPost, "/api/v1/batch", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if runner.calls() != 0 {
				t.Fatalf("expected no analysis, got %d calls", runner.calls())
			}
		})
	}
}

func TestHandleFeed(t *testing.T) {
	t.Run("analyses feed", func(t *testing.T) {
		s := newTestServer(t, &stubRunner{})
		rr := doRequest(t, s, http.MethodPost, "/api/v1/feed/analyze", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp FeedResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.FeedError != "" || len(resp.Results) != 1 || resp.Summary.Total != 1 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("feed failure is reported, not fatal", func(t *testing.T) {
		runner := &stubRunner{}
		s := NewServer(Config{
			Runner: runner,
			Feed:   stubFeed{result: domain.FeedResult{URLs: []string{}, Error: "HTTP 503"}},
		})
		rr := doRequest(t, s, http.MethodPost, "/api/v1/feed/analyze", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"feed_error":"HTTP 503"`) || !strings.Contains(rr.Body.String(), `"results":[]`) {
			t.Fatalf("unexpected body: %s", rr.Body.String())
		}
		if runner.calls() != 0 {
			t.Fatalf("expected no analyses, got %d", runner.calls())
		}
	})

	t.Run("no feed configured", func(t *testing.T) {
		s := NewServer(Config{Runner: &stubRunner{}})
		if rr := doRequest(t, s, http.MethodPost, "/api/v1/feed/analyze", ""); rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
	})
}

type stubHealth struct{ readyErr error }

func (h stubHealth) Check(context.Context) error { return nil }
func (h stubHealth) Ready(context.Context) error { return h.readyErr }

func TestHealthAndReady(t *testing.T) {
	s := NewServer(Config{Health: stubHealth{}})
	if rr := doRequest(t, s, http.MethodGet, "/api/v1/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rr.Code)
	}
	if rr := doRequest(t, s, http.MethodGet, "/api/v1/ready", ""); rr.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rr.Code)
	}

	s = NewServer(Config{Health: stubHealth{readyErr: errors.New("shutting down")}})
	if rr := doRequest(t, s, http.MethodGet, "/api/v1/ready", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: expected 503, got %d", rr.Code)
	}
}

func TestJobsEndpoints(t *testing.T) {
	runner := &stubRunner{}
	jobs := NewJobManager(runner, nil, nil)
	defer jobs.Close()
	s := NewServer(Config{Runner: runner, Jobs: jobs, MaxBatch: 5})

	rr := doRequest(t, s, http.MethodPost, "/api/v1/jobs", `{"urls":[{"url":"https://a.example"}]}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var created Job
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	jobs.Wait()

	rr = doRequest(t, s, http.MethodGet, "/api/v1/jobs/"+created.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var fetched Job
	if err := json.Unmarshal(rr.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.Status != JobDone || len(fetched.Results) != 1 {
		t.Fatalf("unexpected job: %+v", fetched)
	}

	rr = doRequest(t, s, http.MethodGet, "/api/v1/jobs?limit=5", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), created.ID) {
		t.Fatalf("list: unexpected response %d: %s", rr.Code, rr.Body.String())
	}

	if rr := doRequest(t, s, http.MethodGet, "/api/v1/jobs/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", rr.Code)
	}
	if rr := doRequest(t, s, http.MethodPost, "/api/v1/jobs", `{"urls":[]}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty job, got %d", rr.Code)
	}
	if rr := doRequest(t, s, http.MethodPost, "/api/v1/jobs", `{"type":"feed"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for feed job without feed, got %d", rr.Code)
	}
	if rr := doRequest(t, s, http.MethodPost, "/api/v1/jobs", `{"type":"other","urls":[{"url":"a"}]}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown job type, got %d", rr.Code)
	}
}

func TestJobsUnavailable(t *testing.T) {
	s := NewServer(Config{})
	for _, path := range []string{"/api/v1/jobs", "/api/v1/jobs/abc", "/api/v1/jobs-stream"} {
		if rr := doRequest(t, s, http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rr.Code)
		}
	}
}

func TestJobStream(t *testing.T) {
	runner := &stubRunner{}
	jobs := NewJobManager(runner, nil, nil)
	defer jobs.Close()
	srv := httptest.NewServer(NewServer(Config{Runner: runner, Jobs: jobs}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/jobs-stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	job := jobs.StartBatch([]string{"https://a.example"})

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var update Job
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if update.ID == job.ID && update.Status == JobDone {
			if update.Results != nil {
				t.Fatal("stream updates should not carry results")
			}
			return
		}
	}
	t.Fatalf("stream ended before job finished: %v", scanner.Err())
}

func TestCORS(t *testing.T) {
	s := NewServer(Config{CORSOrigins: []string{"https://allowed.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set("Origin", "https://allowed.example")
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://allowed.example" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin for unlisted origin, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubRunner{})
	doRequest(t, s, http.MethodPost, "/api/v1/analyze", `{"url":"https://example.com"}`)

	rr := doRequest(t, s, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `route="/api/v1/analyze"`) {
		t.Fatalf("expected http request metric for analyze route, got:\n%s", rr.Body.String())
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/api/v1/analyze":      "/api/v1/analyze",
		"/api/analyze":         "/api/v1/analyze",
		"/api/v1/jobs/123":     "/api/v1/jobs/{id}",
		"/api/jobs/123":        "/api/v1/jobs/{id}",
		"/metrics":             "/metrics",
		"/favicon.ico":         "other",
		"/api/v1/feed/analyze": "/api/v1/feed/analyze",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
