package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/phishscope/internal/api/middleware"
	appanalysis "github.com/khanhnv2901/phishscope/internal/application/analysis"
	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
	"github.com/khanhnv2901/phishscope/internal/metrics"
	consts "github.com/khanhnv2901/phishscope/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// BatchRequest is the body of POST /api/v1/batch and POST /api/v1/jobs.
type BatchRequest struct {
	Type string           `json:"type,omitempty"` // jobs only: "batch" (default) or "feed"
	URLs []AnalyzeRequest `json:"urls"`
}

// BatchResponse carries batch results with their summary.
type BatchResponse struct {
	Results domain.BatchResult  `json:"results"`
	Summary domain.BatchSummary `json:"summary"`
}

// FeedResponse is returned by POST /api/v1/feed/analyze.
type FeedResponse struct {
	FeedError string              `json:"feed_error,omitempty"`
	Results   domain.BatchResult  `json:"results"`
	Summary   domain.BatchSummary `json:"summary"`
}

// Runner analyses URLs on behalf of the API.
type Runner interface {
	Analyze(ctx context.Context, url string) domain.AnalysisResult
	RunBatch(ctx context.Context, urls []string) domain.BatchResult
	RunFeed(ctx context.Context, source appanalysis.FeedSource) appanalysis.FeedRun
}

type HealthService interface {
	Check(ctx context.Context) error
	Ready(ctx context.Context) error
}

type JobService interface {
	StartBatch(urls []string) *Job
	StartFeed() (*Job, error)
	GetJob(id string) *Job
	ListJobs(limit int) []Job
	Subscribe() (chan Job, func())
}

type Config struct {
	Runner      Runner
	Feed        appanalysis.FeedSource
	Jobs        JobService
	Health      HealthService
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	MaxBatch    int      // Maximum URLs per batch (0 = default)
}

type Server struct {
	cfg Config
	mux *http.ServeMux
}

func NewServer(cfg Config) *Server {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = consts.DefaultMaxBatch
	}
	srv := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Apply middleware chain: RequestID -> Logging -> CORS -> Handler
	handler := middleware.RequestID(s.withLogging(s.withCORS(s.mux)))
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Version 1 API routes (primary)
	s.mux.HandleFunc("/api/v1/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/ready", s.handleReady)
	s.mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/v1/batch", s.handleBatch)
	s.mux.HandleFunc("/api/v1/feed/analyze", s.handleFeed)
	s.mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/v1/jobs/", s.handleJobByID)
	s.mux.HandleFunc("/api/v1/jobs-stream", s.handleJobStream)

	// Unversioned routes (alias to v1)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/ready", s.handleReady)
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/batch", s.handleBatch)
	s.mux.HandleFunc("/api/feed/analyze", s.handleFeed)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/", s.handleJobByID)
	s.mux.HandleFunc("/api/jobs-stream", s.handleJobStream)

	if s.cfg.Metrics != nil {
		s.mux.Handle("/metrics", s.cfg.Metrics.Handler())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Check(r.Context()); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Ready(r.Context()); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Runner == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("analysis service not available"))
		return
	}
	var req AnalyzeRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		s.writeError(w, r, http.StatusBadRequest, sharedErrors.ErrEmptyURL)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Runner.Analyze(r.Context(), url))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Runner == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("analysis service not available"))
		return
	}
	var req BatchRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	urls, err := s.batchURLs(req)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	results := s.cfg.Runner.RunBatch(r.Context(), urls)
	writeJSON(w, http.StatusOK, BatchResponse{Results: results, Summary: results.Summary()})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Runner == nil || s.cfg.Feed == nil {
		s.writeError(w, r, http.StatusNotFound, sharedErrors.ErrFeedNotConfigured)
		return
	}
	run := s.cfg.Runner.RunFeed(r.Context(), s.cfg.Feed)
	results := run.Results
	if results == nil {
		results = domain.BatchResult{}
	}
	writeJSON(w, http.StatusOK, FeedResponse{
		FeedError: run.FeedError,
		Results:   results,
		Summary:   results.Summary(),
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		limit := 25
		if q := r.URL.Query().Get("limit"); q != "" {
			if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		writeJSON(w, http.StatusOK, s.cfg.Jobs.ListJobs(limit))
	case http.MethodPost:
		var req BatchRequest
		if err := s.decodeBody(w, r, &req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		switch req.Type {
		case JobTypeFeed:
			job, err := s.cfg.Jobs.StartFeed()
			if err != nil {
				s.writeError(w, r, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusAccepted, job)
		case "", JobTypeBatch:
			urls, err := s.batchURLs(req)
			if err != nil {
				s.writeError(w, r, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusAccepted, s.cfg.Jobs.StartBatch(urls))
		default:
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: unknown job type %q", sharedErrors.ErrInvalidInput, req.Type))
		}
	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	id := jobIDFromPath(r.URL.Path)
	if id == "" {
		s.writeError(w, r, http.StatusNotFound, errors.New("job ID required"))
		return
	}
	job := s.cfg.Jobs.GetJob(id)
	if job == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	updates, unsubscribe := s.cfg.Jobs.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	ctx := r.Context()
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(job)
			if err != nil {
				s.requestLogger(r).Error("failed to marshal job", zap.Error(err))
				continue
			}
			if !s.writeStreamChunk(w, []byte("event: job\n")) {
				return
			}
			if !s.writeStreamChunk(w, []byte("data: ")) {
				return
			}
			if !s.writeStreamChunk(w, payload) {
				return
			}
			if !s.writeStreamChunk(w, []byte("\n\n")) {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// decodeBody reads a single JSON document into dst. An empty body is an error.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, consts.MaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", sharedErrors.ErrInvalidInput)
		}
		return fmt.Errorf("%w: %v", sharedErrors.ErrInvalidInput, err)
	}
	return nil
}

// batchURLs validates a batch body and returns its trimmed URLs.
func (s *Server) batchURLs(req BatchRequest) ([]string, error) {
	if len(req.URLs) == 0 {
		return nil, sharedErrors.ErrMissingURLs
	}
	if len(req.URLs) > s.cfg.MaxBatch {
		return nil, fmt.Errorf("%w: %d urls, limit is %d", sharedErrors.ErrBatchTooLarge, len(req.URLs), s.cfg.MaxBatch)
	}
	urls := make([]string, len(req.URLs))
	for i, entry := range req.URLs {
		url := strings.TrimSpace(entry.URL)
		if url == "" {
			return nil, fmt.Errorf("urls[%d]: %w", i, sharedErrors.ErrEmptyURL)
		}
		urls[i] = url
	}
	return urls, nil
}

func jobIDFromPath(path string) string {
	for _, prefix := range []string{"/api/v1/jobs/", "/api/jobs/"} {
		if strings.HasPrefix(path, prefix) {
			return strings.Trim(strings.TrimPrefix(path, prefix), "/")
		}
	}
	return ""
}

// routeLabel maps a request path onto a bounded set of metric labels.
func routeLabel(path string) string {
	switch {
	case path == "/metrics":
		return path
	case strings.HasPrefix(path, "/api/v1/jobs/"), strings.HasPrefix(path, "/api/jobs/"):
		return "/api/v1/jobs/{id}"
	case strings.HasPrefix(path, "/api/"):
		return "/api/v1/" + strings.TrimPrefix(strings.TrimPrefix(path, "/api/v1/"), "/api/")
	default:
		return "other"
	}
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Determine if origin is allowed
		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowed := false
			for _, allowedOrigin := range s.cfg.CORSOrigins {
				if allowedOrigin == origin {
					allowed = true
					allowOrigin = origin
					break
				}
			}
			if !allowed {
				allowOrigin = ""
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		s.cfg.Metrics.ObserveHTTPRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(lrw.statusCode))
		s.logger().Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", duration),
			zap.Int64("bytes", lrw.bytesWritten),
		)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

// Flush lets the job stream flush through the wrapper.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	// Sanitize error messages to prevent information disclosure
	msg := err.Error()

	// For 5xx errors, return generic message and log details server-side
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) logger() *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}
	return s.cfg.Logger
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	requestID := middleware.GetRequestID(r.Context())
	return s.logger().With(
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		s.logger().Error("failed to write stream chunk", zap.Error(err))
		return false
	}
	return true
}
