package api

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appanalysis "github.com/khanhnv2901/phishscope/internal/application/analysis"
	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
)

// Job statuses.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobError   = "error"
)

// Job types.
const (
	JobTypeBatch = "batch"
	JobTypeFeed  = "feed"
)

// Job is an asynchronous batch analysis.
type Job struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Status     string               `json:"status"`
	Total      int                  `json:"total"`
	Processed  int                  `json:"processed"`
	CreatedAt  time.Time            `json:"created_at"`
	StartedAt  *time.Time           `json:"started_at,omitempty"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Summary    *domain.BatchSummary `json:"summary,omitempty"`
	Results    domain.BatchResult   `json:"results,omitempty"`
	FeedError  string               `json:"feed_error,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// BatchRunner executes batches for jobs.
type BatchRunner interface {
	RunBatchWithProgress(ctx context.Context, urls []string, onResult appanalysis.ResultFunc) domain.BatchResult
}

// JobManager tracks jobs in memory and fans updates out to subscribers.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int // Maximum number of jobs to keep in memory

	runner BatchRunner
	feed   appanalysis.FeedSource
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobManager creates a manager whose jobs run on runner. feed may be nil,
// in which case feed jobs are rejected.
func NewJobManager(runner BatchRunner, feed appanalysis.FeedSource, logger *zap.Logger) *JobManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		maxJobs:     1000, // Default: keep last 1000 jobs
		runner:      runner,
		feed:        feed,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	go m.cleanupLoop()
	return m
}

// CreateJob registers a pending job and returns a copy of it.
func (m *JobManager) CreateJob(jobType string, total int) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    JobPending,
		Total:     total,
		CreatedAt: time.Now().UTC(),
	}
	m.jobs[job.ID] = job
	m.broadcast(*job)
	snapshot := *job
	return &snapshot
}

// UpdateJob applies update under the lock and broadcasts the new state.
func (m *JobManager) UpdateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(*job)
	snapshot := *job
	return &snapshot
}

// GetJob returns a copy of the job, or nil.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[id]; ok {
		snapshot := *job
		return &snapshot
	}
	return nil
}

// ListJobs returns up to limit jobs, newest first, without their results.
func (m *JobManager) ListJobs(limit int) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.jobs) {
		limit = len(m.jobs)
	}
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		j := *job
		j.Results = nil
		jobs = append(jobs, j)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

// Subscribe returns a channel of job updates and its cancel function.
func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 32)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// broadcast sends a results-free snapshot; callers must hold m.mu.
func (m *JobManager) broadcast(job Job) {
	job.Results = nil
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
			m.logger.Debug("dropped job update for slow subscriber", zap.String("job_id", job.ID))
		}
	}
}

// StartBatch creates a batch job and runs it in the background.
func (m *JobManager) StartBatch(urls []string) *Job {
	job := m.CreateJob(JobTypeBatch, len(urls))
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(job.ID, urls)
	}()
	return job
}

// StartFeed creates a feed job: the feed is fetched and every URL analysed
// in the background.
func (m *JobManager) StartFeed() (*Job, error) {
	if m.feed == nil {
		return nil, errors.New("feed is not configured")
	}
	job := m.CreateJob(JobTypeFeed, 0)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.markRunning(job.ID)
		feed := m.feed.FetchResult(m.ctx)
		if feed.Error != "" {
			m.UpdateJob(job.ID, func(j *Job) {
				now := time.Now().UTC()
				j.Status = JobError
				j.FeedError = feed.Error
				j.Error = "feed unavailable"
				j.Results = domain.BatchResult{}
				j.FinishedAt = &now
			})
			return
		}
		m.UpdateJob(job.ID, func(j *Job) { j.Total = len(feed.URLs) })
		m.run(job.ID, feed.URLs)
	}()
	return job, nil
}

func (m *JobManager) markRunning(id string) {
	m.UpdateJob(id, func(j *Job) {
		if j.StartedAt == nil {
			now := time.Now().UTC()
			j.StartedAt = &now
		}
		j.Status = JobRunning
	})
}

func (m *JobManager) run(id string, urls []string) {
	m.markRunning(id)
	results := m.runner.RunBatchWithProgress(m.ctx, urls, func(int, domain.AnalysisResult) {
		m.UpdateJob(id, func(j *Job) { j.Processed++ })
	})

	summary := results.Summary()
	m.UpdateJob(id, func(j *Job) {
		now := time.Now().UTC()
		j.Status = JobDone
		if m.ctx.Err() != nil {
			j.Status = JobError
			j.Error = "job cancelled"
		}
		j.Results = results
		j.Summary = &summary
		j.FinishedAt = &now
	})
	m.logger.Info("job finished", zap.String("job_id", id), zap.Int("total", summary.Total), zap.Int("failed", summary.Failed))
}

// Wait blocks until every started job has finished.
func (m *JobManager) Wait() {
	m.wg.Wait()
}

// Close cancels running jobs, waits for them and stops the cleanup loop.
func (m *JobManager) Close() {
	m.cancel()
	m.wg.Wait()
}

// cleanupLoop removes old finished jobs to prevent unbounded memory growth.
func (m *JobManager) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.prune()
		}
	}
}

func (m *JobManager) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) <= m.maxJobs {
		return
	}

	type jobWithTime struct {
		id   string
		time time.Time
	}
	var finished []jobWithTime
	for id, job := range m.jobs {
		if job.Status == JobDone || job.Status == JobError {
			t := job.CreatedAt
			if job.FinishedAt != nil {
				t = *job.FinishedAt
			}
			finished = append(finished, jobWithTime{id: id, time: t})
		}
	}

	// Oldest first
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].time.Before(finished[j].time)
	})

	toRemove := len(m.jobs) - m.maxJobs
	if toRemove > len(finished) {
		toRemove = len(finished)
	}
	for i := 0; i < toRemove; i++ {
		delete(m.jobs, finished[i].id)
	}
}

// SetMaxJobs configures the maximum number of jobs to retain in memory.
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}
