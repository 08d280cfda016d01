package storage

import (
	"context"
	"sync"
	"time"

	"airbnb-pricer/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same claim and token rules
// as the Postgres store. It backs one-shot runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	jobs  map[string]*memoryJob
	order []string
	cache map[string]models.CacheEntry
	now   func() time.Time
}

type memoryJob struct {
	job     models.Job
	result  *models.JobResult
	failure *models.JobFailure
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*memoryJob),
		cache: make(map[string]models.CacheEntry),
		now:   time.Now,
	}
}

// SetClock replaces the store's clock
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Enqueue adds a queued job and returns its id
func (m *MemoryStore) Enqueue(job models.Job) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.StatusQueued
	job.WorkerClaimToken = ""
	if job.CreatedAt.IsZero() {
		job.CreatedAt = m.now()
	}
	m.jobs[job.ID] = &memoryJob{job: job}
	m.order = append(m.order, job.ID)
	return job.ID
}

// Job returns a snapshot of a job with its result or failure
func (m *MemoryStore) Job(id string) (models.Job, *models.JobResult, *models.JobFailure, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return models.Job{}, nil, nil, false
	}
	return j.job, j.result, j.failure, true
}

// ClaimJob claims the oldest queued or stale running job
func (m *MemoryStore) ClaimJob(ctx context.Context, token string, staleAfter time.Duration) (*models.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, id := range m.order {
		j := m.jobs[id]
		stale := j.job.Status == models.StatusRunning && now.Sub(j.job.HeartbeatAt) > staleAfter
		if j.job.Status != models.StatusQueued && !stale {
			continue
		}
		j.job.Status = models.StatusRunning
		j.job.WorkerClaimToken = token
		j.job.WorkerAttempts++
		j.job.HeartbeatAt = now
		claimed := j.job
		return &claimed, nil
	}
	return nil, nil
}

// owned returns the job if token holds its claim. Callers hold mu.
func (m *MemoryStore) owned(jobID, token string) *memoryJob {
	j, ok := m.jobs[jobID]
	if !ok || token == "" || j.job.WorkerClaimToken != token {
		return nil
	}
	return j
}

func (m *MemoryStore) Heartbeat(ctx context.Context, jobID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.owned(jobID, token)
	if j == nil || j.job.Status != models.StatusRunning {
		return false, nil
	}
	j.job.HeartbeatAt = m.now()
	return true, nil
}

func (m *MemoryStore) CompleteJob(ctx context.Context, jobID, token string, result models.JobResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.owned(jobID, token)
	if j == nil {
		return false, nil
	}
	j.job.Status = models.StatusReady
	if result.InputAttributes != nil {
		j.job.InputAttributes = *result.InputAttributes
	}
	j.result = &result
	j.failure = nil
	return true, nil
}

func (m *MemoryStore) FailJob(ctx context.Context, jobID, token string, failure models.JobFailure) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.owned(jobID, token)
	if j == nil {
		return false, nil
	}
	j.job.Status = models.StatusError
	j.failure = &failure
	return true, nil
}

func (m *MemoryStore) GetCached(ctx context.Context, key string, now time.Time) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cache[key]
	if !ok || !now.Before(e.ExpiresAt) {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryStore) SetCached(ctx context.Context, entry models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[entry.Key] = entry
	return nil
}

func (m *MemoryStore) Close() error { return nil }
