package storage

import (
	"context"
	"time"

	"airbnb-pricer/models"
)

// JobStore is the shared queue of pricing jobs. Every write after the
// claim is conditioned on the claim token; a false return means the token
// no longer owns the job and nothing was written.
type JobStore interface {
	// ClaimJob atomically claims one queued job, or a running job whose
	// heartbeat is older than staleAfter, stamping it with token and
	// incrementing its attempt counter. It returns nil, nil when there is
	// no work.
	ClaimJob(ctx context.Context, token string, staleAfter time.Duration) (*models.Job, error)
	Heartbeat(ctx context.Context, jobID, token string) (bool, error)
	CompleteJob(ctx context.Context, jobID, token string, result models.JobResult) (bool, error)
	FailJob(ctx context.Context, jobID, token string, failure models.JobFailure) (bool, error)
}

// CacheStore holds pricing results keyed by input fingerprint
type CacheStore interface {
	// GetCached returns the entry for key if it has not expired at now,
	// or nil.
	GetCached(ctx context.Context, key string, now time.Time) (*models.CacheEntry, error)
	// SetCached upserts an entry.
	SetCached(ctx context.Context, entry models.CacheEntry) error
}

// Store is a job store that also holds the cache
type Store interface {
	JobStore
	CacheStore
	Close() error
}
