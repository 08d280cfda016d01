package models

import "time"

// JobStatus is the lifecycle state of a pricing job
type JobStatus string

const (
	StatusQueued  JobStatus = "queued"
	StatusRunning JobStatus = "running"
	StatusReady   JobStatus = "ready"
	StatusError   JobStatus = "error"
)

// Job is a pricing report request as held by the shared job store.
type Job struct {
	ID               string
	Status           JobStatus
	InputAddress     string
	InputListingURL  string
	InputAttributes  InputAttributes
	InputDateStart   time.Time
	InputDateEnd     time.Time
	DiscountPolicy   DiscountPolicy
	CacheKey         string
	WorkerClaimToken string
	WorkerAttempts   int
	HeartbeatAt      time.Time
	CreatedAt        time.Time
}

// ListingURL returns the listing URL from the job row or its attributes.
func (j *Job) ListingURL() string {
	if j.InputListingURL != "" {
		return j.InputListingURL
	}
	return j.InputAttributes.ListingURL
}

// JobResult is written when a job completes.
type JobResult struct {
	Summary         Summary
	Calendar        []CalendarDay
	CoreVersion     string
	Debug           map[string]any
	InputAttributes *InputAttributes
}

// JobFailure is written when a job fails.
type JobFailure struct {
	ErrorMessage string
	Debug        map[string]any
}

// CacheEntry is a TTL-bounded pricing result keyed by input fingerprint
type CacheEntry struct {
	Key       string
	ExpiresAt time.Time
	Summary   Summary
	Calendar  []CalendarDay
	Meta      map[string]any
}
