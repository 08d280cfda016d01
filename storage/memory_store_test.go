package storage

import (
	"context"
	"testing"
	"time"

	"airbnb-pricer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.SetClock(clock.now)
	return s, clock
}

func TestMemoryStoreClaimOrder(t *testing.T) {
	ctx := context.Background()
	s, clock := newClockedStore()

	job, err := s.ClaimJob(ctx, "t0", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, job, "empty queue")

	first := s.Enqueue(models.Job{InputAddress: "Austin"})
	clock.advance(time.Second)
	second := s.Enqueue(models.Job{InputAddress: "Lisbon"})

	job, err = s.ClaimJob(ctx, "t1", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, first, job.ID)
	assert.Equal(t, models.StatusRunning, job.Status)
	assert.Equal(t, "t1", job.WorkerClaimToken)
	assert.Equal(t, 1, job.WorkerAttempts)

	job, _ = s.ClaimJob(ctx, "t2", time.Minute)
	require.NotNil(t, job)
	assert.Equal(t, second, job.ID)

	job, _ = s.ClaimJob(ctx, "t3", time.Minute)
	assert.Nil(t, job, "running jobs with fresh heartbeats are not claimable")
}

func TestMemoryStoreTokenDiscipline(t *testing.T) {
	ctx := context.Background()
	s, _ := newClockedStore()
	id := s.Enqueue(models.Job{})
	_, err := s.ClaimJob(ctx, "owner", time.Minute)
	require.NoError(t, err)

	ok, err := s.Heartbeat(ctx, id, "intruder")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, _ = s.CompleteJob(ctx, id, "intruder", models.JobResult{CoreVersion: "x"})
	assert.False(t, ok)
	ok, _ = s.FailJob(ctx, id, "", models.JobFailure{ErrorMessage: "x"})
	assert.False(t, ok)

	ok, _ = s.Heartbeat(ctx, id, "owner")
	assert.True(t, ok)

	attrs := models.InputAttributes{InputMode: models.InputModeURL, Bedrooms: models.IntPtr(2)}
	ok, _ = s.CompleteJob(ctx, id, "owner", models.JobResult{CoreVersion: "v1+scrape", InputAttributes: &attrs})
	assert.True(t, ok)

	job, result, failure, found := s.Job(id)
	require.True(t, found)
	assert.Equal(t, models.StatusReady, job.Status)
	assert.Equal(t, 2, *job.InputAttributes.Bedrooms)
	require.NotNil(t, result)
	assert.Equal(t, "v1+scrape", result.CoreVersion)
	assert.Nil(t, failure)

	ok, _ = s.Heartbeat(ctx, id, "owner")
	assert.False(t, ok, "finished jobs take no heartbeats")
}

func TestMemoryStoreStaleReclaim(t *testing.T) {
	ctx := context.Background()
	s, clock := newClockedStore()
	id := s.Enqueue(models.Job{})

	_, err := s.ClaimJob(ctx, "first", time.Minute)
	require.NoError(t, err)

	clock.advance(2 * time.Minute)
	job, err := s.ClaimJob(ctx, "second", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, 2, job.WorkerAttempts)

	ok, _ := s.FailJob(ctx, id, "first", models.JobFailure{ErrorMessage: "late"})
	assert.False(t, ok, "the previous holder lost its lease")
	ok, _ = s.FailJob(ctx, id, "second", models.JobFailure{ErrorMessage: "boom"})
	assert.True(t, ok)

	job2, _, failure, _ := s.Job(id)
	assert.Equal(t, models.StatusError, job2.Status)
	assert.Equal(t, "boom", failure.ErrorMessage)
}

func TestMemoryStoreCacheExpiry(t *testing.T) {
	ctx := context.Background()
	s, _ := newClockedStore()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SetCached(ctx, models.CacheEntry{
		Key:       "k",
		ExpiresAt: now.Add(time.Hour),
		Summary:   models.Summary{NightlyMedian: 150},
	}))

	hit, err := s.GetCached(ctx, "k", now)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 150, hit.Summary.NightlyMedian)

	miss, _ := s.GetCached(ctx, "k", now.Add(time.Hour))
	assert.Nil(t, miss)
	miss, _ = s.GetCached(ctx, "other", now)
	assert.Nil(t, miss)
}

func TestMemoryStoreCancelledClaim(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	s.Enqueue(models.Job{})
	job, err := s.ClaimJob(ctx, "t", time.Minute)
	assert.Nil(t, job)
	assert.ErrorIs(t, err, context.Canceled)
}
