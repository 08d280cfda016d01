package worker

import (
	"context"
	"testing"
	"time"

	"airbnb-pricer/models"
	"airbnb-pricer/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatKeepsLeaseFresh(t *testing.T) {
	clock := &lockedClock{t: today}
	store := storage.NewMemoryStore()
	store.SetClock(clock.now)
	id := store.Enqueue(models.Job{})
	_, err := store.ClaimJob(context.Background(), "owner", time.Minute)
	require.NoError(t, err)

	clock.advance(30 * time.Second)
	hb := startHeartbeat(context.Background(), store, id, "owner", 5*time.Millisecond, quietLogger(), nil)
	assert.Eventually(t, func() bool {
		job, _, _, _ := store.Job(id)
		return job.HeartbeatAt.Equal(clock.now())
	}, time.Second, 5*time.Millisecond)

	assert.True(t, hb.stop(time.Second))
	assert.False(t, hb.leaseLost())
}

func TestHeartbeatReportsLostLease(t *testing.T) {
	store := storage.NewMemoryStore()
	id := store.Enqueue(models.Job{})
	_, err := store.ClaimJob(context.Background(), "thief", time.Minute)
	require.NoError(t, err)

	lost := make(chan struct{})
	hb := startHeartbeat(context.Background(), store, id, "owner", 5*time.Millisecond, quietLogger(), func() { close(lost) })

	select {
	case <-lost:
	case <-time.After(time.Second):
		t.Fatal("onLost was not called")
	}
	assert.True(t, hb.leaseLost())
	assert.True(t, hb.stop(time.Second))
}
