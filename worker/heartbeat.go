package worker

import (
	"context"
	"time"

	"airbnb-pricer/storage"

	"github.com/sirupsen/logrus"
)

// heartbeat refreshes a claimed job's liveness until it is stopped or the
// store rejects its token. It is bound to the job's processing scope.
type heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
	lost   chan struct{}
}

// startHeartbeat begins beating every interval. onLost runs once if the
// store reports that token no longer owns the job.
func startHeartbeat(ctx context.Context, store storage.JobStore, jobID, token string, interval time.Duration, logger logrus.FieldLogger, onLost func()) *heartbeat {
	ctx, cancel := context.WithCancel(ctx)
	h := &heartbeat{cancel: cancel, done: make(chan struct{}), lost: make(chan struct{})}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			ok, err := store.Heartbeat(ctx, jobID, token)
			if err != nil {
				if ctx.Err() == nil {
					logger.Errorf("Heartbeat error: %v", err)
				}
				continue
			}
			if !ok {
				logger.Warn("Heartbeat rejected, claim lost")
				close(h.lost)
				if onLost != nil {
					onLost()
				}
				return
			}
		}
	}()
	return h
}

// stop cancels the heartbeat and waits at most timeout for it to exit.
// It reports whether the heartbeat exited in time.
func (h *heartbeat) stop(timeout time.Duration) bool {
	h.cancel()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-h.done:
		return true
	case <-t.C:
		return false
	}
}

// leaseLost reports whether the store rejected the heartbeat.
func (h *heartbeat) leaseLost() bool {
	select {
	case <-h.lost:
		return true
	default:
		return false
	}
}
