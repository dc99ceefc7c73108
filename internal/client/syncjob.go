package client

import (
	"context"
	"sync"
	"time"
)

// syncer is the slice of the engine the background job needs.
type syncer interface {
	Sync(ctx context.Context) error
}

// syncJob periodically nudges the engine so remote edits land on this
// device even when the user never types `sync`. The engine coalesces
// cycles internally, so a tick during a running cycle is a no-op.
type syncJob struct {
	engine syncer

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// newSyncJob creates a job that calls engine.Sync on a ticker. The job
// is idle until Start is called.
func newSyncJob(engine syncer) *syncJob {
	return &syncJob{engine: engine}
}

// Start stops any previously running job, then launches a background
// goroutine that syncs every interval. If interval is zero or negative
// it defaults to 5 minutes. The goroutine exits when ctx is cancelled
// or Stop is called.
func (j *syncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				_ = j.engine.Sync(jobCtx)
			}
		}
	}()
}

// Stop cancels the background goroutine's context and blocks until it
// has fully exited. Safe to call when the job is not running.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
