// Package batch implements the fixed-interval window scheduler and the
// per-window processing pipeline. Grounded on the original Python
// BatchScheduler (APScheduler interval job) and BatchProcessor
// (simulator.py's process_batch), restated per spec.md §4.6/§4.7 with a
// plain time.Ticker in place of APScheduler since nothing in the pack
// depends on a cron-style scheduling library — spec.md §9 notes the window
// is a fixed, non-overlapping interval, not a durable cron schedule.
package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler ticks every Interval and invokes Tick, skipping a tick entirely
// if the previous one is still running rather than queuing or running
// overlapping windows — mirroring the original's single-worker
// AsyncIOScheduler job, where a slow run simply delays the next fire.
type Scheduler struct {
	Interval time.Duration
	Tick     func(ctx context.Context, windowStart time.Time)
	Logger   *zap.Logger
	Now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates a Scheduler. now defaults to time.Now when nil.
func NewScheduler(interval time.Duration, tick func(ctx context.Context, windowStart time.Time), logger *zap.Logger, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{Interval: interval, Tick: tick, Logger: logger, Now: now}
}

// Start begins ticking every Interval, starting with a tick at now+Interval
// (the original never processes an empty initial window at t=0). A tick
// firing at time T covers the window that just elapsed, so Tick receives
// T-Interval as windowStart. Each tick runs in its own goroutine so that
// runTick can skip one that fires while the previous is still running. It
// runs until the returned stop function is called or ctx is cancelled; stop
// also waits for an in-flight tick to return.
func (s *Scheduler) Start(ctx context.Context) (stop func()) {
	runCtx, cancel := context.WithCancel(ctx)
	s.done = make(chan struct{})
	var inflight sync.WaitGroup

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case firedAt := <-ticker.C:
				inflight.Add(1)
				go func(windowStart time.Time) {
					defer inflight.Done()
					s.runTick(runCtx, windowStart)
				}(firedAt.Add(-s.Interval))
			}
		}
	}()

	s.cancel = cancel
	return func() {
		cancel()
		<-s.done
		inflight.Wait()
	}
}

// runTick invokes Tick unless a previous tick is still in flight, in which
// case this tick is skipped and logged — never queued, never run
// concurrently with the prior one.
func (s *Scheduler) runTick(ctx context.Context, windowStart time.Time) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.Logger.Warn("skipping batch tick: previous tick still running", zap.Time("window_start", windowStart))
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.Tick(ctx, windowStart)
}
