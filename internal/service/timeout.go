package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkshopTimeoutJob periodically cancels requests whose workshop did not
// respond within the timeout window.
type WorkshopTimeoutJob struct {
	requests *RequestService
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkshopTimeoutJob creates a job that checks every interval.
func NewWorkshopTimeoutJob(requests *RequestService, interval time.Duration, logger *slog.Logger) *WorkshopTimeoutJob {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkshopTimeoutJob{requests: requests, interval: interval, logger: logger}
}

// Start runs the job in the background until Stop is called or ctx ends.
func (j *WorkshopTimeoutJob) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go j.run(ctx)
	j.logger.Info("workshop timeout job started", "interval", j.interval)
}

// Stop halts the job and waits for the current check to finish.
func (j *WorkshopTimeoutJob) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
	j.logger.Info("workshop timeout job stopped")
}

// RunOnce performs a single check.
func (j *WorkshopTimeoutJob) RunOnce(ctx context.Context) int {
	expired, err := j.requests.ExpireWaiting(ctx)
	if err != nil {
		j.logger.Error("workshop timeout check failed", "error", err)
	}
	return len(expired)
}

func (j *WorkshopTimeoutJob) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}
