// internal/app/system/workers/cleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of periodic housekeeping. Run returns how many records
// it touched.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int64, error)
}

// Cleanup is a background worker that runs housekeeping tasks on a fixed
// interval: clearing expired password-reset tokens and stale OAuth states.
type Cleanup struct {
	tasks    []Task
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCleanup creates a cleanup worker.
//
// Parameters:
//   - logger: zap logger for logging
//   - interval: how often to run (e.g., 10 minutes)
//   - tasks: the housekeeping to perform each tick
func NewCleanup(logger *zap.Logger, interval time.Duration, tasks ...Task) *Cleanup {
	return &Cleanup{
		tasks:    tasks,
		log:      logger,
		interval: interval,
		timeout:  30 * time.Second,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *Cleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Int("tasks", len(w.tasks)))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *Cleanup) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("cleanup worker stopped")
	})
}

func (w *Cleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce runs every task a single time. A failing task is logged and does
// not stop the others.
func (w *Cleanup) RunOnce() {
	for _, t := range w.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		count, err := t.Run(ctx, w.now().UTC())
		cancel()
		if err != nil {
			w.log.Error("cleanup task failed", zap.String("task", t.Name), zap.Error(err))
			continue
		}
		if count > 0 {
			w.log.Info("cleanup task removed records",
				zap.String("task", t.Name),
				zap.Int64("count", count))
		}
	}
}
