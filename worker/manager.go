package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Worker runs until ctx is cancelled.
type Worker interface {
	Start(ctx context.Context) error
}

// Manager runs a set of workers under a shared context. The first worker
// error cancels the others.
type Manager struct {
	workers []Worker
}

func NewManager(ws ...Worker) *Manager {
	return &Manager{workers: ws}
}

// Start blocks until ctx is done or a worker fails, then waits for every
// worker to return. It reports the first worker error.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i, w := range m.workers {
		wg.Add(1)
		go func(i int, w Worker) {
			defer wg.Done()
			if err := w.Start(ctx); err != nil {
				slog.Error("worker: stopped with error", "worker", i, "err", err)
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}(i, w)
	}
	<-ctx.Done()
	wg.Wait()
	return firstErr
}
