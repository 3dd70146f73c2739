package workers

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type Workers struct {
	mu      sync.Mutex
	workers []Worker
	started []Worker
}

func New(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

// Start starts every worker. When one fails, the workers already started are
// stopped again and the error is returned.
func (w *Workers) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, worker := range w.workers {
		if err := worker.Start(ctx); err != nil {
			stopAll(w.started)
			w.started = nil
			return fmt.Errorf("start worker %d: %w", i, err)
		}
		w.started = append(w.started, worker)
	}
	return nil
}

// Stop stops the started workers in reverse order.
func (w *Workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	stopAll(w.started)
	w.started = nil
}

func stopAll(workers []Worker) {
	for _, worker := range slices.Backward(workers) {
		worker.Stop()
	}
}
