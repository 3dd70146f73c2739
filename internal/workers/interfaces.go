// Package workers runs the client's background workers as one unit.
//
// A worker is anything with a Start/Stop lifecycle, such as the sync
// scheduler. Workers are started in order and stopped in reverse order.
package workers

import "context"

// Worker is a background component with an explicit lifecycle.
//
// Start must not block: it launches whatever goroutines the worker needs and
// returns. Stop blocks until those goroutines have exited and must be safe to
// call on a worker that was never started.
type Worker interface {
	Start(ctx context.Context) error
	Stop()
}
