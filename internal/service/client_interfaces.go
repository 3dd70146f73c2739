package service

import (
	"context"

	"github.com/MKhiriev/go-health-keeper/models"
)

// SyncCoordinator runs replication cycles between the local record store and
// the replication endpoint. A cycle pushes unsynced records type by type and
// then pulls the change feed from the persisted cursor.
type SyncCoordinator interface {
	// Sync runs one cycle. It returns ErrSyncInProgress immediately when a
	// cycle is already running, ErrSyncPaused while paused, ErrNoCredentials
	// without a token and passphrase, and ErrAuthRequired after the server
	// rejected the current token.
	Sync(ctx context.Context) error

	// Status returns a copy of the most recent cycle summary.
	Status() models.SyncStatus

	// SetCredentials installs the token and passphrase supplied by the
	// authentication flow. A different token clears AuthRequired.
	SetCredentials(creds models.Credentials)

	Pause()
	Resume()
}

// SyncScheduler decides when cycles run. Every trigger funnels into
// [SyncCoordinator.Sync]; background triggers report errors only through the
// coordinator status.
type SyncScheduler interface {
	// Start launches the periodic and change-debounced triggers. They stop
	// when ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop halts the triggers and waits for an in-flight triggered cycle.
	Stop()

	// SyncNow runs a cycle in the caller's goroutine and returns its error.
	SyncNow(ctx context.Context) error

	// NotifyVisible is called by the host when the app comes to the
	// foreground.
	NotifyVisible()

	// NotifyOnline is called by the host when connectivity returns.
	NotifyOnline()
}
