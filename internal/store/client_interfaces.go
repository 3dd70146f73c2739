package store

import (
	"context"

	"github.com/MKhiriev/go-health-keeper/models"
)

// LocalRecordStore is the client's source of truth for health records. Reads
// and writes never wait on the network; records reach the server through the
// sync coordinator.
type LocalRecordStore interface {
	// Add stores a new record with a fresh UUIDv7 id. timestamp defaults to
	// now. When the durable store fails the record is queued in the fallback
	// queue and the call still succeeds with WriteFallback.
	Add(ctx context.Context, payload models.Payload, timestamp *int64) (string, WriteResult, error)
	// GetAll lists live records of one type ascending by timestamp.
	GetAll(ctx context.Context, entityType models.EntityType) ([]models.Record, error)
	// Get returns a record by id, tombstones included.
	Get(ctx context.Context, entityType models.EntityType, id string) (models.Record, error)
	// Update merges patch onto the stored record and revives it if deleted.
	Update(ctx context.Context, entityType models.EntityType, patch models.RecordPatch) (WriteResult, error)
	// Delete tombstones a record.
	Delete(ctx context.Context, entityType models.EntityType, id string) (WriteResult, error)
	// Changes signals local mutations. Sends never block.
	Changes() <-chan models.EntityType

	Unsynced(ctx context.Context, entityType models.EntityType) ([]models.Record, error)
	MarkSynced(ctx context.Context, entityType models.EntityType, acks []models.SyncAck) error
	ApplyRemote(ctx context.Context, record models.Record) (bool, error)

	Cursor(ctx context.Context, userID int64) (int64, error)
	SaveCursor(ctx context.Context, userID int64, cursor int64) error
	SaveStatus(ctx context.Context, status models.SyncStatus) error
	LoadStatus(ctx context.Context) (models.SyncStatus, error)
	PendingCount(ctx context.Context) (int, error)
}

// LocalRecordRepository is the durable SQLite layer under [LocalRecordStore].
type LocalRecordRepository interface {
	// Save replaces the row of record.ID as a whole.
	Save(ctx context.Context, record models.Record) error
	// Find returns ErrRecordNotFound when no row exists.
	Find(ctx context.Context, entityType models.EntityType, id string) (models.Record, error)
	// List returns rows that are not tombstoned, ordered by timestamp and id.
	List(ctx context.Context, entityType models.EntityType) ([]models.Record, error)
	ListUnsynced(ctx context.Context, entityType models.EntityType) ([]models.Record, error)
	// MarkSynced flags rows whose updated_at still equals the acknowledged one.
	MarkSynced(ctx context.Context, entityType models.EntityType, acks []models.SyncAck) error
	// ApplyRemote writes record unless the local row is strictly newer and
	// reports whether it was written.
	ApplyRemote(ctx context.Context, record models.Record) (bool, error)
	CountUnsynced(ctx context.Context) (int, error)

	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
}
