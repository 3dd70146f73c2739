package store

import (
	"context"

	"github.com/MKhiriev/go-health-keeper/models"
)

// RecordRepository is the server-side persistence of sealed records. Every
// method is scoped to a single user.
type RecordRepository interface {
	// UpsertBatch applies entries in one transaction under a per-user advisory
	// lock. An entry is accepted when it replaced (or created) the stored row,
	// skipped when the stored row was newer or identical. now is the receipt
	// clock in Unix milliseconds.
	UpsertBatch(ctx context.Context, userID int64, entries []models.PushEntry, now int64) (models.PushResponse, error)

	// ChangesSince returns up to limit rows whose server receipt time is
	// strictly greater than since, ordered by (server_updated_at, id).
	ChangesSince(ctx context.Context, userID int64, since int64, limit int) ([]models.PullEntry, error)
}

// ErrorClassificator decides whether a failed database operation may succeed
// when attempted again.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
