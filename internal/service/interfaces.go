package service

import (
	"context"

	"github.com/MKhiriev/go-health-keeper/models"
)

// SyncService is the replication endpoint's business layer: it validates
// batches, stamps receipt times through the repository and serves the change
// feed.
type SyncService interface {
	// Push stores every entry of req for userID whose updatedAt wins over the
	// stored copy. The whole batch is applied atomically.
	Push(ctx context.Context, userID int64, req models.PushRequest) (models.PushResponse, error)

	// Pull returns the page of changes after req.Since, with limits clamped to
	// the configured bounds.
	Pull(ctx context.Context, req models.PullRequest) (models.PullResponse, error)
}

type AuthService interface {
	CreateToken(ctx context.Context, userID int64) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// AppInfoService describes the running endpoint.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
	GetServerInfo(ctx context.Context) models.ServerInfo
}

// HealthService reports whether the service dependencies answer.
type HealthService interface {
	Check(ctx context.Context) error
}
