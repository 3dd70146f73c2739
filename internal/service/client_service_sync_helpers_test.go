package service

import (
	"cmp"
	"context"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/store"
	"github.com/MKhiriev/go-health-keeper/internal/utils"
	"github.com/MKhiriev/go-health-keeper/models"
)

const testPassphrase = "correct horse battery staple"

var testWorkers = config.ClientWorkers{
	SyncInterval:  time.Hour,
	Debounce:      20 * time.Millisecond,
	PushBatchSize: 100,
	PullPageSize:  500,
}

func newLocalStore(t *testing.T) store.LocalRecordStore {
	t.Helper()

	dir := t.TempDir()
	storages, err := store.NewClientStorages(context.Background(), config.ClientStorage{
		DB:               config.ClientDB{DSN: filepath.Join(dir, "client.db")},
		FallbackPath:     filepath.Join(dir, "fallback.json"),
		FallbackCapacity: 10,
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { storages.Close() })

	return storages.RecordStore
}

func testCredentials(t *testing.T, userID int64) models.Credentials {
	t.Helper()

	token, err := utils.GenerateJWTToken("health-keeper", userID, time.Hour, "secret")
	require.NoError(t, err)

	return models.Credentials{AuthToken: token.SignedString, Passphrase: testPassphrase}
}

// fakeEndpoint keeps one user's records in memory and applies the same
// acceptance and receipt-time rules as the Postgres repository.
type fakeEndpoint struct {
	mu    sync.Mutex
	token string
	rows  map[string]models.PullEntry
	clock int64
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{rows: make(map[string]models.PullEntry), clock: 1_000}
}

func (f *fakeEndpoint) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeEndpoint) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeEndpoint) Push(_ context.Context, entries []models.PushEntry) (models.PushResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	receipt := f.clock
	for _, row := range f.rows {
		receipt = max(receipt, row.ServerUpdatedAt+1)
	}
	f.clock = receipt

	resp := models.PushResponse{AcceptedIDs: []string{}, SkippedIDs: []string{}}
	for i, e := range entries {
		stored, exists := f.rows[e.ID]
		wins := !exists || stored.UpdatedAt < e.UpdatedAt ||
			(stored.UpdatedAt == e.UpdatedAt && (stored.SealedPayload != e.SealedPayload || stored.Deleted != e.Deleted))
		if !wins {
			resp.SkippedIDs = append(resp.SkippedIDs, e.ID)
			continue
		}

		entityType := e.EntityType
		if exists {
			entityType = stored.EntityType
		}
		f.rows[e.ID] = models.PullEntry{
			ID:              e.ID,
			EntityType:      entityType,
			SealedPayload:   e.SealedPayload,
			Timestamp:       e.Timestamp,
			UpdatedAt:       e.UpdatedAt,
			ServerUpdatedAt: receipt + int64(i),
			Deleted:         e.Deleted,
			DeletedAt:       e.DeletedAt,
		}
		resp.AcceptedIDs = append(resp.AcceptedIDs, e.ID)
	}
	return resp, nil
}

func (f *fakeEndpoint) Pull(_ context.Context, since int64, limit int) (models.PullResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var entries []models.PullEntry
	for _, row := range f.rows {
		if row.ServerUpdatedAt > since {
			entries = append(entries, row)
		}
	}
	slices.SortFunc(entries, func(a, b models.PullEntry) int {
		if c := cmp.Compare(a.ServerUpdatedAt, b.ServerUpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	next := since
	for _, e := range entries {
		next = max(next, e.ServerUpdatedAt)
	}
	return models.PullResponse{Entries: entries, NextCursor: next, ServerTime: f.clock}, nil
}
