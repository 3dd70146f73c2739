package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

var errDiskGone = errors.New("disk I/O error")

func newSQLiteDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnectSQLite(context.Background(), config.ClientDB{DSN: filepath.Join(t.TempDir(), "client.db")}, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return db
}

// testClock advances by one millisecond on every read unless frozen.
type testClock struct {
	ms     atomic.Int64
	frozen atomic.Bool
}

func newTestClock(start int64) *testClock {
	c := &testClock{}
	c.ms.Store(start)
	return c
}

func (c *testClock) Now() time.Time {
	if c.frozen.Load() {
		return time.UnixMilli(c.ms.Load())
	}
	return time.UnixMilli(c.ms.Add(1))
}

type sequenceIDs struct {
	n atomic.Int64
}

func (s *sequenceIDs) Generate() string {
	return "rec-" + string(rune('a'+s.n.Add(1)-1))
}

// flakyRepository fails every call while down is set. Saves of the entity
// type stored in failSaves fail even while it is up.
type flakyRepository struct {
	LocalRecordRepository
	down      atomic.Bool
	failSaves atomic.Pointer[models.EntityType]
}

func (f *flakyRepository) Save(ctx context.Context, record models.Record) error {
	if f.down.Load() {
		return errDiskGone
	}
	if broken := f.failSaves.Load(); broken != nil && *broken == record.EntityType {
		return errDiskGone
	}
	return f.LocalRecordRepository.Save(ctx, record)
}

func (f *flakyRepository) Find(ctx context.Context, entityType models.EntityType, id string) (models.Record, error) {
	if f.down.Load() {
		return models.Record{}, errDiskGone
	}
	return f.LocalRecordRepository.Find(ctx, entityType, id)
}

func (f *flakyRepository) List(ctx context.Context, entityType models.EntityType) ([]models.Record, error) {
	if f.down.Load() {
		return nil, errDiskGone
	}
	return f.LocalRecordRepository.List(ctx, entityType)
}

func (f *flakyRepository) CountUnsynced(ctx context.Context) (int, error) {
	if f.down.Load() {
		return 0, errDiskGone
	}
	return f.LocalRecordRepository.CountUnsynced(ctx)
}

type storeFixture struct {
	store        *recordStore
	repo         *flakyRepository
	clock        *testClock
	fallbackPath string
}

func newStoreFixture(t *testing.T, capacity int) storeFixture {
	t.Helper()

	repo := &flakyRepository{LocalRecordRepository: NewLocalRecordRepository(newSQLiteDB(t), logger.Nop())}
	clock := newTestClock(1_000)
	fallbackPath := filepath.Join(t.TempDir(), "fallback.json")

	s, err := NewRecordStore(repo, fallbackPath, capacity, logger.Nop(), WithClock(clock.Now), WithIDGenerator(&sequenceIDs{}))
	require.NoError(t, err)

	return storeFixture{store: s.(*recordStore), repo: repo, clock: clock, fallbackPath: fallbackPath}
}

func ptr[T any](v T) *T {
	return &v
}
