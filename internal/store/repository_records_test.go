package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newTestRepo(db *sql.DB) RecordRepository {
	return NewRecordRepository(&DB{
		DB:                 db,
		errorClassificator: NewPostgresErrorClassifier(),
		logger:             logger.Nop(),
	}, logger.Nop())
}

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

func pushEntry(id string, updatedAt int64) models.PushEntry {
	return models.PushEntry{
		ID:            id,
		EntityType:    models.EntityIntake,
		SealedPayload: "c2VhbGVk",
		Timestamp:     100,
		UpdatedAt:     updatedAt,
	}
}

var (
	lockSQL   = regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1);`)
	maxSQL    = `SELECT COALESCE\(MAX\(server_updated_at\), 0\)`
	upsertSQL = `INSERT INTO health_records`
)

func TestUpsertBatch_AcceptsAndSkips(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(maxSQL).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(5000)))
	// receipt = max(now=1000, 5000+1) = 5001
	mock.ExpectQuery(upsertSQL).
		WithArgs(int64(7), "a", models.EntityIntake, "c2VhbGVk", int64(100), int64(200), false, nil, int64(5001)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a"))
	mock.ExpectQuery(upsertSQL).
		WithArgs(int64(7), "b", models.EntityIntake, "c2VhbGVk", int64(100), int64(150), false, nil, int64(5002)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	resp, err := repo.UpsertBatch(testContext(), 7, []models.PushEntry{pushEntry("a", 200), pushEntry("b", 150)}, 1000)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, resp.AcceptedIDs)
	assert.Equal(t, []string{"b"}, resp.SkippedIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_ReceiptTimeFromClock(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(maxSQL).WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))
	mock.ExpectQuery(upsertSQL).
		WithArgs(int64(1), "a", models.EntityIntake, "c2VhbGVk", int64(100), int64(200), false, nil, int64(9000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a"))
	mock.ExpectCommit()

	_, err := repo.UpsertBatch(testContext(), 1, []models.PushEntry{pushEntry("a", 200)}, 9000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_RollsBackOnError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(maxSQL).WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))
	mock.ExpectQuery(upsertSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a"))
	mock.ExpectQuery(upsertSQL).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.UpsertBatch(testContext(), 1, []models.PushEntry{pushEntry("a", 1), pushEntry("b", 1)}, 10)
	assert.ErrorIs(t, err, ErrExecutingStatement)
	assert.NotErrorIs(t, err, ErrSerializationConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_SerializationConflict(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WillReturnError(&pgconn.PgError{Code: pgerrcode.DeadlockDetected})
	mock.ExpectRollback()

	_, err := repo.UpsertBatch(testContext(), 1, []models.PushEntry{pushEntry("a", 1)}, 10)
	assert.ErrorIs(t, err, ErrSerializationConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch_BeginError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(db)

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	_, err := repo.UpsertBatch(testContext(), 1, []models.PushEntry{pushEntry("a", 1)}, 10)
	assert.ErrorIs(t, err, ErrBeginningTransaction)
}

func TestUpsertBatch_Empty(t *testing.T) {
	db, _ := newTestDB(t)

	_, err := newTestRepo(db).UpsertBatch(testContext(), 1, nil, 10)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestChangesSince(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(db)

	deletedAt := int64(333)
	rows := sqlmock.NewRows(pullColumns).
		AddRow("a", "intake", "blob-a", int64(10), int64(20), int64(101), false, nil).
		AddRow("b", "goal", "blob-b", int64(11), int64(21), int64(102), true, deletedAt)

	mock.ExpectQuery(`SELECT id, entity_type, sealed_payload, timestamp, updated_at, server_updated_at, deleted, deleted_at FROM health_records WHERE user_id = \$1 AND server_updated_at > \$2 ORDER BY server_updated_at, id LIMIT 2`).
		WithArgs(int64(3), int64(100)).
		WillReturnRows(rows)

	entries, err := repo.ChangesSince(testContext(), 3, 100, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.PullEntry{
		ID: "a", EntityType: models.EntityIntake, SealedPayload: "blob-a",
		Timestamp: 10, UpdatedAt: 20, ServerUpdatedAt: 101,
	}, entries[0])
	assert.True(t, entries[1].Deleted)
	require.NotNil(t, entries[1].DeletedAt)
	assert.Equal(t, deletedAt, *entries[1].DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangesSince_QueryError(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM health_records`).WillReturnError(errors.New("boom"))

	_, err := newTestRepo(db).ChangesSince(testContext(), 3, 0, 10)
	assert.ErrorIs(t, err, ErrExecutingQuery)
}

func TestChangesSince_InvalidLimit(t *testing.T) {
	db, _ := newTestDB(t)

	_, err := newTestRepo(db).ChangesSince(testContext(), 3, 0, 0)
	assert.ErrorIs(t, err, ErrBuildingSQLQuery)
}

func TestClassifyPgError(t *testing.T) {
	classifier := NewPostgresErrorClassifier()

	assert.Equal(t, Retryable, classifier.Classify(&pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.Equal(t, Retryable, classifier.Classify(&pgconn.PgError{Code: pgerrcode.ConnectionFailure}))
	assert.Equal(t, NonRetryable, classifier.Classify(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.Equal(t, NonRetryable, classifier.Classify(errors.New("plain")))
	assert.Equal(t, NonRetryable, classifier.Classify(nil))
}
