package store

import "errors"

// Sentinel errors returned by the store layer. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrRecordNotFound is returned by Get when neither the durable store nor
	// the fallback queue holds a record with the requested id.
	ErrRecordNotFound = errors.New("record not found")

	// ErrStorageUnavailable is returned when a write could reach neither the
	// durable store nor the fallback queue.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSerializationConflict is returned when PostgreSQL aborted a push
	// transaction because of a concurrent one (SQLSTATE class 40).
	ErrSerializationConflict = errors.New("serialization conflict")

	// ErrEmptyBatch is returned by UpsertBatch when called without entries.
	ErrEmptyBatch = errors.New("empty batch")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a SQL query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning a single result row fails.
	ErrScanningRow = errors.New("failed to scan record row")

	// ErrScanningRows is returned when multi-row iteration fails mid-result-set.
	ErrScanningRows = errors.New("failed to scan record rows")
)
