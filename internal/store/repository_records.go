// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

// recordRepository is the PostgreSQL-backed implementation of
// [RecordRepository]. Sealed payloads are stored as received; the server
// never sees plaintext.
type recordRepository struct {
	*DB
	logger *logger.Logger
}

func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	return &recordRepository{
		DB:     db,
		logger: logger,
	}
}

// UpsertBatch implements [RecordRepository].
//
// Receipt times are assigned under pg_advisory_xact_lock(userID): the batch
// starts at max(now, latest stored receipt + 1) and entry i gets start+i, so a
// concurrent pull can never pass over a row that commits later with a smaller
// receipt time. Any error rolls back the whole batch.
func (r *recordRepository) UpsertBatch(ctx context.Context, userID int64, entries []models.PushEntry, now int64) (models.PushResponse, error) {
	log := logger.FromContext(ctx)

	if len(entries) == 0 {
		return models.PushResponse{}, ErrEmptyBatch
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.UpsertBatch").
			Int64("user_id", userID).
			Msg("failed to begin transaction")
		return models.PushResponse{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, lockUserRecords, userID); err != nil {
		log.Err(err).
			Str("func", "recordRepository.UpsertBatch").
			Int64("user_id", userID).
			Msg("failed to take user advisory lock")
		return models.PushResponse{}, wrapPushError(ErrExecutingStatement, err)
	}

	var latest int64
	if err = tx.QueryRowContext(ctx, maxServerUpdatedAt, userID).Scan(&latest); err != nil {
		log.Err(err).
			Str("func", "recordRepository.UpsertBatch").
			Int64("user_id", userID).
			Msg("failed to read latest receipt time")
		return models.PushResponse{}, wrapPushError(ErrExecutingQuery, err)
	}

	receivedAt := max(now, latest+1)

	result := models.PushResponse{
		AcceptedIDs: make([]string, 0, len(entries)),
		SkippedIDs:  make([]string, 0),
	}

	for idx, entry := range entries {
		var storedID string
		err = tx.QueryRowContext(ctx, upsertHealthRecord,
			userID,
			entry.ID,
			entry.EntityType,
			entry.SealedPayload,
			entry.Timestamp,
			entry.UpdatedAt,
			entry.Deleted,
			entry.DeletedAt,
			receivedAt+int64(idx),
		).Scan(&storedID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			result.SkippedIDs = append(result.SkippedIDs, entry.ID)
			continue
		case err != nil:
			log.Err(err).
				Str("func", "recordRepository.UpsertBatch").
				Int("iteration", idx+1).
				Int("total", len(entries)).
				Str("id", entry.ID).
				Msg("failed to upsert record")
			return models.PushResponse{}, wrapPushError(ErrExecutingStatement, err)
		}

		result.AcceptedIDs = append(result.AcceptedIDs, storedID)
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).
			Str("func", "recordRepository.UpsertBatch").
			Int64("user_id", userID).
			Msg("failed to commit transaction")
		return models.PushResponse{}, wrapPushError(ErrCommitingTransaction, err)
	}

	log.Debug().
		Str("func", "recordRepository.UpsertBatch").
		Int64("user_id", userID).
		Int("accepted", len(result.AcceptedIDs)).
		Int("skipped", len(result.SkippedIDs)).
		Msg("push batch applied")

	return result, nil
}

// ChangesSince implements [RecordRepository].
func (r *recordRepository) ChangesSince(ctx context.Context, userID int64, since int64, limit int) ([]models.PullEntry, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildChangesSinceQuery(userID, since, limit)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.ChangesSince").
			Int64("user_id", userID).
			Msg("failed to create query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.ChangesSince").
			Int64("user_id", userID).
			Int64("since", since).
			Msg("failed to execute change feed query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	entries := make([]models.PullEntry, 0, limit)
	for rows.Next() {
		var (
			entry     models.PullEntry
			deletedAt sql.NullInt64
		)

		scanErr := rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&entry.SealedPayload,
			&entry.Timestamp,
			&entry.UpdatedAt,
			&entry.ServerUpdatedAt,
			&entry.Deleted,
			&deletedAt,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "recordRepository.ChangesSince").
				Int64("user_id", userID).
				Msg("failed to scan record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		if deletedAt.Valid {
			entry.DeletedAt = &deletedAt.Int64
		}
		entries = append(entries, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "recordRepository.ChangesSince").
			Int64("user_id", userID).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return entries, nil
}

func buildChangesSinceQuery(userID int64, since int64, limit int) (string, []any, error) {
	if limit <= 0 {
		return "", nil, fmt.Errorf("invalid limit %d", limit)
	}

	return sq.Select(pullColumns...).
		From(healthRecordsTable).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Gt{"server_updated_at": since}).
		OrderBy("server_updated_at", "id").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}
