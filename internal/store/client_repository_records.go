package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

type localRecordRepository struct {
	*DB
	logger *logger.Logger
}

func NewLocalRecordRepository(db *DB, logger *logger.Logger) LocalRecordRepository {
	return &localRecordRepository{
		DB:     db,
		logger: logger,
	}
}

func (l *localRecordRepository) Save(ctx context.Context, record models.Record) error {
	payload, err := encodePayload(record.Payload)
	if err != nil {
		return err
	}

	_, err = l.DB.ExecContext(ctx, saveLocalRecord,
		record.EntityType,
		record.ID,
		payload,
		record.Timestamp,
		record.UpdatedAt,
		record.Deleted,
		record.DeletedAt,
		record.Synced,
	)
	if err != nil {
		l.logger.Err(err).
			Str("func", "localRecordRepository.Save").
			Str("entity_type", record.EntityType.String()).
			Str("id", record.ID).
			Msg("failed to save record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (l *localRecordRepository) Find(ctx context.Context, entityType models.EntityType, id string) (models.Record, error) {
	query, args, err := sq.Select(localRecordColumns...).
		From(localRecordsTable).
		Where(sq.Eq{"entity_type": entityType, "id": id}).
		ToSql()
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	record, err := scanRecord(l.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, ErrRecordNotFound
	}
	if err != nil {
		l.logger.Err(err).
			Str("func", "localRecordRepository.Find").
			Str("id", id).
			Msg("failed to read record")
		return models.Record{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return record, nil
}

func (l *localRecordRepository) List(ctx context.Context, entityType models.EntityType) ([]models.Record, error) {
	return l.query(ctx, "localRecordRepository.List", sq.Select(localRecordColumns...).
		From(localRecordsTable).
		Where(sq.Eq{"entity_type": entityType, "deleted": false}).
		OrderBy("timestamp", "id"))
}

func (l *localRecordRepository) ListUnsynced(ctx context.Context, entityType models.EntityType) ([]models.Record, error) {
	return l.query(ctx, "localRecordRepository.ListUnsynced", sq.Select(localRecordColumns...).
		From(localRecordsTable).
		Where(sq.Eq{"entity_type": entityType, "synced": false}).
		OrderBy("updated_at", "id"))
}

func (l *localRecordRepository) query(ctx context.Context, funcName string, builder sq.SelectBuilder) ([]models.Record, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		l.logger.Err(err).Str("func", funcName).Msg("failed to execute query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.Record, 0, 32)
	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			l.logger.Err(scanErr).Str("func", funcName).Msg("failed to scan record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return records, nil
}

func (l *localRecordRepository) MarkSynced(ctx context.Context, entityType models.EntityType, acks []models.SyncAck) error {
	if len(acks) == 0 {
		return nil
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	for idx, ack := range acks {
		if _, err = tx.ExecContext(ctx, markRecordSynced, entityType, ack.ID, ack.UpdatedAt); err != nil {
			l.logger.Err(err).
				Str("func", "localRecordRepository.MarkSynced").
				Int("iteration", idx+1).
				Str("id", ack.ID).
				Msg("failed to mark record synced")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

func (l *localRecordRepository) ApplyRemote(ctx context.Context, record models.Record) (bool, error) {
	payload, err := encodePayload(record.Payload)
	if err != nil {
		return false, err
	}

	res, err := l.DB.ExecContext(ctx, applyRemoteRecord,
		record.EntityType,
		record.ID,
		payload,
		record.Timestamp,
		record.UpdatedAt,
		record.Deleted,
		record.DeletedAt,
	)
	if err != nil {
		l.logger.Err(err).
			Str("func", "localRecordRepository.ApplyRemote").
			Str("id", record.ID).
			Msg("failed to apply remote record")
		return false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return affected > 0, nil
}

func (l *localRecordRepository) CountUnsynced(ctx context.Context) (int, error) {
	var count int
	if err := l.DB.QueryRowContext(ctx, countUnsyncedRecords).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return count, nil
}

func (l *localRecordRepository) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := l.DB.QueryRowContext(ctx, getSyncMeta, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return value, true, nil
}

func (l *localRecordRepository) SetMeta(ctx context.Context, key, value string) error {
	if _, err := l.DB.ExecContext(ctx, setSyncMeta, key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.Record, error) {
	var (
		record    models.Record
		payload   string
		deletedAt sql.NullInt64
	)

	err := row.Scan(
		&record.EntityType,
		&record.ID,
		&payload,
		&record.Timestamp,
		&record.UpdatedAt,
		&record.Deleted,
		&deletedAt,
		&record.Synced,
	)
	if err != nil {
		return models.Record{}, err
	}

	if deletedAt.Valid {
		record.DeletedAt = &deletedAt.Int64
	}

	record.Payload, err = models.DecodePayload(record.EntityType, []byte(payload))
	if err != nil {
		return models.Record{}, err
	}

	return record, nil
}

func encodePayload(payload models.Payload) (string, error) {
	if payload == nil {
		return "", errors.New("record without payload")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error encoding payload: %w", err)
	}
	return string(data), nil
}
