// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/utils"
	"github.com/MKhiriev/go-health-keeper/models"
)

// WriteResult tells which layer accepted a local write.
type WriteResult int

const (
	// WriteDurable means the write reached SQLite.
	WriteDurable WriteResult = iota + 1
	// WriteFallback means SQLite failed and the write is held in the fallback
	// queue until the next successful flush.
	WriteFallback
)

func (w WriteResult) String() string {
	switch w {
	case WriteDurable:
		return "durable"
	case WriteFallback:
		return "fallback"
	default:
		return "none"
	}
}

const (
	statusMetaKey    = "status"
	cursorMetaPrefix = "cursor:"
	changesBuffer    = 16
)

// IDGenerator issues record ids.
type IDGenerator interface {
	Generate() string
}

// RecordStoreOption customizes a record store.
type RecordStoreOption func(*recordStore)

// WithClock replaces the wall clock used to stamp records.
func WithClock(now func() time.Time) RecordStoreOption {
	return func(s *recordStore) { s.now = now }
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(ids IDGenerator) RecordStoreOption {
	return func(s *recordStore) { s.ids = ids }
}

type recordStore struct {
	durable LocalRecordRepository
	queue   *fallbackQueue
	changes chan models.EntityType
	now     func() time.Time
	ids     IDGenerator
	logger  *logger.Logger
}

// NewRecordStore builds the client record store over the durable repository
// and a fallback queue persisted at fallbackPath.
func NewRecordStore(durable LocalRecordRepository, fallbackPath string, fallbackCapacity int, log *logger.Logger, opts ...RecordStoreOption) (LocalRecordStore, error) {
	queue, err := newFallbackQueue(fallbackPath, fallbackCapacity, log)
	if err != nil {
		return nil, err
	}

	s := &recordStore{
		durable: durable,
		queue:   queue,
		changes: make(chan models.EntityType, changesBuffer),
		now:     time.Now,
		ids:     utils.RecordIDs{},
		logger:  log,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *recordStore) Add(ctx context.Context, payload models.Payload, timestamp *int64) (string, WriteResult, error) {
	if payload == nil || !payload.EntityType().Valid() {
		return "", 0, fmt.Errorf("%w: missing payload", models.ErrUnknownEntityType)
	}
	s.flush(ctx)

	now := s.nowMillis()
	record := models.Record{
		ID:         s.ids.Generate(),
		EntityType: payload.EntityType(),
		Payload:    payload,
		Timestamp:  now,
		UpdatedAt:  now,
	}
	if timestamp != nil {
		record.Timestamp = *timestamp
	}

	result, err := s.write(ctx, queuedRecord{Record: record})
	if err != nil {
		return "", 0, err
	}
	return record.ID, result, nil
}

func (s *recordStore) GetAll(ctx context.Context, entityType models.EntityType) ([]models.Record, error) {
	s.flush(ctx)

	durable, err := s.durable.List(ctx, entityType)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("func", "recordStore.GetAll").
			Str("entity_type", entityType.String()).
			Msg("durable read failed, serving fallback queue only")
	}

	byID := make(map[string]models.Record, len(durable))
	for _, record := range durable {
		byID[record.ID] = record
	}

	for _, entry := range s.queue.entries(entityType) {
		base, found := byID[entry.Record.ID]
		switch {
		case found && entry.Record.UpdatedAt <= base.UpdatedAt:
			continue
		case found:
			byID[entry.Record.ID] = mergeQueued(base, entry)
		case !entry.Partial:
			byID[entry.Record.ID] = entry.Record
		}
	}

	out := make([]models.Record, 0, len(byID))
	for _, record := range byID {
		if !record.Deleted {
			out = append(out, record)
		}
	}
	slices.SortFunc(out, func(a, b models.Record) int {
		if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return out, nil
}

func (s *recordStore) Get(ctx context.Context, entityType models.EntityType, id string) (models.Record, error) {
	s.flush(ctx)

	record, err := s.durable.Find(ctx, entityType, id)
	queued, isQueued := s.queue.get(entityType, id)

	if err == nil {
		if isQueued && queued.Record.UpdatedAt > record.UpdatedAt {
			return mergeQueued(record, queued), nil
		}
		return record, nil
	}

	if isQueued && !queued.Partial {
		return queued.Record, nil
	}
	if errors.Is(err, ErrRecordNotFound) {
		return models.Record{}, ErrRecordNotFound
	}
	return models.Record{}, fmt.Errorf("%w: %w", ErrRecordNotFound, err)
}

func (s *recordStore) Update(ctx context.Context, entityType models.EntityType, patch models.RecordPatch) (WriteResult, error) {
	if patch.Payload != nil && patch.Payload.EntityType() != entityType {
		return 0, fmt.Errorf("%w: payload of %s for %s record", models.ErrUnknownEntityType, patch.Payload.EntityType(), entityType)
	}
	s.flush(ctx)

	now := s.nowMillis()
	patchEntry := queuedRecord{
		Record: models.Record{
			ID:         patch.ID,
			EntityType: entityType,
			Payload:    patch.Payload,
			UpdatedAt:  now,
		},
		KeepTimestamp: patch.Timestamp == nil,
	}
	if patch.Timestamp != nil {
		patchEntry.Record.Timestamp = *patch.Timestamp
	}

	base, err := s.durable.Find(ctx, entityType, patch.ID)
	if err == nil {
		patchEntry.Record.UpdatedAt = max(now, base.UpdatedAt+1)
		return s.write(ctx, queuedRecord{Record: mergeQueued(base, patchEntry)})
	}

	queued, isQueued := s.queue.get(entityType, patch.ID)
	if isQueued && !queued.Partial {
		patchEntry.Record.UpdatedAt = max(now, queued.Record.UpdatedAt+1)
		return s.queueWrite(ctx, queuedRecord{Record: mergeQueued(queued.Record, patchEntry)})
	}

	if isQueued {
		patchEntry.Record.UpdatedAt = max(now, queued.Record.UpdatedAt+1)
		patchEntry = stackPatches(queued, patchEntry)
	}

	if errors.Is(err, ErrRecordNotFound) {
		// a patch that carries a payload is enough to create the record
		if patchEntry.Record.Payload == nil {
			return 0, ErrRecordNotFound
		}
		if patchEntry.KeepTimestamp {
			patchEntry.Record.Timestamp = now
		}
		return s.write(ctx, queuedRecord{Record: patchEntry.Record})
	}

	// SQLite is unreachable and the base record is unknown: hold the patch.
	patchEntry.Partial = true
	return s.queueWrite(ctx, patchEntry)
}

func (s *recordStore) Delete(ctx context.Context, entityType models.EntityType, id string) (WriteResult, error) {
	s.flush(ctx)

	now := s.nowMillis()
	base, err := s.durable.Find(ctx, entityType, id)
	if err == nil {
		return s.write(ctx, queuedRecord{Record: tombstone(base, now)})
	}

	queued, isQueued := s.queue.get(entityType, id)
	if errors.Is(err, ErrRecordNotFound) {
		if !isQueued {
			return 0, ErrRecordNotFound
		}
		// never reached SQLite, so there is nothing to propagate
		if rmErr := s.queue.remove(entityType, id); rmErr != nil {
			return 0, fmt.Errorf("%w: %w", ErrStorageUnavailable, rmErr)
		}
		s.notify(entityType)
		return WriteFallback, nil
	}

	if isQueued && !queued.Partial {
		return s.queueWrite(ctx, queuedRecord{Record: tombstone(queued.Record, now)})
	}

	entry := queuedRecord{
		Record: models.Record{
			ID:         id,
			EntityType: entityType,
			UpdatedAt:  now,
			Deleted:    true,
			DeletedAt:  &now,
		},
		Partial:       true,
		KeepTimestamp: true,
	}
	if isQueued {
		entry.Record.UpdatedAt = max(now, queued.Record.UpdatedAt+1)
		entry = stackPatches(queued, entry)
	}
	return s.queueWrite(ctx, entry)
}

func (s *recordStore) Changes() <-chan models.EntityType {
	return s.changes
}

func (s *recordStore) Unsynced(ctx context.Context, entityType models.EntityType) ([]models.Record, error) {
	s.flush(ctx)
	return s.durable.ListUnsynced(ctx, entityType)
}

func (s *recordStore) MarkSynced(ctx context.Context, entityType models.EntityType, acks []models.SyncAck) error {
	return s.durable.MarkSynced(ctx, entityType, acks)
}

func (s *recordStore) ApplyRemote(ctx context.Context, record models.Record) (bool, error) {
	s.flush(ctx)
	return s.durable.ApplyRemote(ctx, record)
}

func (s *recordStore) Cursor(ctx context.Context, userID int64) (int64, error) {
	value, ok, err := s.durable.GetMeta(ctx, cursorKey(userID))
	if err != nil || !ok {
		return 0, err
	}

	cursor, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored cursor %q: %w", value, err)
	}
	return cursor, nil
}

func (s *recordStore) SaveCursor(ctx context.Context, userID int64, cursor int64) error {
	return s.durable.SetMeta(ctx, cursorKey(userID), strconv.FormatInt(cursor, 10))
}

func (s *recordStore) SaveStatus(ctx context.Context, status models.SyncStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("error encoding sync status: %w", err)
	}
	return s.durable.SetMeta(ctx, statusMetaKey, string(data))
}

func (s *recordStore) LoadStatus(ctx context.Context) (models.SyncStatus, error) {
	value, ok, err := s.durable.GetMeta(ctx, statusMetaKey)
	if err != nil || !ok {
		return models.SyncStatus{}, err
	}

	var status models.SyncStatus
	if err = json.Unmarshal([]byte(value), &status); err != nil {
		return models.SyncStatus{}, fmt.Errorf("error decoding sync status: %w", err)
	}
	return status, nil
}

// PendingCount counts records waiting for a push plus writes still held in
// the fallback queue.
func (s *recordStore) PendingCount(ctx context.Context) (int, error) {
	queued := s.queue.size()

	unsynced, err := s.durable.CountUnsynced(ctx)
	if err != nil {
		return queued, err
	}
	return unsynced + queued, nil
}

// write tries SQLite first and falls back to the queue.
func (s *recordStore) write(ctx context.Context, entry queuedRecord) (WriteResult, error) {
	entry.Record.Synced = false

	err := s.durable.Save(ctx, entry.Record)
	if err == nil {
		s.notify(entry.Record.EntityType)
		return WriteDurable, nil
	}

	s.logger.Warn().Err(err).
		Str("func", "recordStore.write").
		Str("entity_type", entry.Record.EntityType.String()).
		Str("id", entry.Record.ID).
		Msg("durable write failed, queueing record")

	result, queueErr := s.queueWrite(ctx, entry)
	if queueErr != nil {
		return 0, fmt.Errorf("%w: %w", queueErr, err)
	}
	return result, nil
}

func (s *recordStore) queueWrite(_ context.Context, entry queuedRecord) (WriteResult, error) {
	entry.Record.Synced = false

	if err := s.queue.put(entry); err != nil {
		s.logger.Err(err).
			Str("func", "recordStore.queueWrite").
			Str("id", entry.Record.ID).
			Msg("fallback queue write failed")
		return 0, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s.notify(entry.Record.EntityType)
	return WriteFallback, nil
}

// flush moves queued writes into SQLite, one entity type at a time. A type
// whose flush fails stays queued; the others proceed.
func (s *recordStore) flush(ctx context.Context) {
	for _, entityType := range s.queue.types() {
		entries := s.queue.entries(entityType)
		flushed := make([]queuedRecord, 0, len(entries))

		var flushErr error
		for _, entry := range entries {
			if flushErr = s.flushEntry(ctx, entry); flushErr != nil {
				break
			}
			flushed = append(flushed, entry)
		}

		if flushErr != nil {
			s.logger.Debug().Err(flushErr).
				Str("func", "recordStore.flush").
				Str("entity_type", entityType.String()).
				Msg("fallback flush failed, keeping type queued")
			continue
		}

		if err := s.queue.removeFlushed(entityType, flushed); err != nil {
			s.logger.Warn().Err(err).
				Str("func", "recordStore.flush").
				Str("entity_type", entityType.String()).
				Msg("failed to rewrite fallback queue after flush")
		}
	}
}

func (s *recordStore) flushEntry(ctx context.Context, entry queuedRecord) error {
	base, err := s.durable.Find(ctx, entry.Record.EntityType, entry.Record.ID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		if entry.Partial {
			s.logger.Warn().
				Str("func", "recordStore.flushEntry").
				Str("id", entry.Record.ID).
				Msg("dropping queued patch of a record that does not exist")
			return nil
		}
		return s.durable.Save(ctx, entry.Record)
	case err != nil:
		return err
	case base.UpdatedAt >= entry.Record.UpdatedAt:
		// SQLite already holds this write or a newer one
		return nil
	}

	merged := entry.Record
	if entry.Partial {
		merged = mergeQueued(base, entry)
	}
	merged.Synced = false
	return s.durable.Save(ctx, merged)
}

// notify never blocks: one pending signal is enough for the debounced
// listener.
func (s *recordStore) notify(entityType models.EntityType) {
	select {
	case s.changes <- entityType:
	default:
	}
}

func (s *recordStore) nowMillis() int64 {
	return s.now().UnixMilli()
}

func cursorKey(userID int64) string {
	return cursorMetaPrefix + strconv.FormatInt(userID, 10)
}

// mergeQueued applies a queued write on top of base. Full records replace
// base; partial patches keep base values for the fields they do not carry.
func mergeQueued(base models.Record, entry queuedRecord) models.Record {
	merged := base
	merged.UpdatedAt = entry.Record.UpdatedAt
	merged.Synced = false

	if entry.Record.Deleted {
		merged.Deleted = true
		merged.DeletedAt = entry.Record.DeletedAt
		return merged
	}

	merged.Deleted = false
	merged.DeletedAt = nil
	if entry.Record.Payload != nil {
		merged.Payload = entry.Record.Payload
	}
	if !entry.KeepTimestamp {
		merged.Timestamp = entry.Record.Timestamp
	}
	return merged
}

// stackPatches folds a newer partial patch onto an older queued one.
func stackPatches(older, newer queuedRecord) queuedRecord {
	out := newer
	if !newer.Record.Deleted {
		if out.Record.Payload == nil {
			out.Record.Payload = older.Record.Payload
		}
		if newer.KeepTimestamp && !older.KeepTimestamp {
			out.Record.Timestamp = older.Record.Timestamp
			out.KeepTimestamp = false
		}
	}
	return out
}

func tombstone(record models.Record, now int64) models.Record {
	record.UpdatedAt = max(now, record.UpdatedAt+1)
	record.Deleted = true
	record.DeletedAt = &now
	record.Synced = false
	return record
}
