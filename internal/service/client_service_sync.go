// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-health-keeper/internal/adapter"
	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/crypto"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/store"
	"github.com/MKhiriev/go-health-keeper/internal/utils"
	"github.com/MKhiriev/go-health-keeper/models"
)

type syncCoordinator struct {
	store    store.LocalRecordStore
	adapter  adapter.ServerAdapter
	envelope crypto.Envelope

	pushBatchSize int
	pullPageSize  int

	// running is held for the whole cycle; TryLock makes Sync single-flight.
	running sync.Mutex

	mu           sync.RWMutex
	creds        models.Credentials
	key          []byte
	userID       int64
	paused       bool
	authRequired bool
	status       models.SyncStatus

	now    func() time.Time
	logger *logger.Logger
}

// NewSyncCoordinator builds a coordinator. It does nothing until credentials
// are supplied through SetCredentials.
func NewSyncCoordinator(localStore store.LocalRecordStore, serverAdapter adapter.ServerAdapter,
	envelope crypto.Envelope, cfg config.ClientWorkers, logger *logger.Logger) SyncCoordinator {
	return &syncCoordinator{
		store:         localStore,
		adapter:       serverAdapter,
		envelope:      envelope,
		pushBatchSize: cfg.PushBatchSize,
		pullPageSize:  cfg.PullPageSize,
		now:           time.Now,
		logger:        logger,
	}
}

func (c *syncCoordinator) SetCredentials(creds models.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if creds.AuthToken != c.creds.AuthToken {
		c.authRequired = false
		c.status.AuthRequired = false

		userID, err := utils.ParseUserIDFromJWT(creds.AuthToken)
		if err != nil {
			c.logger.Warn().Err(err).
				Str("func", "*syncCoordinator.SetCredentials").
				Msg("token subject is not a user id, using the shared cursor")
		}
		c.userID = userID
		c.adapter.SetToken(creds.AuthToken)
	}

	if creds.Passphrase != c.creds.Passphrase || !bytes.Equal(creds.Salt, c.creds.Salt) || c.key == nil {
		c.key = nil
		if creds.Passphrase != "" {
			c.key = c.envelope.DeriveKey(creds.Passphrase, creds.Salt)
		}
	}

	c.creds = creds
}

func (c *syncCoordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

func (c *syncCoordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

func (c *syncCoordinator) Status() models.SyncStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *syncCoordinator) Sync(ctx context.Context) error {
	if !c.running.TryLock() {
		return ErrSyncInProgress
	}
	defer c.running.Unlock()

	c.mu.Lock()
	switch {
	case c.paused:
		c.mu.Unlock()
		return ErrSyncPaused
	case !c.creds.Complete():
		c.mu.Unlock()
		return ErrNoCredentials
	case c.authRequired:
		c.mu.Unlock()
		return ErrAuthRequired
	}
	key, userID := c.key, c.userID
	c.status.Running = true
	c.mu.Unlock()

	status := models.SyncStatus{LastRunAt: c.now().UnixMilli()}

	err := c.push(ctx, key, &status)
	if !adapter.IsAuthError(err) {
		err = errors.Join(err, c.pull(ctx, key, userID, &status))
	}

	return c.finish(ctx, status, err)
}

// push sends every entity type independently. Only an authentication failure
// stops the remaining types.
func (c *syncCoordinator) push(ctx context.Context, key []byte, status *models.SyncStatus) error {
	var errs []error

	for _, entityType := range models.AllEntityTypes() {
		records, err := c.store.Unsynced(ctx, entityType)
		if err != nil {
			errs = append(errs, fmt.Errorf("read unsynced %s: %w", entityType, err))
			continue
		}

		for iteration, batch := range chunk(records, c.pushBatchSize) {
			pushed, err := c.pushBatch(ctx, entityType, batch, key)
			status.Pushed += pushed
			if err == nil {
				continue
			}

			c.logger.Err(err).
				Str("func", "*syncCoordinator.push").
				Str("entity_type", entityType.String()).
				Int("iteration", iteration).
				Msg("push batch failed")

			if adapter.IsAuthError(err) {
				return err
			}
			errs = append(errs, fmt.Errorf("push %s: %w", entityType, err))
			break
		}
	}

	return errors.Join(errs...)
}

func (c *syncCoordinator) pushBatch(ctx context.Context, entityType models.EntityType, batch []models.Record, key []byte) (int, error) {
	entries := make([]models.PushEntry, 0, len(batch))
	versions := make(map[string]int64, len(batch))

	for _, record := range batch {
		sealed, err := c.envelope.Seal(record.Payload, key)
		if err != nil {
			c.logger.Err(err).
				Str("func", "*syncCoordinator.pushBatch").
				Str("id", record.ID).
				Msg("failed to seal payload, record left unsynced")
			continue
		}

		entries = append(entries, models.PushEntry{
			ID:            record.ID,
			EntityType:    record.EntityType,
			SealedPayload: sealed,
			Timestamp:     record.Timestamp,
			UpdatedAt:     record.UpdatedAt,
			Deleted:       record.Deleted,
			DeletedAt:     record.DeletedAt,
		})
		versions[record.ID] = record.UpdatedAt
	}
	if len(entries) == 0 {
		return 0, nil
	}

	resp, err := c.adapter.Push(ctx, entries)
	if err != nil {
		return 0, err
	}

	acks := make([]models.SyncAck, 0, len(resp.AcceptedIDs))
	for _, id := range resp.AcceptedIDs {
		if updatedAt, ok := versions[id]; ok {
			acks = append(acks, models.SyncAck{ID: id, UpdatedAt: updatedAt})
		}
	}
	if len(acks) == 0 {
		return 0, nil
	}

	if err = c.store.MarkSynced(ctx, entityType, acks); err != nil {
		return 0, fmt.Errorf("mark synced: %w", err)
	}
	return len(acks), nil
}

// pull walks the change feed from the stored cursor. The cursor is saved only
// after every page was applied.
func (c *syncCoordinator) pull(ctx context.Context, key []byte, userID int64, status *models.SyncStatus) error {
	cursor, err := c.store.Cursor(ctx, userID)
	if err != nil {
		return fmt.Errorf("read cursor: %w", err)
	}

	for {
		page, err := c.adapter.Pull(ctx, cursor, c.pullPageSize)
		if err != nil {
			return fmt.Errorf("pull: %w", err)
		}

		next := cursor
		for _, entry := range page.Entries {
			next = max(next, entry.ServerUpdatedAt)

			record, ok := c.openEntry(entry, key)
			if !ok {
				status.Skipped++
				continue
			}

			applied, err := c.store.ApplyRemote(ctx, record)
			if err != nil {
				return fmt.Errorf("apply %s %s: %w", record.EntityType, record.ID, err)
			}
			if applied {
				status.Pulled++
			}
		}

		// the server may cap the page below what was asked for
		pageSize := c.pullPageSize
		if page.Limit > 0 {
			pageSize = min(pageSize, page.Limit)
		}

		advanced := next > cursor
		cursor = next
		if len(page.Entries) < pageSize || !advanced {
			break
		}
	}

	if err = c.store.SaveCursor(ctx, userID, cursor); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

// openEntry decrypts and decodes one feed entry. Entries that cannot be read
// by this client are skipped, never fatal.
func (c *syncCoordinator) openEntry(entry models.PullEntry, key []byte) (models.Record, bool) {
	entityType, err := models.ResolveEntityType(entry.EntityType.String())
	if err != nil {
		c.logSkipped(entry, err, "skipping entry of unknown type")
		return models.Record{}, false
	}

	plain, ok := c.envelope.Open(entry.SealedPayload, key)
	if !ok {
		c.logSkipped(entry, nil, "skipping entry that does not decrypt")
		return models.Record{}, false
	}

	payload, err := models.DecodePayload(entityType, plain)
	if err != nil {
		c.logSkipped(entry, err, "skipping entry with unreadable payload")
		return models.Record{}, false
	}

	return models.Record{
		ID:         entry.ID,
		EntityType: entityType,
		Payload:    payload,
		Timestamp:  entry.Timestamp,
		UpdatedAt:  entry.UpdatedAt,
		Deleted:    entry.Deleted,
		DeletedAt:  entry.DeletedAt,
		Synced:     true,
	}, true
}

func (c *syncCoordinator) logSkipped(entry models.PullEntry, err error, msg string) {
	c.logger.Warn().Err(err).
		Str("func", "*syncCoordinator.openEntry").
		Str("id", entry.ID).
		Str("entity_type", entry.EntityType.String()).
		Msg(msg)
}

func (c *syncCoordinator) finish(ctx context.Context, status models.SyncStatus, cycleErr error) error {
	if adapter.IsAuthError(cycleErr) {
		cycleErr = fmt.Errorf("%w: %w", ErrAuthRequired, cycleErr)
	}

	pending, err := c.store.PendingCount(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("func", "*syncCoordinator.finish").Msg("pending count is partial")
	}
	status.Pending = pending
	if cycleErr != nil {
		status.LastError = cycleErr.Error()
	}

	c.mu.Lock()
	if errors.Is(cycleErr, ErrAuthRequired) {
		c.authRequired = true
	}
	status.AuthRequired = c.authRequired
	c.status = status
	c.mu.Unlock()

	if err = c.store.SaveStatus(ctx, status); err != nil {
		c.logger.Err(err).Str("func", "*syncCoordinator.finish").Msg("failed to persist sync status")
	}

	c.logger.Info().
		Int("pushed", status.Pushed).
		Int("pulled", status.Pulled).
		Int("skipped", status.Skipped).
		Int("pending", status.Pending).
		AnErr("error", cycleErr).
		Msg("sync cycle finished")

	return cycleErr
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	return slices.Collect(slices.Chunk(items, max(size, 1)))
}
