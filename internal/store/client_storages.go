package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
)

// ClientStorages groups the client-side storage: the SQLite handle and the
// record store built on it.
type ClientStorages struct {
	// RecordStore is the offline-first record store used by the host shell
	// and the sync coordinator.
	RecordStore LocalRecordStore

	db *DB
}

// NewClientStorages initialises the client storage layer:
//  1. Opens the SQLite file at cfg.DB.DSN, creating it if needed.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Builds the record store with its fallback queue at cfg.FallbackPath.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, logger *logger.Logger, opts ...RecordStoreOption) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	recordStore, err := NewRecordStore(NewLocalRecordRepository(db, logger), cfg.FallbackPath, cfg.FallbackCapacity, logger, opts...)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating record store: %w", err)
	}

	return &ClientStorages{
		RecordStore: recordStore,
		db:          db,
	}, nil
}

// Close releases the SQLite handle.
func (c *ClientStorages) Close() error {
	return c.db.Close()
}
