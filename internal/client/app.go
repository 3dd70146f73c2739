package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-health-keeper/internal/adapter"
	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/crypto"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/service"
	"github.com/MKhiriev/go-health-keeper/internal/store"
	"github.com/MKhiriev/go-health-keeper/internal/workers"
	"github.com/MKhiriev/go-health-keeper/models"
)

var _ Client = (*App)(nil)

// App is one client process: local storage, the sync engine and its
// background scheduler.
type App struct {
	storages *store.ClientStorages
	services *service.ClientServices
	workers  *workers.Workers

	salt   []byte
	logger *logger.Logger
}

// NewApp opens local storage and wires the sync engine from cfg. Credentials
// from cfg.Auth are applied when both token and passphrase are present.
func NewApp(ctx context.Context, cfg *config.ClientConfig, logger *logger.Logger) (*App, error) {
	envelope := crypto.NewKeyChain()

	salt, err := loadOrCreateSalt(cfg.Auth.SaltFile, envelope)
	if err != nil {
		return nil, err
	}

	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, logger.WithComponent("adapter"))
	if err != nil {
		return nil, fmt.Errorf("create server adapter: %w", err)
	}

	storages, err := store.NewClientStorages(ctx, cfg.Storage, logger.WithComponent("store"))
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	services := service.NewClientServices(storages.RecordStore, serverAdapter, envelope, cfg.Workers, logger)

	app := &App{
		storages: storages,
		services: services,
		workers:  workers.New(services.Scheduler),
		salt:     salt,
		logger:   logger,
	}

	if cfg.Auth.Token != "" || cfg.Auth.Passphrase != "" {
		app.SetCredentials(cfg.Auth.Token, cfg.Auth.Passphrase)
	}

	return app, nil
}

// Store is the record store the host reads and writes.
func (a *App) Store() store.LocalRecordStore {
	return a.storages.RecordStore
}

func (a *App) Scheduler() service.SyncScheduler {
	return a.services.Scheduler
}

// SetCredentials hands a token and passphrase from the authentication flow to
// the coordinator.
func (a *App) SetCredentials(token, passphrase string) {
	a.services.Coordinator.SetCredentials(models.Credentials{
		AuthToken:  token,
		Passphrase: passphrase,
		Salt:       a.salt,
	})
}

func (a *App) SyncNow(ctx context.Context) error {
	return a.services.Scheduler.SyncNow(ctx)
}

// Status returns the status of the last cycle. Before the first cycle of this
// process it falls back to the persisted status of an earlier run.
func (a *App) Status(ctx context.Context) (models.SyncStatus, error) {
	status := a.services.Coordinator.Status()
	if status.LastRunAt != 0 || status.Running {
		return status, nil
	}

	persisted, err := a.Store().LoadStatus(ctx)
	if err != nil {
		return status, err
	}

	pending, err := a.Store().PendingCount(ctx)
	if err != nil {
		return persisted, err
	}
	persisted.Pending = pending
	return persisted, nil
}

func (a *App) Pause()  { a.services.Coordinator.Pause() }
func (a *App) Resume() { a.services.Coordinator.Resume() }

// Run starts the scheduler, runs one cycle right away and blocks until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.workers.Start(ctx); err != nil {
		return fmt.Errorf("start background sync: %w", err)
	}
	defer a.workers.Stop()

	if err := a.SyncNow(ctx); err != nil && !errors.Is(err, service.ErrSyncInProgress) {
		a.logger.Warn().Err(err).Msg("initial sync failed")
	}

	<-ctx.Done()
	return nil
}

func (a *App) Close() error {
	a.workers.Stop()
	return a.storages.Close()
}
