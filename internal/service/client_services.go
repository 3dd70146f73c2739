package service

import (
	"github.com/MKhiriev/go-health-keeper/internal/adapter"
	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/crypto"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/store"
)

type ClientServices struct {
	Coordinator SyncCoordinator
	Scheduler   SyncScheduler
}

func NewClientServices(localStore store.LocalRecordStore, serverAdapter adapter.ServerAdapter, envelope crypto.Envelope,
	cfg config.ClientWorkers, logger *logger.Logger) *ClientServices {
	coordinator := NewSyncCoordinator(localStore, serverAdapter, envelope, cfg, logger.WithComponent("coordinator"))

	return &ClientServices{
		Coordinator: coordinator,
		Scheduler:   NewSyncScheduler(coordinator, localStore.Changes(), cfg, logger.WithComponent("scheduler")),
	}
}
