package http

import (
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/metrics"
	"github.com/MKhiriev/go-health-keeper/internal/service"
)

// Handler serves the replication endpoint's REST API. It owns no state of its
// own beyond the service set and optional sync metrics.
type Handler struct {
	services *service.Services
	metrics  *metrics.SyncMetrics

	logger *logger.Logger
}

// NewHandler builds the REST handler. syncMetrics may be nil, in which case
// /metrics is not registered.
func NewHandler(services *service.Services, syncMetrics *metrics.SyncMetrics, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		metrics:  syncMetrics,
		logger:   logger,
	}
}
