package service

import (
	"context"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

type appInfoService struct {
	info models.ServerInfo

	logger *logger.Logger
}

// NewAppInfoService describes the running endpoint. The version is mandatory,
// the change-feed limits are copied from the server settings.
func NewAppInfoService(app config.App, server config.Server, logger *logger.Logger) (AppInfoService, error) {
	if app.Version == "" {
		return nil, ErrVersionIsNotSpecified
	}

	return &appInfoService{
		info: models.ServerInfo{
			Version:          app.Version,
			PushMaxEntries:   models.MaxPushEntries,
			PullDefaultLimit: server.PullDefaultLimit,
			PullMaxLimit:     server.PullMaxLimit,
		},
		logger: logger,
	}, nil
}

func (s *appInfoService) GetAppVersion(context.Context) string {
	return s.info.Version
}

func (s *appInfoService) GetServerInfo(context.Context) models.ServerInfo {
	return s.info
}
