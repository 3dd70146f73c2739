package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/metrics"
	"github.com/MKhiriev/go-health-keeper/internal/service"
	"github.com/MKhiriev/go-health-keeper/internal/utils"
	"github.com/MKhiriev/go-health-keeper/models"
)

const validToken = "valid-token"

type mockAuthService struct {
	parseTokenFn func(ctx context.Context, s string) (models.Token, error)
}

func (m *mockAuthService) CreateToken(context.Context, int64) (models.Token, error) {
	return models.Token{}, nil
}

func (m *mockAuthService) ParseToken(ctx context.Context, s string) (models.Token, error) {
	if m.parseTokenFn != nil {
		return m.parseTokenFn(ctx, s)
	}
	if s != validToken {
		return models.Token{}, service.ErrTokenIsExpiredOrInvalid
	}
	return models.Token{UserID: 42}, nil
}

type mockSyncService struct {
	pushFn func(ctx context.Context, userID int64, req models.PushRequest) (models.PushResponse, error)
	pullFn func(ctx context.Context, req models.PullRequest) (models.PullResponse, error)
}

func (m *mockSyncService) Push(ctx context.Context, userID int64, req models.PushRequest) (models.PushResponse, error) {
	return m.pushFn(ctx, userID, req)
}

func (m *mockSyncService) Pull(ctx context.Context, req models.PullRequest) (models.PullResponse, error) {
	return m.pullFn(ctx, req)
}

type mockAppInfoService struct {
	version string
}

func (m *mockAppInfoService) GetAppVersion(context.Context) string {
	return m.version
}

func (m *mockAppInfoService) GetServerInfo(context.Context) models.ServerInfo {
	return models.ServerInfo{
		Version:          m.version,
		PushMaxEntries:   models.MaxPushEntries,
		PullDefaultLimit: 500,
		PullMaxLimit:     1000,
	}
}

type mockHealthService struct {
	err error
}

func (m *mockHealthService) Check(context.Context) error {
	return m.err
}

func newTestHandler(t *testing.T, syncSvc service.SyncService) (*Handler, *metrics.SyncMetrics) {
	t.Helper()

	syncMetrics := metrics.NewSyncMetrics(prometheus.NewRegistry())
	services := &service.Services{
		AuthService:    &mockAuthService{},
		SyncService:    syncSvc,
		AppInfoService: &mockAppInfoService{version: "test-version"},
		HealthService:  &mockHealthService{},
	}
	return NewHandler(services, syncMetrics, logger.Nop()), syncMetrics
}

// authedRequest builds a request that already passed the auth middleware.
func authedRequest(method, target, body string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	nop := logger.Nop()
	ctx := nop.Logger.WithContext(req.Context())
	return req.WithContext(utils.WithUserID(ctx, userID))
}
