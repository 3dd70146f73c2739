package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

type countingCoordinator struct {
	calls atomic.Int32
	err   error
}

func (c *countingCoordinator) Sync(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func (c *countingCoordinator) Status() models.SyncStatus        { return models.SyncStatus{} }
func (c *countingCoordinator) SetCredentials(models.Credentials) {}
func (c *countingCoordinator) Pause()                            {}
func (c *countingCoordinator) Resume()                           {}

func TestSyncScheduler_SyncNow(t *testing.T) {
	coordinator := &countingCoordinator{err: ErrSyncPaused}
	s := NewSyncScheduler(coordinator, nil, testWorkers, logger.Nop())

	assert.ErrorIs(t, s.SyncNow(context.Background()), ErrSyncPaused)
	assert.Equal(t, int32(1), coordinator.calls.Load())
}

func TestSyncScheduler_InvalidSchedule(t *testing.T) {
	s := NewSyncScheduler(&countingCoordinator{}, nil, config.ClientWorkers{Debounce: time.Second}, logger.Nop())
	assert.Error(t, s.Start(context.Background()))

	s = NewSyncScheduler(&countingCoordinator{}, nil, config.ClientWorkers{SyncInterval: time.Second}, logger.Nop())
	assert.Error(t, s.Start(context.Background()))
}

func TestSyncScheduler_DebouncesChanges(t *testing.T) {
	coordinator := &countingCoordinator{}
	changes := make(chan models.EntityType, 16)
	s := NewSyncScheduler(coordinator, changes, testWorkers, logger.Nop())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	for range 5 {
		changes <- models.EntityIntake
	}

	assert.Eventually(t, func() bool { return coordinator.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(5 * testWorkers.Debounce)
	assert.Equal(t, int32(1), coordinator.calls.Load(), "a burst of changes runs one cycle")
}

func TestSyncScheduler_NotifyTriggers(t *testing.T) {
	coordinator := &countingCoordinator{}
	s := NewSyncScheduler(coordinator, nil, testWorkers, logger.Nop())

	// not started yet
	s.NotifyVisible()
	assert.Zero(t, coordinator.calls.Load())

	require.NoError(t, s.Start(context.Background()))
	s.NotifyVisible()
	s.NotifyOnline()
	s.Stop()

	assert.Equal(t, int32(2), coordinator.calls.Load())

	s.NotifyOnline()
	assert.Equal(t, int32(2), coordinator.calls.Load(), "stopped scheduler ignores notifications")
}

func TestSyncScheduler_PeriodicTrigger(t *testing.T) {
	coordinator := &countingCoordinator{}
	cfg := testWorkers
	cfg.SyncInterval = time.Second
	s := NewSyncScheduler(coordinator, nil, cfg, logger.Nop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return coordinator.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestSyncScheduler_StopIsIdempotent(t *testing.T) {
	s := NewSyncScheduler(&countingCoordinator{}, make(chan models.EntityType), testWorkers, logger.Nop())

	s.Stop()
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()
}
