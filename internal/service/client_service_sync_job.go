package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

const (
	triggerInterval = "interval"
	triggerChange   = "change"
	triggerVisible  = "visible"
	triggerOnline   = "online"
)

type syncScheduler struct {
	coordinator SyncCoordinator
	changes     <-chan models.EntityType

	interval time.Duration
	debounce time.Duration

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *logger.Logger
}

// NewSyncScheduler creates a scheduler over coordinator. changes is the local
// store's change channel; each notification restarts the debounce timer.
func NewSyncScheduler(coordinator SyncCoordinator, changes <-chan models.EntityType, cfg config.ClientWorkers, logger *logger.Logger) SyncScheduler {
	return &syncScheduler{
		coordinator: coordinator,
		changes:     changes,
		interval:    cfg.SyncInterval,
		debounce:    cfg.Debounce,
		logger:      logger,
	}
}

// Start implements SyncScheduler. Any previously started triggers are stopped
// first.
func (s *syncScheduler) Start(ctx context.Context) error {
	if s.interval <= 0 || s.debounce <= 0 {
		return fmt.Errorf("invalid schedule: interval %s, debounce %s", s.interval, s.debounce)
	}

	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc("@every "+s.interval.String(), func() { s.trigger(jobCtx, triggerInterval) }); err != nil {
		cancel()
		return fmt.Errorf("schedule periodic sync: %w", err)
	}

	s.cron, s.ctx, s.cancel = c, jobCtx, cancel
	c.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watchChanges(jobCtx)
	}()

	s.logger.Info().
		Dur("interval", s.interval).
		Dur("debounce", s.debounce).
		Msg("sync scheduler started")
	return nil
}

// Stop implements SyncScheduler. Safe to call when the scheduler is not
// running.
func (s *syncScheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.ctx, s.cancel = nil, nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-c.Stop().Done()
	s.wg.Wait()
	s.logger.Info().Msg("sync scheduler stopped")
}

func (s *syncScheduler) SyncNow(ctx context.Context) error {
	return s.coordinator.Sync(ctx)
}

func (s *syncScheduler) NotifyVisible() {
	s.triggerAsync(triggerVisible)
}

func (s *syncScheduler) NotifyOnline() {
	s.triggerAsync(triggerOnline)
}

func (s *syncScheduler) triggerAsync(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return
	}

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.trigger(ctx, reason)
	}()
}

// watchChanges runs a cycle once no change arrived for the debounce period.
func (s *syncScheduler) watchChanges(ctx context.Context) {
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.changes:
			if !ok {
				return
			}
			timer.Reset(s.debounce)
		case <-timer.C:
			s.trigger(ctx, triggerChange)
		}
	}
}

func (s *syncScheduler) trigger(ctx context.Context, reason string) {
	err := s.coordinator.Sync(ctx)

	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrSyncPaused), errors.Is(err, ErrNoCredentials):
		s.logger.Debug().Err(err).Str("trigger", reason).Msg("sync skipped")
	default:
		s.logger.Warn().Err(err).Str("trigger", reason).Msg("triggered sync failed")
	}
}
