package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/metrics"
	"github.com/MKhiriev/go-health-keeper/internal/store"
	"github.com/MKhiriev/go-health-keeper/internal/validators"
	"github.com/MKhiriev/go-health-keeper/models"
)

// syncService is the concrete implementation of SyncService.
type syncService struct {
	repository store.RecordRepository
	validator  validators.Validator
	metrics    *metrics.SyncMetrics

	defaultLimit int
	maxLimit     int

	now    func() time.Time
	logger *logger.Logger
}

// NewSyncService constructs a SyncService. metrics may be nil.
func NewSyncService(repository store.RecordRepository, validator validators.Validator, cfg config.Server,
	syncMetrics *metrics.SyncMetrics, logger *logger.Logger) SyncService {
	return &syncService{
		repository:   repository,
		validator:    validator,
		metrics:      syncMetrics,
		defaultLimit: cfg.PullDefaultLimit,
		maxLimit:     cfg.PullMaxLimit,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *syncService) Push(ctx context.Context, userID int64, req models.PushRequest) (models.PushResponse, error) {
	log := logger.FromContext(ctx)

	if userID <= 0 {
		return models.PushResponse{}, ErrNoUserID
	}
	if err := s.validator.Validate(ctx, req); err != nil {
		log.Err(err).Str("func", "*syncService.Push").Msg("invalid push request")
		return models.PushResponse{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	// aliases are stored under the canonical tag
	entries := make([]models.PushEntry, len(req.Entries))
	for i, entry := range req.Entries {
		entityType, err := models.ResolveEntityType(entry.EntityType.String())
		if err != nil {
			return models.PushResponse{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
		}
		entry.EntityType = entityType
		entries[i] = entry
	}

	resp, err := s.repository.UpsertBatch(ctx, userID, entries, s.now().UnixMilli())
	if err != nil {
		log.Err(err).
			Str("func", "*syncService.Push").
			Int64("user_id", userID).
			Int("entries", len(entries)).
			Msg("push batch failed")
		return models.PushResponse{}, err
	}

	s.metrics.ObservePush(len(resp.AcceptedIDs), len(resp.SkippedIDs))
	log.Debug().
		Str("func", "*syncService.Push").
		Int64("user_id", userID).
		Int("accepted", len(resp.AcceptedIDs)).
		Int("skipped", len(resp.SkippedIDs)).
		Msg("push batch stored")

	return resp, nil
}

func (s *syncService) Pull(ctx context.Context, req models.PullRequest) (models.PullResponse, error) {
	log := logger.FromContext(ctx)

	if req.UserID <= 0 {
		return models.PullResponse{}, ErrNoUserID
	}
	if err := s.validator.Validate(ctx, req); err != nil {
		log.Err(err).Str("func", "*syncService.Pull").Msg("invalid pull request")
		return models.PullResponse{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	limit := s.clampLimit(req.Limit)
	entries, err := s.repository.ChangesSince(ctx, req.UserID, req.Since, limit)
	if err != nil {
		log.Err(err).
			Str("func", "*syncService.Pull").
			Int64("user_id", req.UserID).
			Int64("since", req.Since).
			Msg("reading change feed failed")
		return models.PullResponse{}, err
	}

	next := req.Since
	for _, entry := range entries {
		next = max(next, entry.ServerUpdatedAt)
	}
	if entries == nil {
		entries = []models.PullEntry{}
	}

	s.metrics.ObservePull(len(entries))

	return models.PullResponse{
		Entries:    entries,
		NextCursor: next,
		ServerTime: s.now().UnixMilli(),
		Limit:      limit,
	}, nil
}

// clampLimit applies the default to non-positive limits and caps the rest.
func (s *syncService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	return min(limit, s.maxLimit)
}
