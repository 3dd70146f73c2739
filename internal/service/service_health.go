package service

import (
	"context"
	"fmt"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type healthService struct {
	db pinger
}

func NewHealthService(db pinger) HealthService {
	return &healthService{db: db}
}

func (h *healthService) Check(ctx context.Context) error {
	if err := h.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIsUnhealthy, err)
	}
	return nil
}
