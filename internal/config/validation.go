// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"strings"

	"github.com/MKhiriev/go-health-keeper/models"
)

// validate checks that the merged server config can be used at startup.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return fmt.Errorf("%w: empty database DSN", ErrInvalidStorageConfigs)
	}

	if cfg.App.TokenSignKey == "" || cfg.App.TokenIssuer == "" {
		return fmt.Errorf("%w: token sign key and issuer are required", ErrInvalidAppConfigs)
	}

	if cfg.Server.HTTPAddress == "" || cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("%w: address and request timeout are required", ErrInvalidServerConfigs)
	}

	if cfg.Server.PullMaxLimit <= 0 || cfg.Server.PullDefaultLimit <= 0 ||
		cfg.Server.PullDefaultLimit > cfg.Server.PullMaxLimit {
		return fmt.Errorf("%w: pull limits must satisfy 0 < default <= max", ErrInvalidServerConfigs)
	}

	return nil
}

// validate checks that the merged client config can be used at startup.
func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, ":memory:") {
		return fmt.Errorf("%w: a file DSN is required", ErrInvalidStorageConfigs)
	}

	if cfg.Storage.FallbackPath == "" || cfg.Storage.FallbackCapacity <= 0 {
		return fmt.Errorf("%w: fallback path and capacity are required", ErrInvalidStorageConfigs)
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 || cfg.Adapter.RetryCount < 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.Debounce <= 0 ||
		cfg.Workers.PushBatchSize <= 0 || cfg.Workers.PullPageSize <= 0 {
		return ErrInvalidWorkerConfigs
	}

	// larger batches are rejected by the endpoint, larger pages are cut short
	if cfg.Workers.PushBatchSize > models.MaxPushEntries {
		return fmt.Errorf("%w: push batch size %d exceeds %d", ErrInvalidWorkerConfigs, cfg.Workers.PushBatchSize, models.MaxPushEntries)
	}
	if cfg.Workers.PullPageSize > models.MaxPullLimit {
		return fmt.Errorf("%w: pull page size %d exceeds %d", ErrInvalidWorkerConfigs, cfg.Workers.PullPageSize, models.MaxPullLimit)
	}

	return nil
}
