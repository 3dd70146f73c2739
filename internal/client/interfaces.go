// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "context"

// Client is the lifecycle contract of a runnable client application.
type Client interface {
	// Run starts background sync and blocks until ctx is cancelled.
	Run(ctx context.Context) error

	// Close releases local storage.
	Close() error
}
