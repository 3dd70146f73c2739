// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators provides abstractions for input validation and
// enforcement of business rules across the application.
//
// Validation rules live on the wire models as go-playground/validator tags.
// The package adds the domain tags (entity_type) and maps validator errors to
// sentinel errors the HTTP layer understands.
package validators

import "context"

// Validator defines a generic validation interface for arbitrary input values.
// Implementations may perform structural validation, semantic checks and
// cross-field rules.
type Validator interface {

	// Validate validates the provided input. When field names are given only
	// those struct fields are checked.
	Validate(context.Context, any, ...string) error
}
