package validators

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MKhiriev/go-health-keeper/models"
)

// SyncValidator validates push and pull requests of the replication
// endpoint.
type SyncValidator struct {
	validate *validator.Validate
}

// NewSyncValidator builds a validator with the entity_type tag registered.
func NewSyncValidator() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("entity_type", validateEntityType)
	v.RegisterTagNameFunc(jsonFieldName)

	return &SyncValidator{validate: v}
}

func (v *SyncValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.PushRequest:
		return v.check(ctx, ErrInvalidPushRequest, &value, fields...)
	case *models.PushRequest:
		return v.check(ctx, ErrInvalidPushRequest, value, fields...)

	case models.PushEntry:
		return v.check(ctx, ErrInvalidPushRequest, &value, fields...)
	case *models.PushEntry:
		return v.check(ctx, ErrInvalidPushRequest, value, fields...)

	case models.PullRequest:
		return v.check(ctx, ErrInvalidPullRequest, &value, fields...)
	case *models.PullRequest:
		return v.check(ctx, ErrInvalidPullRequest, value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *SyncValidator) check(ctx context.Context, sentinel error, obj any, fields ...string) error {
	if obj == nil {
		return sentinel
	}

	var err error
	if len(fields) > 0 {
		err = v.validate.StructPartialCtx(ctx, obj, fields...)
	} else {
		err = v.validate.StructCtx(ctx, obj)
	}
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %s", sentinel, describe(err))
}

// describe renders validator errors as "field: rule" pairs without leaking Go
// struct names.
func describe(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	parts := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}

		rule := e.Tag()
		if e.Param() != "" {
			rule += "=" + e.Param()
		}
		parts = append(parts, field+": "+rule)
	}
	return strings.Join(parts, ", ")
}

func validateEntityType(fl validator.FieldLevel) bool {
	_, err := models.ResolveEntityType(fl.Field().String())
	return err == nil
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
