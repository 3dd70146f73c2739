package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-health-keeper/internal/service"
	"github.com/MKhiriev/go-health-keeper/internal/store"
)

var errorStatusMap = map[error]int{
	ErrInvalidJSON:       http.StatusBadRequest,
	ErrInvalidQueryParam: http.StatusBadRequest,

	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrNoUserID:                http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrStorageIsUnhealthy:      http.StatusServiceUnavailable,

	store.ErrSerializationConflict: http.StatusConflict,
	store.ErrEmptyBatch:            http.StatusBadRequest,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
	store.ErrScanningRows:         http.StatusInternalServerError,
}

// statusFromError picks the most specific status for err. Client errors win
// over server errors when err wraps several sentinels.
func statusFromError(err error) int {
	status := http.StatusInternalServerError
	matched := false
	for target, code := range errorStatusMap {
		if !errors.Is(err, target) {
			continue
		}
		if !matched || code < status {
			status = code
		}
		matched = true
	}
	return status
}

// messageFromStatus hides internal details of 5xx errors from the caller.
func messageFromStatus(err error, status int) string {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		return http.StatusText(status)
	}
	return err.Error()
}
