package adapter

import "errors"

var (
	ErrTransient     = errors.New("transient server error")
	ErrUnauthorized  = errors.New("client unauthorized")
	ErrForbidden     = errors.New("access forbidden")
	ErrBadRequest    = errors.New("bad request")
	ErrConflict      = errors.New("conflict")
	ErrUnexpected    = errors.New("unexpected server response")
	ErrEmptyAddress  = errors.New("empty adapter address")
	ErrNoTokenIsSet  = errors.New("no bearer token is set")
	ErrDecodeFailure = errors.New("failed to decode server response")
)

// IsAuthError reports whether err means the credentials were rejected.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsTransient reports whether the request may succeed when repeated later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict)
}
