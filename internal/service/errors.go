package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")
	ErrNoUserID            = errors.New("no user ID was given")

	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrTokenCreationFailed     = errors.New("token creation failed")

	ErrVersionIsNotSpecified = errors.New("app version is not specified")
	ErrStorageIsUnhealthy    = errors.New("storage is unhealthy")

	ErrSyncInProgress = errors.New("sync already in progress")
	ErrSyncPaused     = errors.New("sync is paused")
	ErrNoCredentials  = errors.New("no credentials were supplied")
	ErrAuthRequired   = errors.New("server rejected credentials, new token required")
)
