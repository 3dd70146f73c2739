package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")

	ErrInvalidPushRequest = errors.New("invalid push request")
	ErrInvalidPullRequest = errors.New("invalid pull request")
)
