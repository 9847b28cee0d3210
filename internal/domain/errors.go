package domain

import "errors"

// ErrUnavailable covers transport failures and 5xx answers; ErrBadResponse
// means the backend broke its response contract.
var (
	ErrNotFound      = errors.New("dealership: not found")
	ErrUnavailable   = errors.New("dealership: backend unavailable")
	ErrBadResponse   = errors.New("dealership: bad response")
	ErrInvalidReview = errors.New("dealership: invalid review")
)
