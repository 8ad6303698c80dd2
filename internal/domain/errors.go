package domain

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrTransport   = errors.New("exchange transport failure")
	ErrValidation  = errors.New("validation failed")
	ErrRateLimited = errors.New("rate limited")
	ErrLockHeld    = errors.New("lock already held")
)
