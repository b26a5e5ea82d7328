package entity

import "errors"

var (
	// ErrValidation marks a malformed create/update request. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an operation against a non-existent notification.
	ErrNotFound = errors.New("notification not found")

	// ErrNotReady is returned for coordinator operations before the initial
	// load has completed or after logout.
	ErrNotReady = errors.New("coordinator not ready")
)
