package repositories

import "errors"

var (
	// ErrNotFound covers a missing user or video, a malformed id, and a reset
	// token that is unknown or already consumed.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates an email that is already registered.
	ErrConflict = errors.New("record conflict")
)
