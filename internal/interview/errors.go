package interview

import "errors"

var (
	// ErrProfileNotFound is returned when the addressed candidate profile
	// does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrSessionNotFound is returned by read and clear operations on a
	// session id that does not exist.
	ErrSessionNotFound = errors.New("session not found")
)
