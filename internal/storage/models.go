package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Turn is one audited interview exchange: the interviewer's question and
// the twin's answer, with the retrieval score that shaped the prompt.
// Fallback marks turns where generation failed and the canned reply was
// returned instead.
type Turn struct {
	ID        string
	SessionID string
	ProfileID string
	CreatedAt time.Time
	Question  string
	Answer    string
	Score     float64
	Fallback  bool
}
