// Package session keeps interview conversations in memory. Sessions are
// append-only message logs keyed by a generated id; a restart loses them,
// which is acceptable for interview practice runs. The store bounds its
// footprint with a capacity limit (least recently used session evicted
// first) and an idle sweep.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/metrics"
)

// Role identifies which side of the interview sent a message.
type Role string

const (
	// RoleInterviewer marks questions from the human interviewer.
	RoleInterviewer Role = "interviewer"
	// RoleCandidate marks replies from the digital twin.
	RoleCandidate Role = "candidate"
)

// Message is one entry in a session's history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one interview conversation bound to a profile.
type Session struct {
	ID        string    `json:"session_id"`
	ProfileID string    `json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`

	lastActive time.Time
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// DefaultMaxSessions caps the registry; 0 in the constructor selects it.
const DefaultMaxSessions = 1000

// Store is a concurrency-safe in-memory session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	clock    Clock
}

// NewStore creates a session store holding at most max sessions. A
// non-positive max selects DefaultMaxSessions.
func NewStore(max int) *Store {
	return newStoreWithClock(max, realClock{})
}

func newStoreWithClock(max int, clock Clock) *Store {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &Store{
		sessions: make(map[string]*Session),
		max:      max,
		clock:    clock,
	}
}

// Create registers a new empty session for the profile and returns its id.
// If the registry is full, the least recently used session is evicted first.
func (s *Store) Create(profileID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.max {
		s.evictOldestLocked()
	}

	now := s.clock.Now()
	sess := &Session{
		ID:         uuid.NewString(),
		ProfileID:  profileID,
		CreatedAt:  now,
		lastActive: now,
	}
	s.sessions[sess.ID] = sess
	metrics.SetActiveSessions(len(s.sessions))
	return sess.ID
}

// Get returns a snapshot of the session. The returned copy shares no state
// with the store; mutating it has no effect.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return snapshot(sess), true
}

// Append adds a message to the session's history and refreshes its activity
// time. Returns false if the session does not exist.
func (s *Store) Append(id string, role Role, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	now := s.clock.Now()
	sess.Messages = append(sess.Messages, Message{Role: role, Content: content, Timestamp: now})
	sess.lastActive = now
	return true
}

// History returns a copy of the session's messages in append order.
func (s *Store) History(id string) ([]Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	msgs := make([]Message, len(sess.Messages))
	copy(msgs, sess.Messages)
	return msgs, true
}

// Clear removes the session. Returns false if it did not exist.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	metrics.SetActiveSessions(len(s.sessions))
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle removes every session whose last activity is older than maxIdle
// and returns the number removed. Intended to be called periodically.
func (s *Store) EvictIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-maxIdle)
	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
			metrics.RecordEviction("idle")
		}
	}
	if evicted > 0 {
		metrics.SetActiveSessions(len(s.sessions))
	}
	return evicted
}

// evictOldestLocked drops the least recently active session. Callers must
// hold the write lock.
func (s *Store) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastActive.Before(oldest) {
			oldestID = id
			oldest = sess.lastActive
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
		metrics.RecordEviction("capacity")
	}
}

func snapshot(sess *Session) Session {
	out := Session{
		ID:        sess.ID,
		ProfileID: sess.ProfileID,
		CreatedAt: sess.CreatedAt,
		Messages:  make([]Message, len(sess.Messages)),
	}
	copy(out.Messages, sess.Messages)
	return out
}
