// Package interview drives the conversation between a human interviewer and
// a candidate's digital twin: it resolves the profile, gates retrieval,
// composes the prompt, calls the generation backend, and records the turn.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/composer"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/llm"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/metrics"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/profile"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/retrieval"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/session"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/storage"
)

// FallbackReply is returned verbatim when the generation backend fails. The
// turn still completes and the reply is recorded in the session history.
const FallbackReply = "I'm sorry, I didn't quite catch your question. Could you please repeat it?"

// introductionPrompt is the fixed interviewer prompt behind Introduce.
const introductionPrompt = `Please give a professional self-introduction of about 2 to 3 minutes, covering:
1. Your basic background and education
2. Your main work experience and achievements
3. Your technical strengths, especially AI/ML and backend work
4. Your career goals and why this position interests you`

// Profiles is the slice of the profile store the engine needs.
type Profiles interface {
	Get(id string) (profile.Candidate, error)
}

// Retriever scores a question against a profile's stored embedding.
type Retriever interface {
	Retrieve(ctx context.Context, profileID, question string) (retrieval.Result, error)
}

// AuditLog records completed turns. Implementations must not be load-bearing:
// a write failure is logged and the turn proceeds.
type AuditLog interface {
	SaveTurn(t storage.Turn) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Turn is the result of one completed exchange.
type Turn struct {
	Response  string    `json:"response"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Engine wires profiles, retrieval, sessions, and the generation backend
// into the interview conversation loop.
type Engine struct {
	profiles  Profiles
	retriever Retriever
	sessions  *session.Store
	backend   llm.Client
	audit     AuditLog
	opts      llm.Options
	clock     Clock
}

// NewEngine builds the conversation engine. audit may be nil to disable the
// turn log.
func NewEngine(profiles Profiles, retriever Retriever, sessions *session.Store, backend llm.Client, audit AuditLog, opts llm.Options) *Engine {
	return &Engine{
		profiles:  profiles,
		retriever: retriever,
		sessions:  sessions,
		backend:   backend,
		audit:     audit,
		opts:      opts,
		clock:     realClock{},
	}
}

// Start opens a new empty session for the profile.
func (e *Engine) Start(profileID string) (string, error) {
	if _, err := e.profiles.Get(profileID); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("resolving profile %s: %w", profileID, err)
	}
	return e.sessions.Create(profileID), nil
}

// Respond runs one interview turn. An empty or unknown sessionID starts a
// fresh session bound to the profile. Generation failures degrade to
// FallbackReply; the turn itself only fails when the profile is unknown or
// retrieval hits a real defect.
func (e *Engine) Respond(ctx context.Context, profileID, sessionID, message string) (Turn, error) {
	start := e.clock.Now()

	cand, err := e.profiles.Get(profileID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return Turn{}, ErrProfileNotFound
		}
		return Turn{}, fmt.Errorf("resolving profile %s: %w", profileID, err)
	}

	if sessionID == "" {
		sessionID = e.sessions.Create(profileID)
	} else if _, ok := e.sessions.Get(sessionID); !ok {
		slog.Debug("unknown session id, starting fresh", "session_id", sessionID)
		sessionID = e.sessions.Create(profileID)
	}

	result, err := e.retriever.Retrieve(ctx, profileID, message)
	if err != nil {
		return Turn{}, fmt.Errorf("retrieval for profile %s: %w", profileID, err)
	}

	prior, _ := e.sessions.History(sessionID)
	history := composer.History(prior)
	history = append(history, llm.Message{Role: llm.RoleAsker, Content: message})

	prompt := composer.SystemPrompt(cand.Profile, result.ContextBlock)

	reply, genErr := e.backend.Chat(ctx, prompt, history, e.opts)
	metrics.RecordGeneration(genErr == nil)
	if genErr != nil {
		slog.Warn("generation failed, using fallback reply",
			"profile_id", profileID, "session_id", sessionID, "error", genErr)
		reply = FallbackReply
	}

	e.sessions.Append(sessionID, session.RoleInterviewer, message)
	e.sessions.Append(sessionID, session.RoleCandidate, reply)

	e.recordTurn(sessionID, profileID, message, reply, result.Score, genErr != nil)
	metrics.RecordTurn(time.Since(start).Seconds())

	return Turn{Response: reply, SessionID: sessionID, Timestamp: e.clock.Now()}, nil
}

// Introduce generates a self-introduction for the profile without touching
// any session. It follows the same fallback contract as Respond.
func (e *Engine) Introduce(ctx context.Context, profileID string) (string, error) {
	cand, err := e.profiles.Get(profileID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("resolving profile %s: %w", profileID, err)
	}

	result, err := e.retriever.Retrieve(ctx, profileID, introductionPrompt)
	if err != nil {
		return "", fmt.Errorf("retrieval for profile %s: %w", profileID, err)
	}

	prompt := composer.SystemPrompt(cand.Profile, result.ContextBlock)
	history := []llm.Message{{Role: llm.RoleAsker, Content: introductionPrompt}}

	reply, genErr := e.backend.Chat(ctx, prompt, history, e.opts)
	metrics.RecordGeneration(genErr == nil)
	if genErr != nil {
		slog.Warn("introduction generation failed, using fallback reply",
			"profile_id", profileID, "error", genErr)
		reply = FallbackReply
	}
	return reply, nil
}

// History returns the session's messages in append order.
func (e *Engine) History(sessionID string) ([]session.Message, error) {
	msgs, ok := e.sessions.History(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return msgs, nil
}

// Clear removes the session.
func (e *Engine) Clear(sessionID string) error {
	if !e.sessions.Clear(sessionID) {
		return ErrSessionNotFound
	}
	return nil
}

func (e *Engine) recordTurn(sessionID, profileID, question, answer string, score float64, fallback bool) {
	if e.audit == nil {
		return
	}
	err := e.audit.SaveTurn(storage.Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		ProfileID: profileID,
		CreatedAt: e.clock.Now(),
		Question:  question,
		Answer:    answer,
		Score:     score,
		Fallback:  fallback,
	})
	if err != nil {
		slog.Warn("recording turn failed", "session_id", sessionID, "error", err)
	}
}
