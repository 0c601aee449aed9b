// Package api exposes the interview service over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/interview"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/profile"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/retrieval"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// AppDeps carries the collaborators of the HTTP layer.
type AppDeps struct {
	Profiles *profile.Store
	Vectors  *retrieval.Store
	Engine   *interview.Engine
	Turns    *storage.Store // optional; audit endpoints answer 503 when absent
}

// NewAppHandler builds the HTTP router.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", handleListUsers(deps))
		r.Post("/", handleCreateUser(deps))
		r.Get("/{id}", handleGetUser(deps))
		r.Put("/{id}", handleUpdateUser(deps))
		r.Delete("/{id}", handleDeleteUser(deps))
	})

	r.Route("/api/interview", func(r chi.Router) {
		r.Post("/start/{id}", handleStartInterview(deps))
		r.Post("/chat/{id}", handleChat(deps))
		r.Post("/introduction/{id}", handleIntroduction(deps))
		r.Get("/session/{id}/history", handleSessionHistory(deps))
		r.Delete("/session/{id}", handleClearSession(deps))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/reindex", handleReindex(deps))
		r.Get("/turns/{id}", handleGetTurn(deps))
		r.Get("/sessions/{id}/turns", handleSessionTurns(deps))
	})

	return r
}

func handleListUsers(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"users": deps.Profiles.List()})
	}
}

type profilePayload struct {
	Profile profile.Profile `json:"profile_data"`
}

func handleCreateUser(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req profilePayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Profile.BasicInfo.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "profile_data.basic_info.name is required")
			return
		}

		cand, err := deps.Profiles.Create(req.Profile)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "creating profile: %v", err)
			return
		}

		// Embedding failures inside Upsert are soft; a hard error here is a
		// persistence problem and worth logging, but the profile exists.
		if err := deps.Vectors.Upsert(r.Context(), cand.ID, cand.Profile); err != nil {
			slog.Error("indexing new profile failed", "profile_id", cand.ID, "error", err)
		}

		writeJSON(w, http.StatusOK, cand)
	}
}

func handleGetUser(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cand, err := deps.Profiles.Get(id)
		if errors.Is(err, profile.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "user %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, cand)
	}
}

func handleUpdateUser(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		id := chi.URLParam(r, "id")
		var req profilePayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		cand, err := deps.Profiles.Update(id, req.Profile)
		if errors.Is(err, profile.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "user %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "updating profile: %v", err)
			return
		}

		if err := deps.Vectors.Upsert(r.Context(), cand.ID, cand.Profile); err != nil {
			slog.Error("reindexing updated profile failed", "profile_id", cand.ID, "error", err)
		}

		writeJSON(w, http.StatusOK, cand)
	}
}

func handleDeleteUser(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := deps.Profiles.Delete(id)
		if errors.Is(err, profile.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "user %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "deleting profile: %v", err)
			return
		}

		if err := deps.Vectors.Delete(id); err != nil {
			slog.Error("deleting profile embedding failed", "profile_id", id, "error", err)
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
	}
}

func handleStartInterview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sessionID, err := deps.Engine.Start(id)
		if errors.Is(err, interview.ErrProfileNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "user %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "starting interview: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"session_id": sessionID,
			"message":    fmt.Sprintf("interview started for user %s", id),
		})
	}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		id := chi.URLParam(r, "id")
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		turn, err := deps.Engine.Respond(r.Context(), id, req.SessionID, req.Message)
		if errors.Is(err, interview.ErrProfileNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "user %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "interview turn failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, turn)
	}
}

func handleIntroduction(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		intro, err := deps.Engine.Introduce(r.Context(), id)
		if errors.Is(err, interview.ErrProfileNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "user %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "generating introduction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"introduction": intro})
	}
}

func handleSessionHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		msgs, err := deps.Engine.History(id)
		if errors.Is(err, interview.ErrSessionNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": msgs})
	}
}

func handleClearSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := deps.Engine.Clear(id)
		if errors.Is(err, interview.ErrSessionNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "clearing session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "session cleared"})
	}
}

func handleReindex(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Vectors.Reindex(r.Context(), deps.Profiles.All())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reindexing profiles: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"reindexed": n})
	}
}

func handleGetTurn(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Turns == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "turn log not available")
			return
		}
		id := chi.URLParam(r, "id")
		turn, err := deps.Turns.GetTurn(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "turn %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading turn: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, turn)
	}
}

func handleSessionTurns(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Turns == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "turn log not available")
			return
		}
		id := chi.URLParam(r, "id")
		turns, err := deps.Turns.SessionTurns(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading session turns: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
