package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/interview"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/llm"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/profile"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/retrieval"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/session"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/storage"
)

// fakeBackend answers every chat with a canned reply and every embed with a
// fixed vector. Setting fail makes both calls error.
type fakeBackend struct {
	reply string
	fail  bool
}

func (f *fakeBackend) Chat(context.Context, string, []llm.Message, llm.Options) (string, error) {
	if f.fail {
		return "", errors.New("backend down")
	}
	return f.reply, nil
}

func (f *fakeBackend) Embed(context.Context, string) ([]float64, error) {
	if f.fail {
		return nil, errors.New("backend down")
	}
	return []float64{0.6, 0.8}, nil
}

func newTestApp(t *testing.T, backend *fakeBackend) (http.Handler, AppDeps) {
	t.Helper()
	dir := t.TempDir()

	profiles, err := profile.OpenStore(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatalf("opening profile store: %v", err)
	}
	vectors, err := retrieval.OpenStore(filepath.Join(dir, "vectors.json"), backend)
	if err != nil {
		t.Fatalf("opening vector store: %v", err)
	}

	turns, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening turn log: %v", err)
	}
	t.Cleanup(func() { turns.Close() })

	retriever := retrieval.NewRetriever(backend, vectors, 0.3)
	engine := interview.NewEngine(profiles, retriever, session.NewStore(10), backend, turns, llm.Options{})

	deps := AppDeps{Profiles: profiles, Vectors: vectors, Engine: engine, Turns: turns}
	return NewAppHandler(deps), deps
}

func createUser(t *testing.T, h http.Handler, name string) profile.Candidate {
	t.Helper()
	body, _ := json.Marshal(map[string]any{
		"profile_data": profile.Profile{
			BasicInfo:       profile.BasicInfo{Name: name},
			CareerObjective: profile.CareerObjective{TargetPosition: "AI Engineer"},
		},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("create user: status %d: %s", rec.Code, rec.Body.String())
	}
	var cand profile.Candidate
	if err := json.Unmarshal(rec.Body.Bytes(), &cand); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}
	return cand
}

func TestHealth(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateUser_IndexesEmbedding(t *testing.T) {
	h, deps := newTestApp(t, &fakeBackend{reply: "ok"})

	cand := createUser(t, h, "Alice Chen")
	if cand.ID == "" {
		t.Fatal("no id assigned")
	}

	rec, ok := deps.Vectors.Get(cand.ID)
	if !ok {
		t.Fatal("embedding record missing after create")
	}
	if len(rec.Vector) == 0 {
		t.Error("embedding vector empty")
	}
}

func TestCreateUser_RequiresName(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/",
		strings.NewReader(`{"profile_data": {}}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteUser_RemovesEmbedding(t *testing.T) {
	h, deps := newTestApp(t, &fakeBackend{reply: "ok"})
	cand := createUser(t, h, "Alice Chen")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/users/"+cand.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := deps.Vectors.Get(cand.ID); ok {
		t.Error("embedding record survived user deletion")
	}
}

func TestChat_AutoCreatesSession(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "I led the RAG project."})
	cand := createUser(t, h, "Alice Chen")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interview/chat/"+cand.ID,
		strings.NewReader(`{"message": "Tell me about your projects."}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var turn interview.Turn
	if err := json.Unmarshal(rec.Body.Bytes(), &turn); err != nil {
		t.Fatalf("decoding turn: %v", err)
	}
	if turn.SessionID == "" {
		t.Error("no session id in response")
	}
	if turn.Response != "I led the RAG project." {
		t.Errorf("response = %q", turn.Response)
	}

	// The new session is visible through the history endpoint.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/interview/session/"+turn.SessionID+"/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var hist struct {
		History []session.Message `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(hist.History) != 2 {
		t.Errorf("history has %d messages, want 2", len(hist.History))
	}
}

func TestChat_UnknownProfile(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interview/chat/ghost",
		strings.NewReader(`{"message": "hello"}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChat_MissingMessage(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})
	cand := createUser(t, h, "Alice Chen")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interview/chat/"+cand.ID,
		strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStartAndClearSession(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})
	cand := createUser(t, h, "Alice Chen")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interview/start/"+cand.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}
	var started struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decoding start response: %v", err)
	}
	if started.SessionID == "" {
		t.Fatal("no session id")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/interview/session/"+started.SessionID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}

	// Second clear is a 404.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/interview/session/"+started.SessionID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second clear status = %d, want 404", rec.Code)
	}
}

func TestSessionHistory_NotFound(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/interview/session/nope/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestIntroduction(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "Hi, I'm Alice."})
	cand := createUser(t, h, "Alice Chen")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interview/introduction/"+cand.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Hi, I'm Alice.") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestReindex(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})
	createUser(t, h, "Alice Chen")
	createUser(t, h, "Bob Lee")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/reindex", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Reindexed int `json:"reindexed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Reindexed != 2 {
		t.Errorf("reindexed = %d, want 2", resp.Reindexed)
	}
}

func TestUpdateUser_ReplacesProfile(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})
	cand := createUser(t, h, "Alice Chen")

	body, _ := json.Marshal(map[string]any{
		"profile_data": profile.Profile{
			BasicInfo: profile.BasicInfo{Name: "Alice C. Chen"},
		},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/users/"+cand.ID, bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var updated profile.Candidate
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decoding update response: %v", err)
	}
	if updated.Profile.BasicInfo.Name != "Alice C. Chen" {
		t.Errorf("name = %q", updated.Profile.BasicInfo.Name)
	}
}

func TestSessionTurns_ReadsAuditLog(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "I led the RAG project."})
	cand := createUser(t, h, "Alice Chen")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interview/chat/"+cand.ID,
		strings.NewReader(`{"message": "Tell me about your projects."}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d: %s", rec.Code, rec.Body.String())
	}
	var turn interview.Turn
	if err := json.Unmarshal(rec.Body.Bytes(), &turn); err != nil {
		t.Fatalf("decoding turn: %v", err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sessions/"+turn.SessionID+"/turns", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Turns []storage.Turn `json:"turns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(resp.Turns))
	}
	if resp.Turns[0].Question != "Tell me about your projects." {
		t.Errorf("question = %q", resp.Turns[0].Question)
	}
	if resp.Turns[0].Answer != "I led the RAG project." {
		t.Errorf("answer = %q", resp.Turns[0].Answer)
	}

	// The same turn is addressable by id.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/turns/"+resp.Turns[0].ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("turn status = %d: %s", rec.Code, rec.Body.String())
	}
	var single storage.Turn
	if err := json.Unmarshal(rec.Body.Bytes(), &single); err != nil {
		t.Fatalf("decoding single turn: %v", err)
	}
	if single.SessionID != turn.SessionID {
		t.Errorf("session id = %q, want %q", single.SessionID, turn.SessionID)
	}
}

func TestGetTurn_NotFound(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/turns/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAuditEndpoints_NoTurnLog(t *testing.T) {
	h, deps := newTestApp(t, &fakeBackend{reply: "ok"})
	deps.Turns = nil
	h = NewAppHandler(deps)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/sessions/s1/turns", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestApp(t, &fakeBackend{reply: "ok"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
