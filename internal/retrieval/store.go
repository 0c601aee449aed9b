package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/metrics"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/profile"
)

// Embedder produces an embedding vector for a text. Implemented by the
// generation backend client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Record is the stored embedding for one profile: the projected text it was
// computed from, the vector, and timestamps. An empty Vector means the
// embedding backend failed on the last upsert; callers must treat that as
// "no signal", never as zero similarity.
type Record struct {
	ProfileID     string    `json:"profile_id"`
	ProjectedText string    `json:"projected_text"`
	Vector        []float64 `json:"vector"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store keeps one embedding record per profile id, persisted as a single
// JSON file that is loaded and rewritten wholesale on every mutation.
type Store struct {
	path     string
	embedder Embedder
	clock    Clock

	mu      sync.RWMutex
	records map[string]Record
}

// OpenStore loads (or initializes) the embedding store at path.
func OpenStore(path string, embedder Embedder) (*Store, error) {
	return openStoreWithClock(path, embedder, realClock{})
}

func openStoreWithClock(path string, embedder Embedder, clock Clock) (*Store, error) {
	s := &Store{
		path:     path,
		embedder: embedder,
		clock:    clock,
		records:  make(map[string]Record),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading embedding store: %w", err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parsing embedding store %s: %w", path, err)
	}
	return s, nil
}

// Upsert projects the profile, embeds the projection, and writes the record,
// preserving CreatedAt from any prior record. Embedding failures are soft:
// the record is still written with an empty vector so stale text and vectors
// are never retained under a success banner.
func (s *Store) Upsert(ctx context.Context, profileID string, p profile.Profile) error {
	text := profile.Project(p)

	start := time.Now()
	vector, err := s.embedder.Embed(ctx, text)
	metrics.RecordEmbedding(time.Since(start).Seconds(), err == nil)
	if err != nil {
		slog.Warn("embedding backend failed, storing record without vector",
			"profile_id", profileID, "error", err)
		vector = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	createdAt := now
	if prev, ok := s.records[profileID]; ok {
		createdAt = prev.CreatedAt
	}
	s.records[profileID] = Record{
		ProfileID:     profileID,
		ProjectedText: text,
		Vector:        vector,
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}

	return s.persist()
}

// Get returns the embedding record for a profile id.
func (s *Store) Get(profileID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[profileID]
	return r, ok
}

// Delete removes the record for a profile id. Removing an absent record is
// not an error.
func (s *Store) Delete(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[profileID]; !ok {
		return nil
	}
	delete(s.records, profileID)
	return s.persist()
}

// Reindex re-embeds all given candidates with bounded concurrency. Individual
// embedding failures are soft (the record is written vector-less); only
// persistence errors abort. Returns the number of candidates processed.
func (s *Store) Reindex(ctx context.Context, candidates []profile.Candidate) (int, error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid overwhelming the embedding backend.

	for _, c := range candidates {
		g.Go(func() error {
			return s.Upsert(gCtx, c.ID, c.Profile)
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(candidates), nil
}

// persist rewrites the whole store file. Callers must hold the write lock.
func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating embedding store directory: %w", err)
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding embedding store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing embedding store: %w", err)
	}
	return nil
}
