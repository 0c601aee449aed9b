package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested profile does not exist.
var ErrNotFound = errors.New("profile not found")

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// container is the on-disk layout: one JSON document holding every candidate,
// keyed by id. The whole file is rewritten on each mutation.
type container struct {
	Profiles map[string]Candidate `json:"profiles"`
}

// Store persists candidate profiles in a single JSON file. Mutations replace
// the profile wholesale and rewrite the entire file; there is no partial-write
// atomicity beyond "whole store replaced".
type Store struct {
	path  string
	clock Clock

	mu         sync.RWMutex
	candidates map[string]Candidate
}

// OpenStore loads (or initializes) the profile store at path.
func OpenStore(path string) (*Store, error) {
	return openStoreWithClock(path, realClock{})
}

func openStoreWithClock(path string, clock Clock) (*Store, error) {
	s := &Store{
		path:       path,
		clock:      clock,
		candidates: make(map[string]Candidate),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile store: %w", err)
	}

	var c container
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing profile store %s: %w", path, err)
	}
	if c.Profiles != nil {
		s.candidates = c.Profiles
	}
	return s, nil
}

// Create registers a new candidate with a fresh id and returns the record.
func (s *Store) Create(p Profile) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	c := Candidate{
		ID:        uuid.New().String(),
		Profile:   p,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.candidates[c.ID] = c

	if err := s.persist(); err != nil {
		delete(s.candidates, c.ID)
		return Candidate{}, err
	}
	return c, nil
}

// Get returns the candidate with the given id, or ErrNotFound.
func (s *Store) Get(id string) (Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.candidates[id]
	if !ok {
		return Candidate{}, ErrNotFound
	}
	return c, nil
}

// Update replaces the profile for an existing candidate wholesale.
func (s *Store) Update(id string, p Profile) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.candidates[id]
	if !ok {
		return Candidate{}, ErrNotFound
	}

	c := Candidate{
		ID:        id,
		Profile:   p,
		CreatedAt: prev.CreatedAt,
		UpdatedAt: s.clock.Now(),
	}
	s.candidates[id] = c

	if err := s.persist(); err != nil {
		s.candidates[id] = prev
		return Candidate{}, err
	}
	return c, nil
}

// Delete removes a candidate. Returns ErrNotFound for unknown ids.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.candidates[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.candidates, id)

	if err := s.persist(); err != nil {
		s.candidates[id] = prev
		return err
	}
	return nil
}

// List returns id/name summaries for all candidates, sorted by id for
// deterministic output.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.candidates))
	for _, c := range s.candidates {
		out = append(out, Summary{ID: c.ID, Name: c.Profile.BasicInfo.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns every stored candidate. Used for bulk re-embedding.
func (s *Store) All() []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// persist rewrites the whole store file. Callers must hold the write lock.
func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating profile store directory: %w", err)
	}

	data, err := json.MarshalIndent(container{Profiles: s.candidates}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing profile store: %w", err)
	}
	return nil
}
