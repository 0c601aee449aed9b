package retrieval

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

// storeWith seeds a store with one record carrying the given vector.
func storeWith(t *testing.T, emb *mockEmbedder, vector []float64, text string) *Store {
	t.Helper()
	s, err := openStoreWithClock(filepath.Join(t.TempDir(), "vectors.json"), emb, newMockClock())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	s.records["p1"] = Record{ProfileID: "p1", ProjectedText: text, Vector: vector}
	return s
}

// vectorAtSimilarity returns a 2-d unit vector whose cosine similarity with
// (1, 0) is exactly sim.
func vectorAtSimilarity(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

func TestRetrieve_AboveThresholdIncludesProfileText(t *testing.T) {
	emb := &mockEmbedder{fn: func(string) ([]float64, error) {
		return vectorAtSimilarity(0.42), nil
	}}
	s := storeWith(t, emb, []float64{1, 0}, "Name: Alice Chen\nTarget position: AI Engineer")
	r := NewRetriever(emb, s, 0.3)

	res, err := r.Retrieve(context.Background(), "p1", "tell me about your projects")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if math.Abs(res.Score-0.42) > 1e-9 {
		t.Errorf("score = %v, want 0.42", res.Score)
	}
	if !strings.Contains(res.ContextBlock, "0.420") {
		t.Errorf("context block missing formatted score: %q", res.ContextBlock)
	}
	if !strings.Contains(res.ContextBlock, "Name: Alice Chen") {
		t.Errorf("context block missing profile text: %q", res.ContextBlock)
	}
	if !strings.HasSuffix(res.ContextBlock, "---") {
		t.Errorf("context block not terminated: %q", res.ContextBlock)
	}
}

func TestRetrieve_BelowThresholdOmitsProfileText(t *testing.T) {
	emb := &mockEmbedder{fn: func(string) ([]float64, error) {
		return vectorAtSimilarity(0.1), nil
	}}
	s := storeWith(t, emb, []float64{1, 0}, "Name: Alice Chen")
	r := NewRetriever(emb, s, 0.3)

	res, err := r.Retrieve(context.Background(), "p1", "what is your favorite color")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if strings.Contains(res.ContextBlock, "Alice Chen") {
		t.Errorf("profile text leaked into low-relevance block: %q", res.ContextBlock)
	}
	if !strings.Contains(res.ContextBlock, "0.100") {
		t.Errorf("context block missing formatted score: %q", res.ContextBlock)
	}
}

func TestRetrieve_ThresholdIsStrict(t *testing.T) {
	// A score exactly at the threshold does not qualify as relevant.
	emb := &mockEmbedder{fn: func(string) ([]float64, error) {
		return []float64{1, 0}, nil
	}}
	s := storeWith(t, emb, vectorAtSimilarity(0.3), "Name: Alice Chen")
	r := NewRetriever(emb, s, 0.3)

	res, err := r.Retrieve(context.Background(), "p1", "question")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if strings.Contains(res.ContextBlock, "Alice Chen") {
		t.Errorf("score equal to threshold must not inject profile text: %q", res.ContextBlock)
	}
}

func TestRetrieve_MissingRecordIsSoft(t *testing.T) {
	emb := &mockEmbedder{fn: func(string) ([]float64, error) {
		t.Fatal("embedder should not be called when no record exists")
		return nil, nil
	}}
	s, err := openStoreWithClock(filepath.Join(t.TempDir(), "vectors.json"), emb, newMockClock())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	r := NewRetriever(emb, s, 0.3)

	res, err := r.Retrieve(context.Background(), "absent", "question")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Score != 0 || res.ContextBlock != "" {
		t.Errorf("want zero result, got %+v", res)
	}
}

func TestRetrieve_EmptyStoredVectorIsSoft(t *testing.T) {
	emb := &mockEmbedder{fn: func(string) ([]float64, error) {
		return []float64{1, 0}, nil
	}}
	s := storeWith(t, emb, nil, "Name: Alice Chen")
	r := NewRetriever(emb, s, 0.3)

	res, err := r.Retrieve(context.Background(), "p1", "question")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Score != 0 || res.ContextBlock != "" {
		t.Errorf("want zero result, got %+v", res)
	}
}

func TestRetrieve_EmbedFailureIsSoft(t *testing.T) {
	emb := &mockEmbedder{fn: func(string) ([]float64, error) {
		return nil, errors.New("backend down")
	}}
	s := storeWith(t, emb, []float64{1, 0}, "Name: Alice Chen")
	r := NewRetriever(emb, s, 0.3)

	res, err := r.Retrieve(context.Background(), "p1", "question")
	if err != nil {
		t.Fatalf("Retrieve should degrade on embedding failure: %v", err)
	}
	if res.Score != 0 || res.ContextBlock != "" {
		t.Errorf("want zero result, got %+v", res)
	}
}

func TestRetrieve_DimensionMismatchFails(t *testing.T) {
	emb := &mockEmbedder{fn: func(string) ([]float64, error) {
		return []float64{1, 0, 0}, nil
	}}
	s := storeWith(t, emb, []float64{1, 0}, "Name: Alice Chen")
	r := NewRetriever(emb, s, 0.3)

	if _, err := r.Retrieve(context.Background(), "p1", "question"); err == nil {
		t.Fatal("expected error on dimension mismatch")
	}
}

func TestNewRetriever_DefaultThreshold(t *testing.T) {
	r := NewRetriever(nil, nil, 0)
	if r.threshold != DefaultThreshold {
		t.Errorf("threshold = %v, want %v", r.threshold, DefaultThreshold)
	}
	r = NewRetriever(nil, nil, 0.5)
	if r.threshold != 0.5 {
		t.Errorf("threshold = %v, want 0.5", r.threshold)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"zero norm", []float64{0, 0}, []float64{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("cosineSimilarity: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}

			// Symmetric.
			rev, err := cosineSimilarity(tt.b, tt.a)
			if err != nil {
				t.Fatalf("cosineSimilarity reversed: %v", err)
			}
			if math.Abs(got-rev) > 1e-9 {
				t.Errorf("not symmetric: %v vs %v", got, rev)
			}
		})
	}

	if _, err := cosineSimilarity([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}
