package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/metrics"
)

// DefaultThreshold is the minimum cosine similarity a question must exceed
// (strictly) before stored profile text is injected into the prompt.
const DefaultThreshold = 0.3

// Result is the outcome of one retrieval: the similarity score and the
// context block to splice into the system prompt. A zero Result (score 0,
// empty block) means retrieval produced no usable signal.
type Result struct {
	Score        float64
	ContextBlock string
}

// Retriever scores an interviewer question against a profile's stored
// embedding and renders the matching context block.
type Retriever struct {
	embedder  Embedder
	store     *Store
	threshold float64
}

// NewRetriever builds a retriever over the given store. A non-positive
// threshold selects DefaultThreshold.
func NewRetriever(embedder Embedder, store *Store, threshold float64) *Retriever {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Retriever{embedder: embedder, store: store, threshold: threshold}
}

// Retrieve embeds the question and compares it against the profile's stored
// vector. Missing records, empty stored vectors, and embedding backend
// failures degrade to a zero Result so the interview can continue without
// retrieval. A dimension mismatch between the two vectors is a real defect
// (mixed embedding models in one store) and is returned as an error.
func (r *Retriever) Retrieve(ctx context.Context, profileID, question string) (Result, error) {
	rec, ok := r.store.Get(profileID)
	if !ok || len(rec.Vector) == 0 {
		slog.Debug("no stored embedding, skipping retrieval", "profile_id", profileID)
		metrics.RecordRetrieval(false, false)
		return Result{}, nil
	}

	qv, err := r.embedder.Embed(ctx, question)
	if err != nil {
		slog.Warn("question embedding failed, answering without retrieval",
			"profile_id", profileID, "error", err)
		metrics.RecordRetrieval(false, false)
		return Result{}, nil
	}

	score, err := cosineSimilarity(qv, rec.Vector)
	if err != nil {
		metrics.RecordRetrieval(false, false)
		return Result{}, fmt.Errorf("comparing question to profile %s: %w", profileID, err)
	}

	relevant := score > r.threshold
	metrics.RecordRetrieval(true, relevant)
	slog.Debug("retrieval scored", "profile_id", profileID, "score", score, "relevant", relevant)

	if relevant {
		return Result{
			Score: score,
			ContextBlock: fmt.Sprintf(
				"Relevant background (similarity %.3f):\n%s\n---",
				score, rec.ProjectedText),
		}, nil
	}
	return Result{
		Score: score,
		ContextBlock: fmt.Sprintf(
			"No stored background matched this question closely (similarity %.3f). "+
				"Answer in general terms consistent with the persona, without inventing specific facts.\n---",
			score),
	}, nil
}

// cosineSimilarity returns the cosine of the angle between a and b. Vectors
// of different lengths cannot be compared and yield an error. A zero-norm
// vector scores 0.
func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
