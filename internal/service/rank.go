package service

import (
	"math"
	"sort"
)

// Candidate is anything with an embedding that can be ranked against a query:
// a cached question or a document chunk. Ctime breaks score ties, newer first,
// so rankings are deterministic.
type Candidate struct {
	ID        string
	Embedding []float32
	Payload   string
	Ctime     int64
}

type Scored struct {
	ID      string
	Payload string
	Score   float64
	Ctime   int64
}

// RankBySimilarity orders candidates by cosine similarity to query, descending,
// and returns at most topK results. Candidates with empty or mismatched
// embeddings score 0 rather than erroring out.
func RankBySimilarity(query []float32, candidates []Candidate, topK int) []Scored {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}
	scored := make([]Scored, 0, len(candidates))
	for _, cand := range candidates {
		scored = append(scored, Scored{
			ID:      cand.ID,
			Payload: cand.Payload,
			Score:   cosineSimilarity(query, cand.Embedding),
			Ctime:   cand.Ctime,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Ctime > scored[j].Ctime
	})
	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}

// cosineSimilarity is 0 for zero or dimension-mismatched vectors; a silently
// failed embedding must read as "no match", never divide by zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
