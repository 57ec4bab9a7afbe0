package knowledge

import (
	"math"
	"sort"
	"sync"

	"github.com/devman-ai/devman/pkg/models"
)

// VectorIndex is an in-memory linear-scan similarity index. It is sized
// for a personal knowledge base, not a corpus; lookups are O(n·dim).
type VectorIndex struct {
	mu         sync.RWMutex
	embeddings []*models.KnowledgeEmbedding
	dimension  int
}

// NewVectorIndex creates an index for vectors of the given dimension.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{dimension: dimension}
}

// Add inserts or replaces the embedding for its knowledge id.
func (idx *VectorIndex) Add(e *models.KnowledgeEmbedding) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, existing := range idx.embeddings {
		if existing.KnowledgeID == e.KnowledgeID {
			idx.embeddings[i] = e
			return
		}
	}
	idx.embeddings = append(idx.embeddings, e)
}

// Remove drops the embedding for the knowledge id, if present.
func (idx *VectorIndex) Remove(id models.KnowledgeID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, e := range idx.embeddings {
		if e.KnowledgeID == id {
			idx.embeddings = append(idx.embeddings[:i], idx.embeddings[i+1:]...)
			return
		}
	}
}

// ScoredID is one similarity hit.
type ScoredID struct {
	KnowledgeID models.KnowledgeID
	Score       float64
}

// Search returns ids whose cosine similarity to query meets threshold,
// best first, truncated to limit.
func (idx *VectorIndex) Search(query []float32, limit int, threshold float64) []ScoredID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []ScoredID
	for _, e := range idx.embeddings {
		score := CosineSimilarity(query, e.Embedding)
		if score >= threshold {
			hits = append(hits, ScoredID{KnowledgeID: e.KnowledgeID, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Len reports the number of indexed embeddings.
func (idx *VectorIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.embeddings)
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Empty or zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
