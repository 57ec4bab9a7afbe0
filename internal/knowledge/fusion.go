package knowledge

import "sort"

// defaultRRFK smooths the contribution of lower ranks.
const defaultRRFK = 60

// RRF combines rankings from different retrievers using Reciprocal
// Rank Fusion: each appearance of a document at 1-based rank r adds
// 1/(k+r) to its score. Only order matters; input scores are ignored.
type RRF struct {
	k int
}

// NewRRF creates a fusion combiner; k <= 0 selects the default of 60.
func NewRRF(k int) RRF {
	if k <= 0 {
		k = defaultRRFK
	}
	return RRF{k: k}
}

// FusedDoc is one fused document with its combined score.
type FusedDoc struct {
	ID    string
	Score float64
}

// Fuse merges the ranking lists and returns all documents sorted by
// fused score descending. Ties break on id for determinism.
func (r RRF) Fuse(lists [][]string) []FusedDoc {
	if len(lists) == 0 {
		return nil
	}

	scores := make(map[string]float64)
	for _, list := range lists {
		seen := make(map[string]bool, len(list))
		for rank, id := range list {
			if seen[id] {
				continue // only the best rank in a list counts
			}
			seen[id] = true
			scores[id] += 1.0 / float64(r.k+rank+1)
		}
	}

	out := make([]FusedDoc, 0, len(scores))
	for id, score := range scores {
		out = append(out, FusedDoc{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// WeightedScore combines a vector similarity and a rerank score with
// the given weights: w_vec*vec + w_rr*rerank.
func WeightedScore(vectorScore, rerankScore, vectorWeight, rerankWeight float64) float64 {
	return vectorScore*vectorWeight + rerankScore*rerankWeight
}
