package knowledge

import (
	"context"
	"fmt"
	"sort"
)

// HybridSearcher composes vector candidate generation with reranking:
// vector search produces up to max_candidates, the reranker orders
// them, and the top final_top_k survive. Weighted fusion of the two
// scores is available for callers that want a single scalar.
type HybridSearcher struct {
	vectors  VectorService
	reranker Reranker
	cfg      RerankerConfig
	embedCfg EmbeddingConfig
}

// NewHybridSearcher wires the vector service and reranker together.
func NewHybridSearcher(vectors VectorService, reranker Reranker, embedCfg EmbeddingConfig, cfg RerankerConfig) *HybridSearcher {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultRerankerConfig().MaxCandidates
	}
	if cfg.FinalTopK <= 0 {
		cfg.FinalTopK = DefaultRerankerConfig().FinalTopK
	}
	return &HybridSearcher{vectors: vectors, reranker: reranker, cfg: cfg, embedCfg: embedCfg}
}

// Search runs the default hybrid composition.
func (h *HybridSearcher) Search(ctx context.Context, query string) ([]RerankedKnowledge, error) {
	candidates, err := h.vectors.SearchByVector(ctx, query, h.cfg.MaxCandidates, h.embedCfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("hybrid search candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	reranker := h.reranker
	if reranker != nil && !reranker.Available(ctx) {
		reranker = nil // scores fall back to neutral
	}
	reranked, err := RerankKnowledge(ctx, reranker, query, candidates)
	if err != nil {
		return nil, err
	}
	if len(reranked) > h.cfg.FinalTopK {
		reranked = reranked[:h.cfg.FinalTopK]
	}
	return reranked, nil
}

// SearchWeighted runs the hybrid composition and re-sorts the final
// results by w_vec*vector + w_rr*rerank.
func (h *HybridSearcher) SearchWeighted(ctx context.Context, query string, vectorWeight, rerankWeight float64) ([]RerankedKnowledge, error) {
	results, err := h.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		a := WeightedScore(results[i].VectorScore, results[i].RerankScore, vectorWeight, rerankWeight)
		b := WeightedScore(results[j].VectorScore, results[j].RerankScore, vectorWeight, rerankWeight)
		return a > b
	})
	return results, nil
}
