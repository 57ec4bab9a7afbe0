package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

// neutralScore is used when no reranker verdict is available.
const neutralScore = 0.5

// RerankerConfig configures the cross-encoder reranking step.
type RerankerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	Model         string `mapstructure:"model"`
	MaxCandidates int    `mapstructure:"max_candidates"`
	FinalTopK     int    `mapstructure:"final_top_k"`
}

// DefaultRerankerConfig matches the reference reranker served by Ollama.
func DefaultRerankerConfig() RerankerConfig {
	return RerankerConfig{
		URL:           "http://localhost:11434",
		Model:         "qwen3-reranker:0.6b",
		MaxCandidates: 50,
		FinalTopK:     10,
	}
}

// Reranker scores query/document pairs with a cross-encoder.
type Reranker interface {
	// Rerank returns one relevance score per document, in input order.
	// When the rerank endpoint is not served, every score is neutral 0.5.
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
	Available(ctx context.Context) bool
}

type ollamaReranker struct {
	client *http.Client
	url    string
	model  string
}

// NewOllamaReranker creates a reranker backed by Ollama's rerank API.
// The timeout is larger than the embedder's because one call scores N
// query/document pairs.
func NewOllamaReranker(cfg RerankerConfig) Reranker {
	return &ollamaReranker{
		client: &http.Client{Timeout: 120 * time.Second},
		url:    cfg.URL,
		model:  cfg.Model,
	}
}

func (r *ollamaReranker) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]any{
		"model":     r.model,
		"query":     query,
		"documents": documents,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.url+"/api/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling rerank API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The server runs but does not serve reranking.
		return neutralScores(len(documents)), nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank API returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Results []struct {
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}

	scores := make([]float64, len(out.Results))
	for i, result := range out.Results {
		scores[i] = result.RelevanceScore
	}
	return scores, nil
}

func (r *ollamaReranker) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url+"/api/rerank", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode != http.StatusNotFound
}

func neutralScores(n int) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = neutralScore
	}
	return scores
}

// RerankedKnowledge is one candidate with its reranker verdict.
type RerankedKnowledge struct {
	Knowledge   *models.Knowledge
	RerankScore float64
	VectorScore float64
}

// RerankKnowledge scores the candidates against the query and returns
// them sorted by rerank score descending. A nil reranker yields neutral
// scores, preserving the candidate order.
func RerankKnowledge(ctx context.Context, r Reranker, query string, candidates []ScoredKnowledge) ([]RerankedKnowledge, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var scores []float64
	if r == nil {
		scores = neutralScores(len(candidates))
	} else {
		documents := make([]string, len(candidates))
		for i, c := range candidates {
			documents[i] = fmt.Sprintf("%s: %s", c.Knowledge.Title, c.Knowledge.Content.Summary)
		}
		var err error
		scores, err = r.Rerank(ctx, query, documents)
		if err != nil {
			return nil, fmt.Errorf("reranking %d candidates: %w", len(candidates), err)
		}
		if len(scores) != len(candidates) {
			return nil, fmt.Errorf("reranking returned %d scores for %d candidates", len(scores), len(candidates))
		}
	}

	out := make([]RerankedKnowledge, len(candidates))
	for i, c := range candidates {
		out[i] = RerankedKnowledge{
			Knowledge:   c.Knowledge,
			RerankScore: scores[i],
			VectorScore: c.Score,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RerankScore > out[j].RerankScore })
	return out, nil
}
