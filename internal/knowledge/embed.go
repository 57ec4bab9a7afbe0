package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	URL       string  `mapstructure:"url"`
	Model     string  `mapstructure:"model"`
	Dimension int     `mapstructure:"dimension"`
	Threshold float64 `mapstructure:"threshold"`
}

// DefaultEmbeddingConfig matches the reference model served by Ollama.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		URL:       "http://localhost:11434",
		Model:     "qwen3-embedding:0.6b",
		Dimension: 1024,
		Threshold: 0.75,
	}
}

// Embedder turns text into a fixed-dimensional vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Healthy(ctx context.Context) bool
}

type ollamaEmbedder struct {
	client    *http.Client
	url       string
	model     string
	dimension int
}

// NewOllamaEmbedder creates an embedder backed by Ollama's embeddings API.
func NewOllamaEmbedder(cfg EmbeddingConfig) Embedder {
	return &ollamaEmbedder{
		client:    &http.Client{Timeout: 60 * time.Second},
		url:       cfg.URL,
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(map[string]any{
		"model":  e.model,
		"prompt": text,
		"options": map[string]any{
			"num_thread": 4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.url+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings API returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	return out.Embedding, nil
}

// EmbedBatch embeds each text serially. A failed text yields a zero
// vector rather than failing the whole batch.
func (e *ollamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			vec = make([]float32, e.dimension)
		}
		out = append(out, vec)
	}
	return out, nil
}

func (e *ollamaEmbedder) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
