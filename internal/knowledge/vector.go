package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/pkg/models"
)

// VectorService persists knowledge together with embeddings and serves
// similarity queries from an in-memory index hydrated from storage.
type VectorService interface {
	// Initialize loads every cached embedding into the index.
	Initialize(ctx context.Context) error

	// SaveWithEmbedding persists the item, computes its embedding from
	// "{title}: {summary}", and caches the vector.
	SaveWithEmbedding(ctx context.Context, k *models.Knowledge) error

	// SearchByVector embeds the query and returns items above threshold,
	// most similar first, truncated to limit.
	SearchByVector(ctx context.Context, query string, limit int, threshold float64) ([]ScoredKnowledge, error)

	// ReindexAll recomputes embeddings for every stored item and
	// returns how many succeeded.
	ReindexAll(ctx context.Context) (int, error)

	Available(ctx context.Context) bool
}

type vectorService struct {
	store    storage.Storage
	embedder Embedder
	index    *VectorIndex
	cfg      EmbeddingConfig
}

// NewVectorService wires storage, the embedder, and a fresh index.
func NewVectorService(store storage.Storage, embedder Embedder, cfg EmbeddingConfig) VectorService {
	return &vectorService{
		store:    store,
		embedder: embedder,
		index:    NewVectorIndex(cfg.Dimension),
		cfg:      cfg,
	}
}

func (s *vectorService) Initialize(ctx context.Context) error {
	embeddings, err := s.store.ListEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("hydrating vector index: %w", err)
	}
	for _, e := range embeddings {
		s.index.Add(e)
	}
	return nil
}

// embeddingText is the canonical text embedded for a knowledge item.
// Queries are embedded as-is.
func embeddingText(k *models.Knowledge) string {
	return fmt.Sprintf("%s: %s", k.Title, k.Content.Summary)
}

func (s *vectorService) SaveWithEmbedding(ctx context.Context, k *models.Knowledge) error {
	vector, err := s.embedder.Embed(ctx, embeddingText(k))
	if err != nil {
		return fmt.Errorf("embedding knowledge %s: %w", k.ID, err)
	}

	if err := s.store.SaveKnowledge(ctx, k); err != nil {
		return fmt.Errorf("saving knowledge %s: %w", k.ID, err)
	}

	embedding := &models.KnowledgeEmbedding{
		KnowledgeID: k.ID,
		Embedding:   vector,
		Model:       s.cfg.Model,
		Dimension:   len(vector),
		CreatedAt:   time.Now(),
	}
	if err := s.store.SaveEmbedding(ctx, embedding); err != nil {
		return fmt.Errorf("saving embedding for %s: %w", k.ID, err)
	}

	s.index.Add(embedding)
	return nil
}

func (s *vectorService) SearchByVector(ctx context.Context, query string, limit int, threshold float64) ([]ScoredKnowledge, error) {
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits := s.index.Search(queryVector, limit, threshold)

	var results []ScoredKnowledge
	for _, hit := range hits {
		k, err := s.store.LoadKnowledge(ctx, hit.KnowledgeID)
		if errors.Is(err, storage.ErrNotFound) {
			continue // stale index entry
		}
		if err != nil {
			return nil, fmt.Errorf("loading knowledge %s: %w", hit.KnowledgeID, err)
		}
		results = append(results, ScoredKnowledge{Knowledge: k, Score: hit.Score})
	}
	return results, nil
}

func (s *vectorService) ReindexAll(ctx context.Context) (int, error) {
	all, err := s.store.ListKnowledge(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing knowledge for reindex: %w", err)
	}

	count := 0
	for _, k := range all {
		if err := s.SaveWithEmbedding(ctx, k); err != nil {
			if ctx.Err() != nil {
				return count, ctx.Err()
			}
			continue
		}
		count++
	}
	return count, nil
}

func (s *vectorService) Available(ctx context.Context) bool {
	return s.embedder.Healthy(ctx)
}
