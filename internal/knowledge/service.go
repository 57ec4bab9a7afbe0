// Package knowledge stores reusable knowledge items and retrieves them
// by keyword scoring, vector similarity, rank fusion, and reranking.
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/pkg/models"
)

// ScoredKnowledge pairs a knowledge item with a retrieval score.
type ScoredKnowledge struct {
	Knowledge *models.Knowledge
	Score     float64
}

// Service is the keyword-level knowledge API. Vector retrieval lives in
// VectorService; both share the same storage.
type Service interface {
	Save(ctx context.Context, k *models.Knowledge) error
	Get(ctx context.Context, id models.KnowledgeID) (*models.Knowledge, error)

	// SearchKeyword scores every stored item against the query and
	// returns non-zero matches, best first, truncated to limit.
	SearchKeyword(ctx context.Context, query string, limit int) ([]ScoredKnowledge, error)

	// SearchByTagsAny returns items carrying at least one of the tags.
	SearchByTagsAny(ctx context.Context, tags []string) ([]*models.Knowledge, error)

	// SearchByTagsAll returns items carrying every one of the tags.
	SearchByTagsAll(ctx context.Context, tags []string) ([]*models.Knowledge, error)

	// BestPractices returns items whose metadata names the domain.
	BestPractices(ctx context.Context, domain string) ([]*models.Knowledge, error)

	// RecordUsage bumps the usage counters after an item was applied.
	RecordUsage(ctx context.Context, id models.KnowledgeID, success bool) error

	// AddFeedback appends a rating (1-5) to the item's stats.
	AddFeedback(ctx context.Context, id models.KnowledgeID, fb models.Feedback) error
}

type service struct {
	store storage.Storage
}

// NewService creates a keyword knowledge service on top of the store.
func NewService(store storage.Storage) Service {
	return &service{store: store}
}

func (s *service) Save(ctx context.Context, k *models.Knowledge) error {
	if k.Title == "" {
		return fmt.Errorf("saving knowledge: title is required")
	}
	return s.store.SaveKnowledge(ctx, k)
}

func (s *service) Get(ctx context.Context, id models.KnowledgeID) (*models.Knowledge, error) {
	return s.store.LoadKnowledge(ctx, id)
}

// keywordScore implements the fixed weighting: summary 10, detail 5,
// each tag 7, each domain 3, with a 1.2 boost for best practices and
// solutions.
func keywordScore(k *models.Knowledge, query string) float64 {
	if query == "" {
		return 0
	}
	var score float64
	if strings.Contains(strings.ToLower(k.Content.Summary), query) {
		score += 10
	}
	if strings.Contains(strings.ToLower(k.Content.Detail), query) {
		score += 5
	}
	for _, tag := range k.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			score += 7
		}
	}
	for _, domain := range k.Metadata.Domains {
		if strings.Contains(strings.ToLower(domain), query) {
			score += 3
		}
	}
	if k.Type == models.KnowledgeBestPractice || k.Type == models.KnowledgeSolution {
		score *= 1.2
	}
	return score
}

func (s *service) SearchKeyword(ctx context.Context, query string, limit int) ([]ScoredKnowledge, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	all, err := s.store.ListKnowledge(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching knowledge: %w", err)
	}

	var scored []ScoredKnowledge
	for _, k := range all {
		if score := keywordScore(k, query); score > 0 {
			scored = append(scored, ScoredKnowledge{Knowledge: k, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *service) SearchByTagsAny(ctx context.Context, tags []string) ([]*models.Knowledge, error) {
	return s.searchByTags(ctx, tags, false)
}

func (s *service) SearchByTagsAll(ctx context.Context, tags []string) ([]*models.Knowledge, error) {
	return s.searchByTags(ctx, tags, true)
}

func (s *service) searchByTags(ctx context.Context, tags []string, requireAll bool) ([]*models.Knowledge, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	wanted := make(map[string]bool, len(tags))
	for _, tag := range tags {
		wanted[strings.ToLower(tag)] = true
	}

	all, err := s.store.ListKnowledge(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching knowledge by tags: %w", err)
	}

	var out []*models.Knowledge
	for _, k := range all {
		have := make(map[string]bool, len(k.Tags))
		for _, tag := range k.Tags {
			have[strings.ToLower(tag)] = true
		}
		matches := 0
		for tag := range wanted {
			if have[tag] {
				matches++
			}
		}
		if requireAll && matches == len(wanted) || !requireAll && matches > 0 {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *service) BestPractices(ctx context.Context, domain string) ([]*models.Knowledge, error) {
	all, err := s.store.ListKnowledge(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading best practices: %w", err)
	}
	var out []*models.Knowledge
	for _, k := range all {
		for _, d := range k.Metadata.Domains {
			if strings.EqualFold(d, domain) {
				out = append(out, k)
				break
			}
		}
	}
	return out, nil
}

func (s *service) RecordUsage(ctx context.Context, id models.KnowledgeID, success bool) error {
	k, err := s.store.LoadKnowledge(ctx, id)
	if err != nil {
		return fmt.Errorf("recording usage for %s: %w", id, err)
	}

	stats := &k.UsageStats
	successes := stats.SuccessRate * float64(stats.TimesUsed)
	if success {
		successes++
	}
	stats.TimesUsed++
	stats.SuccessRate = successes / float64(stats.TimesUsed)
	now := time.Now()
	stats.LastUsed = &now

	return s.store.SaveKnowledge(ctx, k)
}

func (s *service) AddFeedback(ctx context.Context, id models.KnowledgeID, fb models.Feedback) error {
	if fb.Rating < 1 || fb.Rating > 5 {
		return fmt.Errorf("adding feedback for %s: rating %d out of range 1-5", id, fb.Rating)
	}
	k, err := s.store.LoadKnowledge(ctx, id)
	if err != nil {
		return fmt.Errorf("adding feedback for %s: %w", id, err)
	}
	if fb.At.IsZero() {
		fb.At = time.Now()
	}
	k.UsageStats.Feedback = append(k.UsageStats.Feedback, fb)
	return s.store.SaveKnowledge(ctx, k)
}
