package mcp

import (
	"context"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devman-ai/devman/pkg/models"
)

type knowledgeSearchInput struct {
	Query string `json:"query" jsonschema:"required,free-text search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum results (default 10)"`
}

type knowledgeSearchOutput struct {
	Items []knowledgeItemOutput `json:"items"`
	Count int                   `json:"count"`
}

func (s *Server) handleKnowledgeSearch(ctx context.Context, _ *gomcp.CallToolRequest, input knowledgeSearchInput) (*gomcp.CallToolResult, knowledgeSearchOutput, error) {
	if input.Query == "" {
		return invalidParams("query is required"), knowledgeSearchOutput{}, nil
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	items, err := s.searchKnowledge(ctx, input.Query, limit)
	if err != nil {
		return errorResult(err), knowledgeSearchOutput{}, nil
	}
	return nil, knowledgeSearchOutput{Items: items, Count: len(items)}, nil
}

// searchKnowledge runs the hybrid searcher when configured and falls
// back to keyword scoring otherwise.
func (s *Server) searchKnowledge(ctx context.Context, query string, limit int) ([]knowledgeItemOutput, error) {
	if s.deps.Searcher != nil {
		ranked, err := s.deps.Searcher.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}
		items := make([]knowledgeItemOutput, len(ranked))
		for i, r := range ranked {
			items[i] = knowledgeItemOutput{
				ID:      r.Knowledge.ID.String(),
				Title:   r.Knowledge.Title,
				Type:    string(r.Knowledge.Type),
				Summary: r.Knowledge.Content.Summary,
				Score:   r.RerankScore,
			}
		}
		return items, nil
	}

	scored, err := s.deps.Knowledge.SearchKeyword(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	items := make([]knowledgeItemOutput, len(scored))
	for i, sk := range scored {
		items[i] = knowledgeItemOutput{
			ID:      sk.Knowledge.ID.String(),
			Title:   sk.Knowledge.Title,
			Type:    string(sk.Knowledge.Type),
			Summary: sk.Knowledge.Content.Summary,
			Score:   sk.Score,
		}
	}
	return items, nil
}

type knowledgeSaveInput struct {
	Title     string   `json:"title" jsonschema:"required,short knowledge title"`
	Type      string   `json:"type,omitempty" jsonschema:"knowledge type (lesson_learned, best_practice, code_pattern, solution, template, decision)"`
	Summary   string   `json:"summary" jsonschema:"required,one-paragraph summary"`
	Detail    string   `json:"detail,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Domains   []string `json:"domains,omitempty"`
	TechStack []string `json:"tech_stack,omitempty"`
}

type knowledgeSaveOutput struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (s *Server) handleKnowledgeSave(ctx context.Context, _ *gomcp.CallToolRequest, input knowledgeSaveInput) (*gomcp.CallToolResult, knowledgeSaveOutput, error) {
	if input.Title == "" {
		return invalidParams("title is required"), knowledgeSaveOutput{}, nil
	}
	if input.Summary == "" {
		return invalidParams("summary is required"), knowledgeSaveOutput{}, nil
	}

	ktype := models.KnowledgeType(input.Type)
	if ktype == "" {
		ktype = models.KnowledgeLessonLearned
	}

	now := time.Now().UTC()
	k := &models.Knowledge{
		ID:        models.NewKnowledgeID(),
		Title:     input.Title,
		Type:      ktype,
		CreatedAt: now,
		UpdatedAt: now,
		Content: models.KnowledgeContent{
			Summary: input.Summary,
			Detail:  input.Detail,
		},
		Metadata: models.KnowledgeMetadata{
			Domains:   input.Domains,
			TechStack: input.TechStack,
		},
		Tags: input.Tags,
	}

	if err := s.deps.Knowledge.Save(ctx, k); err != nil {
		return errorResult(err), knowledgeSaveOutput{}, nil
	}
	return nil, knowledgeSaveOutput{ID: k.ID.String(), Message: "knowledge saved"}, nil
}
