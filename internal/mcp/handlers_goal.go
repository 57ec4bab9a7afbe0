package mcp

import (
	"context"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devman-ai/devman/pkg/models"
)

type goalCreateInput struct {
	Title           string   `json:"title" jsonschema:"required,short goal title"`
	Description     string   `json:"description,omitempty"`
	ProjectID       string   `json:"project_id,omitempty"`
	SuccessCriteria []string `json:"success_criteria,omitempty" jsonschema:"verifiable conditions for goal completion"`
}

type goalOutput struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status"`
	ProjectID      string   `json:"project_id,omitempty"`
	Percentage     float64  `json:"percentage"`
	ActiveTasks    int      `json:"active_tasks"`
	CompletedTasks int      `json:"completed_tasks"`
	Criteria       []string `json:"criteria,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

func goalToOutput(g *models.Goal) goalOutput {
	out := goalOutput{
		ID:             g.ID.String(),
		Title:          g.Title,
		Description:    g.Description,
		Status:         string(g.Status),
		ProjectID:      string(g.ProjectID),
		Percentage:     g.Progress.Percentage,
		ActiveTasks:    g.Progress.ActiveTasks,
		CompletedTasks: g.Progress.CompletedTasks,
		CreatedAt:      g.CreatedAt.Format(time.RFC3339),
	}
	for _, c := range g.SuccessCriteria {
		out.Criteria = append(out.Criteria, c.Description)
	}
	return out
}

func (s *Server) handleGoalCreate(ctx context.Context, _ *gomcp.CallToolRequest, input goalCreateInput) (*gomcp.CallToolResult, goalOutput, error) {
	if input.Title == "" {
		return invalidParams("title is required"), goalOutput{}, nil
	}

	now := time.Now().UTC()
	goal := &models.Goal{
		ID:          models.NewGoalID(),
		Title:       input.Title,
		Description: input.Description,
		ProjectID:   models.ProjectID(input.ProjectID),
		Status:      models.GoalActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, desc := range input.SuccessCriteria {
		goal.SuccessCriteria = append(goal.SuccessCriteria, models.SuccessCriterion{
			ID:          models.NewCriterionID(),
			Description: desc,
			Verification: models.VerificationMethod{Kind: models.VerifyManual},
			Status:      models.CriterionNotStarted,
		})
	}

	if err := s.deps.Store.SaveGoal(ctx, goal); err != nil {
		return errorResult(err), goalOutput{}, nil
	}
	return nil, goalToOutput(goal), nil
}

type goalIDInput struct {
	GoalID string `json:"goal_id" jsonschema:"required,the goal identifier"`
}

func (s *Server) handleGoalGetProgress(ctx context.Context, _ *gomcp.CallToolRequest, input goalIDInput) (*gomcp.CallToolResult, models.GoalProgress, error) {
	if input.GoalID == "" {
		return invalidParams("goal_id is required"), models.GoalProgress{}, nil
	}
	id, err := models.ParseGoalID(input.GoalID)
	if err != nil {
		return invalidParams("invalid goal_id: " + input.GoalID), models.GoalProgress{}, nil
	}

	prog, err := s.deps.Tracker.GoalProgress(ctx, id)
	if err != nil {
		return errorResult(err), models.GoalProgress{}, nil
	}
	return nil, *prog, nil
}

type goalListOutput struct {
	Goals []goalOutput `json:"goals"`
	Count int          `json:"count"`
}

func (s *Server) handleGoalList(ctx context.Context, _ *gomcp.CallToolRequest, _ struct{}) (*gomcp.CallToolResult, goalListOutput, error) {
	goals, err := s.deps.Store.ListGoals(ctx)
	if err != nil {
		return errorResult(err), goalListOutput{}, nil
	}

	out := goalListOutput{Goals: make([]goalOutput, len(goals)), Count: len(goals)}
	for i, g := range goals {
		out.Goals[i] = goalToOutput(g)
	}
	return nil, out, nil
}
