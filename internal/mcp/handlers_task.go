package mcp

import (
	"context"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devman-ai/devman/internal/core"
	"github.com/devman-ai/devman/internal/work"
	"github.com/devman-ai/devman/pkg/models"
)

type stepInput struct {
	Description string            `json:"description" jsonschema:"required,what the step does"`
	Tool        string            `json:"tool" jsonschema:"required,name of the external tool to invoke"`
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
}

type taskCreateInput struct {
	Title       string      `json:"title" jsonschema:"required,short task title"`
	Description string      `json:"description,omitempty"`
	Intent      string      `json:"intent,omitempty" jsonschema:"what the task is trying to achieve"`
	Steps       []stepInput `json:"steps,omitempty"`
	PhaseID     string      `json:"phase_id,omitempty"`
	DependsOn   []string    `json:"depends_on,omitempty" jsonschema:"task ids this task depends on"`
}

type taskOutput struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	State       string   `json:"state"`
	Percentage  float64  `json:"percentage"`
	CurrentStep int      `json:"current_step"`
	TotalSteps  int      `json:"total_steps"`
	PhaseID     string   `json:"phase_id,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
	WorkRecords []string `json:"work_records,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func taskToOutput(t *models.Task) taskOutput {
	out := taskOutput{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		State:       string(t.State.Kind),
		Percentage:  t.Progress.Percentage,
		CurrentStep: t.Progress.CurrentStep,
		TotalSteps:  t.Progress.TotalSteps,
		PhaseID:     string(t.PhaseID),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
	for _, d := range t.DependsOn {
		out.DependsOn = append(out.DependsOn, d.String())
	}
	for _, w := range t.WorkRecords {
		out.WorkRecords = append(out.WorkRecords, w.String())
	}
	return out
}

func (s *Server) handleTaskCreate(ctx context.Context, _ *gomcp.CallToolRequest, input taskCreateInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.Title == "" {
		return invalidParams("title is required"), taskOutput{}, nil
	}

	spec := work.TaskSpec{
		Title:       input.Title,
		Description: input.Description,
		Intent: models.Intent{
			Description: input.Intent,
		},
		PhaseID: models.PhaseID(input.PhaseID),
	}
	for i, st := range input.Steps {
		spec.Steps = append(spec.Steps, models.ExecutionStep{
			Order:       i,
			Description: st.Description,
			Tool: models.ToolInvocation{
				Name: st.Tool,
				Args: st.Args,
				Env:  st.Env,
			},
		})
	}
	for _, d := range input.DependsOn {
		id, err := models.ParseTaskID(d)
		if err != nil {
			return invalidParams("invalid dependency id: " + d), taskOutput{}, nil
		}
		spec.DependsOn = append(spec.DependsOn, id)
	}

	task, err := s.deps.Work.CreateTask(ctx, spec)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

type taskListInput struct {
	Status string `json:"status,omitempty" jsonschema:"coarse status filter (idea, queued, active, blocked, review, done, abandoned)"`
}

type taskListOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

func (s *Server) handleTaskList(ctx context.Context, _ *gomcp.CallToolRequest, input taskListInput) (*gomcp.CallToolResult, taskListOutput, error) {
	var filter models.TaskFilter
	if input.Status != "" {
		filter.Statuses = []models.TaskStatus{models.TaskStatus(input.Status)}
	}

	tasks, err := s.deps.Work.ListTasks(ctx, filter)
	if err != nil {
		return errorResult(err), taskListOutput{}, nil
	}

	out := taskListOutput{Tasks: make([]taskOutput, len(tasks)), Count: len(tasks)}
	for i, t := range tasks {
		out.Tasks[i] = taskToOutput(t)
	}
	return nil, out, nil
}

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier"`
}

func parseTaskID(raw string) (models.TaskID, *gomcp.CallToolResult) {
	if raw == "" {
		return "", invalidParams("task_id is required")
	}
	id, err := models.ParseTaskID(raw)
	if err != nil {
		return "", invalidParams("invalid task_id: " + raw)
	}
	return id, nil
}

func (s *Server) handleTaskGetGuidance(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, core.Guidance, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, core.Guidance{}, nil
	}

	guidance, err := s.deps.Work.Guidance(ctx, id)
	if err != nil {
		return errorResult(err), core.Guidance{}, nil
	}
	return nil, *guidance, nil
}

func (s *Server) handleTaskReadContext(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, taskOutput{}, nil
	}

	task, err := s.deps.Work.ReadContext(ctx, id)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

type knowledgeItemOutput struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Type    string  `json:"type"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
}

type reviewKnowledgeOutput struct {
	Items []knowledgeItemOutput `json:"items"`
	Count int                   `json:"count"`
}

// handleTaskReviewKnowledge retrieves knowledge relevant to the task so
// the agent can review it before confirming.
func (s *Server) handleTaskReviewKnowledge(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, reviewKnowledgeOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, reviewKnowledgeOutput{}, nil
	}

	task, err := s.deps.Work.GetTask(ctx, id)
	if err != nil {
		return errorResult(err), reviewKnowledgeOutput{}, nil
	}

	query := task.Title
	if task.Description != "" {
		query += " " + task.Description
	}

	items, err := s.searchKnowledge(ctx, query, 10)
	if err != nil {
		return errorResult(err), reviewKnowledgeOutput{}, nil
	}
	return nil, reviewKnowledgeOutput{Items: items, Count: len(items)}, nil
}

type confirmKnowledgeInput struct {
	TaskID       string   `json:"task_id" jsonschema:"required,the task identifier"`
	KnowledgeIDs []string `json:"knowledge_ids" jsonschema:"required,ids of the knowledge items that were reviewed"`
}

func (s *Server) handleTaskConfirmKnowledgeReviewed(ctx context.Context, _ *gomcp.CallToolRequest, input confirmKnowledgeInput) (*gomcp.CallToolResult, taskOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, taskOutput{}, nil
	}
	if len(input.KnowledgeIDs) == 0 {
		return invalidParams("knowledge_ids must not be empty"), taskOutput{}, nil
	}

	var ids []models.KnowledgeID
	for _, raw := range input.KnowledgeIDs {
		kid, err := models.ParseKnowledgeID(raw)
		if err != nil {
			return invalidParams("invalid knowledge id: " + raw), taskOutput{}, nil
		}
		ids = append(ids, kid)
	}

	task, err := s.deps.Work.ConfirmKnowledgeReviewed(ctx, id, ids)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleTaskStartExecution(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, taskOutput{}, nil
	}

	task, err := s.deps.Work.StartExecution(ctx, id)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

type logWorkInput struct {
	TaskID      string `json:"task_id" jsonschema:"required,the task identifier"`
	EventType   string `json:"event_type,omitempty" jsonschema:"work event type (step_started, step_completed, step_failed, issue_discovered, issue_resolved, knowledge_created)"`
	Description string `json:"description" jsonschema:"required,what happened"`
}

type messageOutput struct {
	Message string `json:"message"`
}

func (s *Server) handleTaskLogWork(ctx context.Context, _ *gomcp.CallToolRequest, input logWorkInput) (*gomcp.CallToolResult, messageOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, messageOutput{}, nil
	}
	if input.Description == "" {
		return invalidParams("description is required"), messageOutput{}, nil
	}

	eventType := models.WorkEventType(input.EventType)
	if eventType == "" {
		eventType = models.WorkEventStepCompleted
	}

	if err := s.deps.Work.LogWork(ctx, id, eventType, input.Description); err != nil {
		return errorResult(err), messageOutput{}, nil
	}
	return nil, messageOutput{Message: "work logged on task " + id.String()}, nil
}

type finishWorkInput struct {
	TaskID      string `json:"task_id" jsonschema:"required,the task identifier"`
	Description string `json:"description,omitempty" jsonschema:"summary of the finished round of work"`
}

func (s *Server) handleTaskFinishWork(ctx context.Context, _ *gomcp.CallToolRequest, input finishWorkInput) (*gomcp.CallToolResult, taskOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, taskOutput{}, nil
	}

	task, err := s.deps.Work.FinishWork(ctx, id, input.Description)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleTaskComplete(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, taskOutput{}, nil
	}

	task, err := s.deps.Work.Complete(ctx, id)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

type pauseInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier"`
	Reason string `json:"reason,omitempty" jsonschema:"why the task is being paused"`
}

func (s *Server) handleTaskPause(ctx context.Context, _ *gomcp.CallToolRequest, input pauseInput) (*gomcp.CallToolResult, taskOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, taskOutput{}, nil
	}

	task, err := s.deps.Work.Pause(ctx, id, input.Reason)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleTaskResume(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, taskOutput{}, nil
	}

	task, err := s.deps.Work.Resume(ctx, id)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

type abandonInput struct {
	TaskID  string `json:"task_id" jsonschema:"required,the task identifier"`
	Kind    string `json:"kind,omitempty" jsonschema:"abandon category (technical_blocker, requirement_changed, duplicate, no_longer_needed, other)"`
	Reason  string `json:"reason" jsonschema:"required,why the task is being abandoned"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleTaskAbandon(ctx context.Context, _ *gomcp.CallToolRequest, input abandonInput) (*gomcp.CallToolResult, taskOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, taskOutput{}, nil
	}
	if input.Reason == "" {
		return invalidParams("reason is required"), taskOutput{}, nil
	}

	kind := models.AbandonKind(input.Kind)
	if kind == "" {
		kind = models.AbandonOther
	}
	reason := models.AbandonReason{Kind: kind, Reason: input.Reason, Details: input.Details}
	tctx := core.NewTransitionContext(s.deps.Caller).WithPermissions("abandon")

	task, err := s.deps.Work.Abandon(ctx, id, reason, tctx)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}
