package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devman-ai/devman/internal/progress"
	"github.com/devman-ai/devman/internal/tools"
	"github.com/devman-ai/devman/pkg/models"
)

type toolExecInput struct {
	Tool           string            `json:"tool" jsonschema:"required,name of the registered external tool"`
	Args           []string          `json:"args,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	Stdin          string            `json:"stdin,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	WorkDir        string            `json:"work_dir,omitempty"`
}

type toolExecOutput struct {
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMS int64  `json:"duration_ms"`
}

func (s *Server) handleToolExec(ctx context.Context, _ *gomcp.CallToolRequest, input toolExecInput) (*gomcp.CallToolResult, toolExecOutput, error) {
	if input.Tool == "" {
		return invalidParams("tool is required"), toolExecOutput{}, nil
	}

	in := tools.Input{
		Args:    input.Args,
		Env:     input.Env,
		Stdin:   input.Stdin,
		WorkDir: input.WorkDir,
	}
	if input.TimeoutSeconds > 0 {
		in.Timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}

	out, err := s.deps.Executor.Execute(ctx, input.Tool, in)
	if err != nil {
		return errorResult(err), toolExecOutput{}, nil
	}
	return nil, toolExecOutput{
		ExitCode:   out.ExitCode,
		Stdout:     out.Stdout,
		Stderr:     out.Stderr,
		DurationMS: out.Duration.Milliseconds(),
	}, nil
}

type currentContextOutput struct {
	TasksByStatus map[string]int `json:"tasks_by_status"`
	ActiveTasks   []taskOutput   `json:"active_tasks"`
	TotalTasks    int            `json:"total_tasks"`
}

func (s *Server) handleContextGetCurrent(ctx context.Context, _ *gomcp.CallToolRequest, _ struct{}) (*gomcp.CallToolResult, currentContextOutput, error) {
	tasks, err := s.deps.Work.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		return errorResult(err), currentContextOutput{}, nil
	}

	out := currentContextOutput{
		TasksByStatus: make(map[string]int),
		TotalTasks:    len(tasks),
	}
	for _, t := range tasks {
		out.TasksByStatus[string(t.Status)]++
		if t.Status == models.StatusActive {
			out.ActiveTasks = append(out.ActiveTasks, taskToOutput(t))
		}
	}
	return nil, out, nil
}

type blockerOutput struct {
	ID       string `json:"id"`
	TaskID   string `json:"task_id,omitempty"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

type suggestionOutput struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

type listBlockersOutput struct {
	Blockers       []blockerOutput        `json:"blockers"`
	Suggestions    []suggestionOutput     `json:"suggestions"`
	Stats          progress.BlockerStats  `json:"stats"`
	CircularChains [][]string             `json:"circular_chains,omitempty"`
}

func (s *Server) handleContextListBlockers(ctx context.Context, _ *gomcp.CallToolRequest, _ struct{}) (*gomcp.CallToolResult, listBlockersOutput, error) {
	analysis, err := s.deps.Blockers.DetectAndAnalyze(ctx)
	if err != nil {
		return errorResult(err), listBlockersOutput{}, nil
	}

	out := listBlockersOutput{Stats: analysis.Stats}
	for _, b := range analysis.Blockers {
		out.Blockers = append(out.Blockers, blockerOutput{
			ID:       b.ID.String(),
			TaskID:   b.BlockedItem.TaskID.String(),
			Reason:   b.Reason,
			Severity: string(b.Severity),
		})
	}
	for _, sg := range analysis.Suggestions {
		out.Suggestions = append(out.Suggestions, suggestionOutput{
			Action:      string(sg.Action),
			Description: sg.Description,
			Priority:    sg.Priority,
		})
	}
	for _, chain := range analysis.CircularChains {
		ids := make([]string, len(chain))
		for i, id := range chain {
			ids[i] = id.String()
		}
		out.CircularChains = append(out.CircularChains, ids)
	}
	return nil, out, nil
}

type jobIDInput struct {
	JobID string `json:"job_id" jsonschema:"required,the job identifier"`
}

type jobOutput struct {
	ID              string           `json:"id"`
	Kind            string           `json:"kind"`
	Status          string           `json:"status"`
	Progress        int              `json:"progress"`
	ProgressMessage string           `json:"progress_message,omitempty"`
	Result          string           `json:"result,omitempty"`
	Error           *models.JobError `json:"error,omitempty"`
}

func jobToOutput(j *models.Job) jobOutput {
	return jobOutput{
		ID:              j.ID.String(),
		Kind:            j.Type.Kind,
		Status:          string(j.Status),
		Progress:        j.Progress,
		ProgressMessage: j.ProgressMessage,
		Result:          string(j.Result),
		Error:           j.Error,
	}
}

func (s *Server) handleJobGetStatus(_ context.Context, _ *gomcp.CallToolRequest, input jobIDInput) (*gomcp.CallToolResult, jobOutput, error) {
	if input.JobID == "" {
		return invalidParams("job_id is required"), jobOutput{}, nil
	}
	id, err := models.ParseJobID(input.JobID)
	if err != nil {
		return invalidParams("invalid job_id: " + input.JobID), jobOutput{}, nil
	}

	job, err := s.deps.Jobs.Get(id)
	if err != nil {
		return errorResult(err), jobOutput{}, nil
	}
	return nil, jobToOutput(job), nil
}

func (s *Server) handleJobCancel(_ context.Context, _ *gomcp.CallToolRequest, input jobIDInput) (*gomcp.CallToolResult, jobOutput, error) {
	if input.JobID == "" {
		return invalidParams("job_id is required"), jobOutput{}, nil
	}
	id, err := models.ParseJobID(input.JobID)
	if err != nil {
		return invalidParams("invalid job_id: " + input.JobID), jobOutput{}, nil
	}

	job, err := s.deps.Jobs.Cancel(id)
	if err != nil {
		return errorResult(err), jobOutput{}, nil
	}
	return nil, jobToOutput(job), nil
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, observabilityMetrics, error) {
	if s.deps.Metrics == nil {
		return businessError(models.CodeBusinessError, "metrics are not available (observability is disabled)", false, nil), observabilityMetrics{}, nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}
	since, err := parseSince(sinceStr)
	if err != nil {
		return invalidParams(err.Error()), observabilityMetrics{}, nil
	}

	m, err := s.deps.Metrics.Calculate(since, time.Now().UTC())
	if err != nil {
		return errorResult(err), observabilityMetrics{}, nil
	}
	return nil, observabilityMetrics{
		TasksCreated:       m.TasksCreated,
		TasksCompleted:     m.TasksCompleted,
		TasksAbandoned:     m.TasksAbandoned,
		TransitionsByState: m.TransitionsByState,
		QualityGatesPassed: m.QualityGatesPassed,
		QualityGatesFailed: m.QualityGatesFailed,
		KnowledgeUsed:      m.KnowledgeUsed,
		EventCount:         m.EventCount,
	}, nil
}

type observabilityMetrics struct {
	TasksCreated       int            `json:"tasks_created"`
	TasksCompleted     int            `json:"tasks_completed"`
	TasksAbandoned     int            `json:"tasks_abandoned"`
	TransitionsByState map[string]int `json:"transitions_by_state"`
	QualityGatesPassed int            `json:"quality_gates_passed"`
	QualityGatesFailed int            `json:"quality_gates_failed"`
	KnowledgeUsed      int            `json:"knowledge_used"`
	EventCount         int            `json:"event_count"`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ struct{}) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.deps.Alerts == nil {
		return businessError(models.CodeBusinessError, "alerts are not available (observability is disabled)", false, nil), getAlertsOutput{}, nil
	}

	alerts, err := s.deps.Alerts.Evaluate()
	if err != nil {
		return errorResult(err), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{Alerts: make([]alertOutput, len(alerts)), Count: len(alerts)}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// parseSince parses a human-friendly duration string like "7d", "30d",
// or "24h" into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
