package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devman-ai/devman/internal/quality"
	"github.com/devman-ai/devman/pkg/models"
)

type runQualityCheckInput struct {
	TaskID         string `json:"task_id" jsonschema:"required,the task identifier"`
	WorkDir        string `json:"work_dir,omitempty" jsonschema:"directory the checks run in"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"job budget in seconds (default 300)"`
}

type runQualityCheckOutput struct {
	CheckID string `json:"check_id"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
}

// handleTaskRunQualityCheck moves the task into quality checking and
// runs its gates' checks as a background job. The verdict is fetched
// with task_get_quality_result and recorded with
// task_confirm_quality_result.
func (s *Server) handleTaskRunQualityCheck(ctx context.Context, _ *gomcp.CallToolRequest, input runQualityCheckInput) (*gomcp.CallToolResult, runQualityCheckOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, runQualityCheckOutput{}, nil
	}

	task, err := s.deps.Work.GetTask(ctx, id)
	if err != nil {
		return errorResult(err), runQualityCheckOutput{}, nil
	}

	checkID, err := s.deps.Work.RunQualityCheck(ctx, id)
	if err != nil {
		return errorResult(err), runQualityCheckOutput{}, nil
	}

	var checks []*models.QualityCheck
	for _, gate := range task.QualityGates {
		for _, cid := range gate.Checks {
			check, err := s.deps.Store.LoadQualityCheck(ctx, cid)
			if err != nil {
				return errorResult(fmt.Errorf("loading check %s: %w", cid, err)), runQualityCheckOutput{}, nil
			}
			checks = append(checks, check)
		}
	}

	cctx := quality.CheckContext{TaskID: id, WorkDir: input.WorkDir}
	job := s.deps.Jobs.Submit(
		models.JobType{Kind: "quality_check", Title: task.Title, Data: mustJSON(map[string]string{"task_id": id.String()})},
		input.TimeoutSeconds,
		func(jctx context.Context) (json.RawMessage, error) {
			results, err := s.deps.Quality.RunChecks(jctx, checks, cctx)
			if err != nil {
				return nil, err
			}
			status := quality.Summarize(id, results)
			return json.Marshal(status)
		},
	)

	s.mu.Lock()
	s.qualityJobs[id] = job.ID
	s.mu.Unlock()

	return nil, runQualityCheckOutput{
		CheckID: checkID.String(),
		JobID:   job.ID.String(),
		Status:  string(job.Status),
	}, nil
}

type qualityResultOutput struct {
	JobID         string                `json:"job_id"`
	JobStatus     string                `json:"job_status"`
	QualityStatus *models.QualityStatus `json:"quality_status,omitempty"`
}

func (s *Server) handleTaskGetQualityResult(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, qualityResultOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, qualityResultOutput{}, nil
	}

	job, bad := s.qualityJob(ctx, id)
	if bad != nil {
		return bad, qualityResultOutput{}, nil
	}

	out := qualityResultOutput{JobID: job.ID.String(), JobStatus: string(job.Status)}
	if job.Status == models.JobCompleted && len(job.Result) > 0 {
		var status models.QualityStatus
		if err := json.Unmarshal(job.Result, &status); err != nil {
			return errorResult(fmt.Errorf("decoding quality status: %w", err)), qualityResultOutput{}, nil
		}
		out.QualityStatus = &status
	}
	return nil, out, nil
}

func (s *Server) handleTaskConfirmQualityResult(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	id, bad := parseTaskID(input.TaskID)
	if bad != nil {
		return bad, taskOutput{}, nil
	}

	job, bad := s.qualityJob(ctx, id)
	if bad != nil {
		return bad, taskOutput{}, nil
	}
	if job.Status != models.JobCompleted {
		return businessError(models.CodeStateConflict,
			fmt.Sprintf("quality check job is %s, not completed", job.Status), job.Status == models.JobRunning, nil), taskOutput{}, nil
	}

	var status models.QualityStatus
	if err := json.Unmarshal(job.Result, &status); err != nil {
		return errorResult(fmt.Errorf("decoding quality status: %w", err)), taskOutput{}, nil
	}

	result := models.TaskQualityCheckResult{
		OverallStatus: status.OverallStatus,
		FindingsCount: status.FailedChecks,
		WarningsCount: status.Warnings,
	}
	task, err := s.deps.Work.CompleteQualityCheck(ctx, id, result)
	if err != nil {
		return errorResult(err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

// qualityJob resolves the task's most recent quality check job.
func (s *Server) qualityJob(_ context.Context, id models.TaskID) (*models.Job, *gomcp.CallToolResult) {
	s.mu.Lock()
	jobID, ok := s.qualityJobs[id]
	s.mu.Unlock()
	if !ok {
		return nil, businessError(models.CodeResourceNotFound,
			"no quality check has been started for task "+id.String(), false, nil)
	}

	job, err := s.deps.Jobs.Get(jobID)
	if err != nil {
		return nil, errorResult(err)
	}
	return job, nil
}

type qualityRunCheckInput struct {
	CheckID string `json:"check_id" jsonschema:"required,the stored quality check identifier"`
	TaskID  string `json:"task_id,omitempty" jsonschema:"task the check runs against"`
	WorkDir string `json:"work_dir,omitempty"`
}

func (s *Server) handleQualityRunCheck(ctx context.Context, _ *gomcp.CallToolRequest, input qualityRunCheckInput) (*gomcp.CallToolResult, models.QualityCheckResult, error) {
	if input.CheckID == "" {
		return invalidParams("check_id is required"), models.QualityCheckResult{}, nil
	}
	checkID, err := models.ParseQualityCheckID(input.CheckID)
	if err != nil {
		return invalidParams("invalid check_id: " + input.CheckID), models.QualityCheckResult{}, nil
	}

	check, err := s.deps.Store.LoadQualityCheck(ctx, checkID)
	if err != nil {
		return errorResult(err), models.QualityCheckResult{}, nil
	}

	cctx := quality.CheckContext{WorkDir: input.WorkDir}
	if input.TaskID != "" {
		id, bad := parseTaskID(input.TaskID)
		if bad != nil {
			return bad, models.QualityCheckResult{}, nil
		}
		cctx.TaskID = id
	}

	result, err := s.deps.Quality.RunCheck(ctx, check, cctx)
	if err != nil {
		return errorResult(err), models.QualityCheckResult{}, nil
	}
	return nil, *result, nil
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
