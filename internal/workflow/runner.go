// Package workflow runs named, ordered scripts of tool invocations with
// per-step conditions, retries, and failure strategies.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devman-ai/devman/internal/tools"
	"github.com/devman-ai/devman/pkg/models"
)

const defaultRetryDelay = time.Second

// Runner executes workflows against a tool executor.
type Runner interface {
	Execute(ctx context.Context, wf *models.Workflow) (*models.WorkflowResult, error)
	ExecuteWithVars(ctx context.Context, wf *models.Workflow, vars map[string]string) (*models.WorkflowResult, error)
}

type runner struct {
	executor tools.Executor
}

// NewRunner creates a workflow runner on top of a tool executor.
func NewRunner(executor tools.Executor) Runner {
	return &runner{executor: executor}
}

func (r *runner) Execute(ctx context.Context, wf *models.Workflow) (*models.WorkflowResult, error) {
	return r.ExecuteWithVars(ctx, wf, wf.Variables)
}

func (r *runner) ExecuteWithVars(ctx context.Context, wf *models.Workflow, vars map[string]string) (*models.WorkflowResult, error) {
	start := time.Now()

	var (
		results   []models.StepResult
		completed []models.StepResult
		runErr    string
	)

	for i, step := range wf.Steps {
		if step.Condition != nil && !evaluateCondition(step.Condition, vars, results) {
			results = append(results, models.StepResult{
				Name:    step.Name,
				Success: true,
				Skipped: true,
			})
			continue
		}

		result, err := r.runStep(ctx, &step, vars)
		if err != nil {
			return nil, fmt.Errorf("running step %s: %w", step.Name, err)
		}

		if result.Success {
			completed = append(completed, *result)
			results = append(results, *result)
			continue
		}

		switch failureStrategy(wf, &step) {
		case models.FailureSkip:
			results = append(results, models.StepResult{
				Name:     step.Name,
				Duration: result.Duration,
				Error:    result.Error,
				Skipped:  true,
			})
		case models.FailureContinue:
			results = append(results, *result)
		case models.FailureRollback:
			results = append(results, *result)
			if wf.EnableRollback {
				if err := r.rollback(ctx, wf, completed, vars); err != nil {
					return &models.WorkflowResult{
						Success:     false,
						StepResults: results,
						Duration:    time.Since(start),
						Error:       fmt.Sprintf("rollback failed: %v", err),
					}, nil
				}
			}
			runErr = fmt.Sprintf("step %d failed: %s", i, result.Error)
		default: // stop
			results = append(results, *result)
			runErr = fmt.Sprintf("step %d failed: %s", i, result.Error)
		}

		if runErr != "" {
			break
		}
	}

	success := runErr == ""
	for _, res := range results {
		if !res.Success && !res.Skipped {
			success = false
		}
	}

	return &models.WorkflowResult{
		Success:     success,
		StepResults: results,
		Duration:    time.Since(start),
		Error:       runErr,
	}, nil
}

// runStep executes one step with retries. Launch failures retry; a run that
// produced an exit code counts as an attempt outcome.
func (r *runner) runStep(ctx context.Context, step *models.WorkflowStep, vars map[string]string) (*models.StepResult, error) {
	start := time.Now()
	delay := step.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var lastErr error
	for attempt := 0; attempt <= step.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		input := substituteInput(&step.Input, vars)
		output, err := r.executor.Execute(ctx, step.Tool, input)
		if err != nil {
			lastErr = err
			continue
		}

		result := &models.StepResult{
			Name:     step.Name,
			Success:  output.ExitCode == 0,
			Output:   &models.Output{Name: "stdout", Value: output.Stdout},
			Duration: time.Since(start),
		}
		if output.ExitCode != 0 {
			result.Error = fmt.Sprintf("exit code: %d", output.ExitCode)
		}
		return result, nil
	}

	return &models.StepResult{
		Name:     step.Name,
		Duration: time.Since(start),
		Error:    lastErr.Error(),
	}, nil
}

// failureStrategy resolves the effective strategy for a step, falling back to
// the workflow-level strategy and then to stop.
func failureStrategy(wf *models.Workflow, step *models.WorkflowStep) models.FailureStrategy {
	if step.OnFailure != "" {
		return step.OnFailure
	}
	if wf.OnFailure != "" {
		return wf.OnFailure
	}
	return models.FailureStop
}

func evaluateCondition(cond *models.StepCondition, vars map[string]string, previous []models.StepResult) bool {
	switch cond.Kind {
	case models.CondPreviousSuccess:
		for _, res := range previous {
			if res.Name == cond.StepName {
				return res.Success
			}
		}
		return false
	case models.CondPreviousFailed:
		for _, res := range previous {
			if res.Name == cond.StepName {
				return !res.Success && !res.Skipped
			}
		}
		return false
	case models.CondVariableEquals:
		return vars[cond.Variable] == cond.Value
	case models.CondVariableExists:
		_, ok := vars[cond.Variable]
		return ok
	case models.CondCustom:
		// Custom expressions are not evaluated yet; treat as satisfied.
		return true
	default:
		return true
	}
}

// substituteInput replaces {var} placeholders in args and env values.
func substituteInput(inv *models.ToolInvocation, vars map[string]string) tools.Input {
	input := tools.Input{
		Args:    make([]string, len(inv.Args)),
		Timeout: inv.Timeout,
	}
	for i, arg := range inv.Args {
		input.Args[i] = substitute(arg, vars)
	}
	if len(inv.Env) > 0 {
		input.Env = make(map[string]string, len(inv.Env))
		for k, v := range inv.Env {
			input.Env[k] = substitute(v, vars)
		}
	}
	return input
}

func substitute(s string, vars map[string]string) string {
	for key, value := range vars {
		s = strings.ReplaceAll(s, "{"+key+"}", value)
	}
	return s
}

// rollback walks successful steps in reverse order. Steps without an explicit
// rollback invocation are only logged as unwound.
func (r *runner) rollback(ctx context.Context, wf *models.Workflow, completed []models.StepResult, vars map[string]string) error {
	for i := len(completed) - 1; i >= 0; i-- {
		res := completed[i]
		if !res.Success || res.Skipped {
			continue
		}
		found := false
		for _, step := range wf.Steps {
			if step.Name == res.Name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("step not found: %s", res.Name)
		}
	}
	return nil
}
