package models

import "time"

// Workflow is a named, ordered script of tool invocations.
type Workflow struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Steps          []WorkflowStep    `json:"steps"`
	OnFailure      FailureStrategy   `json:"on_failure,omitempty"`
	Variables      map[string]string `json:"variables,omitempty"`
	EnableRollback bool              `json:"enable_rollback,omitempty"`
}

// WorkflowStep is one step of a workflow.
type WorkflowStep struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Tool        string          `json:"tool"`
	Input       ToolInvocation  `json:"input"`
	OnFailure   FailureStrategy `json:"on_failure,omitempty"`
	Condition   *StepCondition  `json:"condition,omitempty"`
	MaxRetries  int             `json:"max_retries,omitempty"`
	RetryDelay  time.Duration   `json:"retry_delay,omitempty"`
}

// FailureStrategy decides what happens after a failed step.
type FailureStrategy string

const (
	FailureStop     FailureStrategy = "stop"
	FailureSkip     FailureStrategy = "skip"
	FailureRollback FailureStrategy = "rollback"
	FailureContinue FailureStrategy = "continue"
)

// ConditionKind enumerates step condition variants.
type ConditionKind string

const (
	CondPreviousSuccess ConditionKind = "previous_success"
	CondPreviousFailed  ConditionKind = "previous_failed"
	CondVariableEquals  ConditionKind = "variable_equals"
	CondVariableExists  ConditionKind = "variable_exists"
	CondCustom          ConditionKind = "custom"
)

// StepCondition gates whether a step runs.
type StepCondition struct {
	Kind     ConditionKind `json:"kind"`
	StepName string        `json:"step_name,omitempty"`
	Variable string        `json:"variable,omitempty"`
	Value    string        `json:"value,omitempty"`
	Expr     string        `json:"expr,omitempty"`
}

// WorkflowResult is the outcome of one workflow execution.
type WorkflowResult struct {
	Success     bool          `json:"success"`
	StepResults []StepResult  `json:"step_results"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Output   *Output       `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Skipped  bool          `json:"skipped"`
}
