package models

import "time"

// TaskStatus is the coarse 7-state projection of the fine TaskState,
// used by listing and filtering code.
type TaskStatus string

const (
	StatusIdea      TaskStatus = "idea"
	StatusQueued    TaskStatus = "queued"
	StatusActive    TaskStatus = "active"
	StatusBlocked   TaskStatus = "blocked"
	StatusReview    TaskStatus = "review"
	StatusDone      TaskStatus = "done"
	StatusAbandoned TaskStatus = "abandoned"
)

// Task is the atomic unit of work gated by the state machine.
type Task struct {
	ID              TaskID          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Intent          Intent          `json:"intent"`
	Steps           []ExecutionStep `json:"steps"`
	Inputs          []IOSlot        `json:"inputs"`
	ExpectedOutputs []IOSlot        `json:"expected_outputs"`
	QualityGates    []QualityGate   `json:"quality_gates"`
	Status          TaskStatus      `json:"status"`
	State           TaskState       `json:"state"`
	Progress        TaskProgress    `json:"progress"`
	PhaseID         PhaseID         `json:"phase_id,omitempty"`
	DependsOn       []TaskID        `json:"depends_on"`
	Blocks          []TaskID        `json:"blocks"`
	WorkRecords     []WorkRecordID  `json:"work_records"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Intent captures what the task is trying to achieve and the context
// the executor should consult before starting.
type Intent struct {
	Description     string        `json:"description"`
	Context         IntentContext `json:"context"`
	SuccessCriteria []string      `json:"success_criteria"`
}

// IntentContext references the material relevant to a task.
type IntentContext struct {
	RelatedKnowledge []KnowledgeID `json:"related_knowledge"`
	SimilarTasks     []TaskID      `json:"similar_tasks"`
	AffectedFiles    []string      `json:"affected_files"`
}

// ExecutionStep is one ordered step of a task's planned execution.
type ExecutionStep struct {
	Order        int            `json:"order"`
	Description  string         `json:"description"`
	Tool         ToolInvocation `json:"tool"`
	Verification *Verification  `json:"verification,omitempty"`
}

// ToolInvocation names an external tool and its invocation parameters.
type ToolInvocation struct {
	Name    string            `json:"name"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty"`
}

// Verification describes how to confirm a step did what it claims.
type Verification struct {
	Check    string `json:"check"`
	Expected string `json:"expected"`
}

// IOSlot is a named, typed input or expected output of a task.
type IOSlot struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value,omitempty"`
}

// QualityGate is a named group of quality checks with a pass condition
// and a failure action.
type QualityGate struct {
	Name          string            `json:"name"`
	Checks        []QualityCheckID  `json:"checks"`
	PassCondition GatePassCondition `json:"pass_condition"`
	FailureAction FailureAction     `json:"failure_action"`
}

// GatePassCondition decides whether a gate passes given its check results.
type GatePassCondition struct {
	Kind    GatePassKind `json:"kind"`
	AtLeast int          `json:"at_least,omitempty"`
	Expr    string       `json:"expr,omitempty"`
}

// GatePassKind enumerates the gate pass condition variants.
type GatePassKind string

const (
	GatePassAllPassed GatePassKind = "all_passed"
	GatePassAtLeast   GatePassKind = "at_least"
	GatePassCustom    GatePassKind = "custom"
)

// FailureAction is what a gate does when it fails.
type FailureAction string

const (
	FailureActionBlock    FailureAction = "block"
	FailureActionWarn     FailureAction = "warn"
	FailureActionEscalate FailureAction = "escalate"
)

// TaskProgress tracks how far through its steps a task is.
type TaskProgress struct {
	Percentage  float64 `json:"percentage"`
	CurrentStep int     `json:"current_step"`
	TotalSteps  int     `json:"total_steps"`
	Message     string  `json:"message,omitempty"`
}

// TaskFilter narrows task listings. Zero value matches everything.
type TaskFilter struct {
	Statuses []TaskStatus `json:"statuses,omitempty"`
	PhaseID  PhaseID      `json:"phase_id,omitempty"`
}

// Matches reports whether the task satisfies the filter.
func (f TaskFilter) Matches(t *Task) bool {
	if f.PhaseID != "" && t.PhaseID != f.PhaseID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if t.Status == s {
			return true
		}
	}
	return false
}
