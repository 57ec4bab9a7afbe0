package models

import "time"

// Phase is a stage of a project with specific objectives and gates.
type Phase struct {
	ID                 PhaseID               `json:"id"`
	Name               string                `json:"name"`
	Description        string                `json:"description"`
	Objectives         []string              `json:"objectives"`
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptance_criteria"`
	Tasks              []TaskID              `json:"tasks"`
	DependsOn          []PhaseID             `json:"depends_on"`
	Status             PhaseStatus           `json:"status"`
	Progress           PhaseProgress         `json:"progress"`
	EstimatedDuration  time.Duration         `json:"estimated_duration,omitempty"`
	ActualDuration     time.Duration         `json:"actual_duration,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
}

// PhaseStatus enumerates phase lifecycle states.
type PhaseStatus string

const (
	PhaseNotStarted PhaseStatus = "not_started"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseBlocked    PhaseStatus = "blocked"
	PhaseCancelled  PhaseStatus = "cancelled"
)

// AcceptanceCriterion gates phase completion on quality checks.
type AcceptanceCriterion struct {
	Description   string           `json:"description"`
	QualityChecks []QualityCheckID `json:"quality_checks"`
}

// PhaseProgress tracks task completion within a phase.
type PhaseProgress struct {
	CompletedTasks int     `json:"completed_tasks"`
	TotalTasks     int     `json:"total_tasks"`
	Percentage     float64 `json:"percentage"`
}
