package models

import "time"

// Goal is the top-level objective an agent is working towards.
type Goal struct {
	ID              GoalID             `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	SuccessCriteria []SuccessCriterion `json:"success_criteria"`
	Progress        GoalProgress       `json:"progress"`
	ProjectID       ProjectID          `json:"project_id"`
	CurrentPhase    PhaseID            `json:"current_phase"`
	Status          GoalStatus         `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// GoalStatus enumerates goal lifecycle states.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalCancelled GoalStatus = "cancelled"
)

// SuccessCriterion is one verifiable condition for goal completion.
type SuccessCriterion struct {
	ID           CriterionID        `json:"id"`
	Description  string             `json:"description"`
	Verification VerificationMethod `json:"verification"`
	Status       CriterionStatus    `json:"status"`
}

// VerificationKind selects how a criterion is verified.
type VerificationKind string

const (
	VerifyAutomated VerificationKind = "automated"
	VerifyManual    VerificationKind = "manual"
	VerifyHybrid    VerificationKind = "hybrid"
)

// VerificationMethod binds a criterion to its verification mechanism.
type VerificationMethod struct {
	Kind     VerificationKind `json:"kind"`
	CheckID  QualityCheckID   `json:"check_id,omitempty"`
	Reviewer string           `json:"reviewer,omitempty"`
}

// CriterionStatus tracks one criterion's verification state.
type CriterionStatus string

const (
	CriterionNotStarted CriterionStatus = "not_started"
	CriterionInProgress CriterionStatus = "in_progress"
	CriterionMet        CriterionStatus = "met"
	CriterionNotMet     CriterionStatus = "not_met"
)

// GoalProgress aggregates task and phase completion for a goal.
type GoalProgress struct {
	Percentage          float64    `json:"percentage"`
	CompletedPhases     []PhaseID  `json:"completed_phases"`
	ActiveTasks         int        `json:"active_tasks"`
	CompletedTasks      int        `json:"completed_tasks"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	Blockers            []Blocker  `json:"blockers"`
}
