package models

import (
	"encoding/json"
	"time"
)

// WorkRecord is the immutable log of one execution attempt on one task.
// Once CompletedAt is set the record must not be mutated.
type WorkRecord struct {
	ID          WorkRecordID  `json:"id"`
	TaskID      TaskID        `json:"task_id"`
	Executor    Executor      `json:"executor"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Events      []WorkEvent   `json:"events"`
	Result      WorkResult    `json:"result"`
	Artifacts   []Artifact    `json:"artifacts"`
	Issues      []Issue       `json:"issues"`
	Resolutions []Resolution  `json:"resolutions"`
}

// ExecutorKind distinguishes who ran the work.
type ExecutorKind string

const (
	ExecutorAI     ExecutorKind = "ai"
	ExecutorHuman  ExecutorKind = "human"
	ExecutorHybrid ExecutorKind = "hybrid"
)

// Executor identifies who or what executed the work.
type Executor struct {
	Kind  ExecutorKind `json:"kind"`
	Model string       `json:"model,omitempty"`
	Name  string       `json:"name,omitempty"`
}

// WorkEvent is one entry in a work record's timeline.
type WorkEvent struct {
	Timestamp   time.Time       `json:"timestamp"`
	EventType   WorkEventType   `json:"event_type"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// WorkEventType enumerates the kinds of work timeline events.
type WorkEventType string

const (
	WorkEventStepStarted         WorkEventType = "step_started"
	WorkEventStepCompleted       WorkEventType = "step_completed"
	WorkEventStepFailed          WorkEventType = "step_failed"
	WorkEventQualityCheckStarted WorkEventType = "quality_check_started"
	WorkEventQualityCheckPassed  WorkEventType = "quality_check_passed"
	WorkEventQualityCheckFailed  WorkEventType = "quality_check_failed"
	WorkEventIssueDiscovered     WorkEventType = "issue_discovered"
	WorkEventIssueResolved       WorkEventType = "issue_resolved"
	WorkEventKnowledgeCreated    WorkEventType = "knowledge_created"
)

// WorkResult is the final outcome of a work record.
type WorkResult struct {
	Status  CompletionStatus `json:"status"`
	Outputs []Output         `json:"outputs"`
	Metrics WorkMetrics      `json:"metrics"`
}

// CompletionStatus enumerates work outcomes.
type CompletionStatus string

const (
	WorkRunning   CompletionStatus = "running"
	WorkSuccess   CompletionStatus = "success"
	WorkFailed    CompletionStatus = "failed"
	WorkCancelled CompletionStatus = "cancelled"
)

// Output is one named output produced by the work.
type Output struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// WorkMetrics aggregates execution counters.
type WorkMetrics struct {
	TokensUsed          int           `json:"tokens_used,omitempty"`
	TimeSpent           time.Duration `json:"time_spent"`
	ToolsInvoked        int           `json:"tools_invoked"`
	QualityChecksRun    int           `json:"quality_checks_run"`
	QualityChecksPassed int           `json:"quality_checks_passed"`
}

// Artifact is a file or resource produced during work.
type Artifact struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

// Issue is a problem discovered during execution.
type Issue struct {
	ID           IssueID   `json:"id"`
	Description  string    `json:"description"`
	Severity     Severity  `json:"severity"`
	DiscoveredAt time.Time `json:"discovered_at"`
	Resolved     bool      `json:"resolved"`
}

// Resolution records how an issue was handled.
type Resolution struct {
	IssueID        IssueID        `json:"issue_id"`
	Description    string         `json:"description"`
	ResolutionType ResolutionType `json:"resolution_type"`
	AppliedAt      time.Time      `json:"applied_at"`
}

// ResolutionType enumerates how issues get resolved.
type ResolutionType string

const (
	ResolutionFixed      ResolutionType = "fixed"
	ResolutionWorkaround ResolutionType = "workaround"
	ResolutionDeferred   ResolutionType = "deferred"
	ResolutionIgnored    ResolutionType = "ignored"
)

// Severity is the shared severity scale for issues, findings, and blockers.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Blocker is a reason an item cannot progress.
type Blocker struct {
	ID          BlockerID   `json:"id"`
	BlockedItem BlockedItem `json:"blocked_item"`
	Reason      string      `json:"reason"`
	Severity    Severity    `json:"severity"`
	CreatedAt   time.Time   `json:"created_at"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty"`
}

// BlockedItemKind distinguishes what is blocked.
type BlockedItemKind string

const (
	BlockedTask  BlockedItemKind = "task"
	BlockedPhase BlockedItemKind = "phase"
	BlockedGoal  BlockedItemKind = "goal"
)

// BlockedItem references the blocked entity.
type BlockedItem struct {
	Kind    BlockedItemKind `json:"kind"`
	TaskID  TaskID          `json:"task_id,omitempty"`
	PhaseID PhaseID         `json:"phase_id,omitempty"`
	GoalID  GoalID          `json:"goal_id,omitempty"`
}
