package models

import "time"

// StateKind is the discriminant of a TaskState variant.
type StateKind string

const (
	StateCreated           StateKind = "created"
	StateContextRead       StateKind = "context_read"
	StateKnowledgeReviewed StateKind = "knowledge_reviewed"
	StateInProgress        StateKind = "in_progress"
	StateWorkRecorded      StateKind = "work_recorded"
	StateQualityChecking   StateKind = "quality_checking"
	StateQualityCompleted  StateKind = "quality_completed"
	StatePaused            StateKind = "paused"
	StateAbandoned         StateKind = "abandoned"
	StateCompleted         StateKind = "completed"
)

// TaskState is the fine lifecycle state of a task. Exactly one variant is
// active, named by Kind; the payload fields for the other variants are
// zero. Paused wraps an owned copy of the pre-pause state in PreviousState.
type TaskState struct {
	Kind StateKind `json:"kind"`

	// Created
	CreatedAt time.Time `json:"created_at,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`

	// ContextRead
	ReadAt time.Time `json:"read_at,omitempty"`

	// KnowledgeReviewed
	ReviewedAt   time.Time     `json:"reviewed_at,omitempty"`
	KnowledgeIDs []KnowledgeID `json:"knowledge_ids,omitempty"`

	// InProgress
	StartedAt  time.Time `json:"started_at,omitempty"`
	Checkpoint string    `json:"checkpoint,omitempty"`

	// WorkRecorded
	RecordedAt   time.Time    `json:"recorded_at,omitempty"`
	WorkRecordID WorkRecordID `json:"work_record_id,omitempty"`

	// QualityChecking
	CheckStartedAt time.Time      `json:"check_started_at,omitempty"`
	CheckID        QualityCheckID `json:"check_id,omitempty"`

	// QualityCompleted
	CompletedAt time.Time               `json:"completed_at,omitempty"`
	Result      *TaskQualityCheckResult `json:"result,omitempty"`

	// Paused
	PausedAt      time.Time  `json:"paused_at,omitempty"`
	PauseReason   string     `json:"pause_reason,omitempty"`
	PreviousState *TaskState `json:"previous_state,omitempty"`

	// Abandoned
	AbandonedAt   time.Time      `json:"abandoned_at,omitempty"`
	AbandonReason *AbandonReason `json:"abandon_reason,omitempty"`

	// Completed
	CompletedBy string `json:"completed_by,omitempty"`
}

// NewCreatedState returns the initial state of a freshly created task.
func NewCreatedState(createdBy string) TaskState {
	return TaskState{Kind: StateCreated, CreatedAt: time.Now(), CreatedBy: createdBy}
}

// NewContextReadState marks the task context as read now.
func NewContextReadState() TaskState {
	return TaskState{Kind: StateContextRead, ReadAt: time.Now()}
}

// NewKnowledgeReviewedState records the knowledge items reviewed.
func NewKnowledgeReviewedState(ids []KnowledgeID) TaskState {
	return TaskState{Kind: StateKnowledgeReviewed, ReviewedAt: time.Now(), KnowledgeIDs: ids}
}

// NewInProgressState marks execution start.
func NewInProgressState() TaskState {
	return TaskState{Kind: StateInProgress, StartedAt: time.Now()}
}

// NewWorkRecordedState links the work record that closed the execution.
func NewWorkRecordedState(id WorkRecordID) TaskState {
	return TaskState{Kind: StateWorkRecorded, RecordedAt: time.Now(), WorkRecordID: id}
}

// NewQualityCheckingState marks the start of a quality run.
func NewQualityCheckingState(checkID QualityCheckID) TaskState {
	return TaskState{Kind: StateQualityChecking, CheckStartedAt: time.Now(), CheckID: checkID}
}

// NewQualityCompletedState carries the quality verdict.
func NewQualityCompletedState(result TaskQualityCheckResult) TaskState {
	return TaskState{Kind: StateQualityCompleted, CompletedAt: time.Now(), Result: &result}
}

// NewPausedState wraps the current state for later resumption.
func NewPausedState(reason string, previous TaskState) TaskState {
	prev := previous.Clone()
	return TaskState{Kind: StatePaused, PausedAt: time.Now(), PauseReason: reason, PreviousState: &prev}
}

// NewAbandonedState records why the task was given up.
func NewAbandonedState(reason AbandonReason) TaskState {
	return TaskState{Kind: StateAbandoned, AbandonedAt: time.Now(), AbandonReason: &reason}
}

// NewCompletedState marks terminal success.
func NewCompletedState(completedBy string) TaskState {
	return TaskState{Kind: StateCompleted, CompletedAt: time.Now(), CompletedBy: completedBy}
}

// Clone returns a deep copy. PreviousState is owned, never shared.
func (s TaskState) Clone() TaskState {
	out := s
	if s.PreviousState != nil {
		prev := s.PreviousState.Clone()
		out.PreviousState = &prev
	}
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	if s.AbandonReason != nil {
		a := *s.AbandonReason
		out.AbandonReason = &a
	}
	out.KnowledgeIDs = append([]KnowledgeID(nil), s.KnowledgeIDs...)
	return out
}

// IsTerminal reports whether no further forward transition exists.
func (s TaskState) IsTerminal() bool {
	return s.Kind == StateCompleted || s.Kind == StateAbandoned
}

// IsPausable reports whether the state may transition to Paused.
func (s TaskState) IsPausable() bool {
	switch s.Kind {
	case StateCreated, StateContextRead, StateKnowledgeReviewed, StateInProgress,
		StateWorkRecorded, StateQualityChecking, StateQualityCompleted:
		return true
	}
	return false
}

// Status projects the fine state onto the coarse TaskStatus.
func (s TaskState) Status() TaskStatus {
	switch s.Kind {
	case StateCreated:
		return StatusQueued
	case StateContextRead, StateKnowledgeReviewed:
		return StatusQueued
	case StateInProgress, StateWorkRecorded, StateQualityChecking:
		return StatusActive
	case StateQualityCompleted:
		if s.Result != nil && s.Result.OverallStatus == QualityOverallPassed {
			return StatusActive
		}
		return StatusReview
	case StatePaused:
		return StatusBlocked
	case StateAbandoned:
		return StatusAbandoned
	case StateCompleted:
		return StatusDone
	}
	return StatusIdea
}

// TaskQualityCheckResult is the quality verdict the state machine keeps
// inside QualityCompleted.
type TaskQualityCheckResult struct {
	OverallStatus QualityOverallStatus `json:"overall_status"`
	FindingsCount int                  `json:"findings_count"`
	WarningsCount int                  `json:"warnings_count"`
}

// AbandonKind categorizes why a task was abandoned.
type AbandonKind string

const (
	AbandonTechnicalBlocker   AbandonKind = "technical_blocker"
	AbandonRequirementChanged AbandonKind = "requirement_changed"
	AbandonDuplicate          AbandonKind = "duplicate"
	AbandonNoLongerNeeded     AbandonKind = "no_longer_needed"
	AbandonOther              AbandonKind = "other"
)

// AbandonReason explains an abandonment; Reason is required, Details optional.
type AbandonReason struct {
	Kind    AbandonKind `json:"kind"`
	Reason  string      `json:"reason"`
	Details string      `json:"details,omitempty"`
}
