// Package models contains the domain entities for devman: tasks and their
// lifecycle states, goals, phases, projects, work records, knowledge items,
// quality checks, workflows, and jobs.
package models

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// entropy is shared by all ID constructors. ulid.Monotonic guarantees that
// IDs minted within the same millisecond still compare strictly increasing.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// parseULID validates an ID of the form "<prefix>_<ULID>".
func parseULID(s, prefix string) (string, error) {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return "", fmt.Errorf("parsing id %q: missing %q prefix", s, prefix)
	}
	if _, err := ulid.ParseStrict(rest); err != nil {
		return "", fmt.Errorf("parsing id %q: %w", s, err)
	}
	return s, nil
}

// TaskID identifies a Task.
type TaskID string

// NewTaskID mints a time-sortable task ID.
func NewTaskID() TaskID { return TaskID("task_" + newULID()) }

// ParseTaskID validates and returns a TaskID.
func ParseTaskID(s string) (TaskID, error) {
	id, err := parseULID(s, "task")
	return TaskID(id), err
}

func (id TaskID) String() string { return string(id) }

// GoalID identifies a Goal.
type GoalID string

// NewGoalID mints a time-sortable goal ID.
func NewGoalID() GoalID { return GoalID("goal_" + newULID()) }

// ParseGoalID validates and returns a GoalID.
func ParseGoalID(s string) (GoalID, error) {
	id, err := parseULID(s, "goal")
	return GoalID(id), err
}

func (id GoalID) String() string { return string(id) }

// PhaseID identifies a Phase.
type PhaseID string

// NewPhaseID mints a time-sortable phase ID.
func NewPhaseID() PhaseID { return PhaseID("phase_" + newULID()) }

// ParsePhaseID validates and returns a PhaseID.
func ParsePhaseID(s string) (PhaseID, error) {
	id, err := parseULID(s, "phase")
	return PhaseID(id), err
}

func (id PhaseID) String() string { return string(id) }

// ProjectID identifies a Project.
type ProjectID string

// NewProjectID mints a time-sortable project ID.
func NewProjectID() ProjectID { return ProjectID("proj_" + newULID()) }

// ParseProjectID validates and returns a ProjectID.
func ParseProjectID(s string) (ProjectID, error) {
	id, err := parseULID(s, "proj")
	return ProjectID(id), err
}

func (id ProjectID) String() string { return string(id) }

// EventID identifies an Event on the timeline.
type EventID string

// NewEventID mints a time-sortable event ID.
func NewEventID() EventID { return EventID("evt_" + newULID()) }

// ParseEventID validates and returns an EventID.
func ParseEventID(s string) (EventID, error) {
	id, err := parseULID(s, "evt")
	return EventID(id), err
}

func (id EventID) String() string { return string(id) }

// KnowledgeID identifies a Knowledge item.
type KnowledgeID string

// NewKnowledgeID mints a time-sortable knowledge ID.
func NewKnowledgeID() KnowledgeID { return KnowledgeID("know_" + newULID()) }

// ParseKnowledgeID validates and returns a KnowledgeID.
func ParseKnowledgeID(s string) (KnowledgeID, error) {
	id, err := parseULID(s, "know")
	return KnowledgeID(id), err
}

func (id KnowledgeID) String() string { return string(id) }

// WorkRecordID identifies a WorkRecord.
type WorkRecordID string

// NewWorkRecordID mints a time-sortable work record ID.
func NewWorkRecordID() WorkRecordID { return WorkRecordID("work_" + newULID()) }

// ParseWorkRecordID validates and returns a WorkRecordID.
func ParseWorkRecordID(s string) (WorkRecordID, error) {
	id, err := parseULID(s, "work")
	return WorkRecordID(id), err
}

func (id WorkRecordID) String() string { return string(id) }

// QualityCheckID identifies a QualityCheck.
type QualityCheckID string

// NewQualityCheckID mints a time-sortable quality check ID.
func NewQualityCheckID() QualityCheckID { return QualityCheckID("qc_" + newULID()) }

// ParseQualityCheckID validates and returns a QualityCheckID.
func ParseQualityCheckID(s string) (QualityCheckID, error) {
	id, err := parseULID(s, "qc")
	return QualityCheckID(id), err
}

func (id QualityCheckID) String() string { return string(id) }

// JobID identifies an asynchronous job on the request surface.
type JobID string

// NewJobID mints a time-sortable job ID.
func NewJobID() JobID { return JobID("job_" + newULID()) }

// ParseJobID validates and returns a JobID.
func ParseJobID(s string) (JobID, error) {
	id, err := parseULID(s, "job")
	return JobID(id), err
}

func (id JobID) String() string { return string(id) }

// BlockerID identifies a Blocker.
type BlockerID string

// NewBlockerID mints a time-sortable blocker ID.
func NewBlockerID() BlockerID { return BlockerID("blk_" + newULID()) }

// ParseBlockerID validates and returns a BlockerID.
func ParseBlockerID(s string) (BlockerID, error) {
	id, err := parseULID(s, "blk")
	return BlockerID(id), err
}

func (id BlockerID) String() string { return string(id) }

// IssueID identifies an Issue discovered during work.
type IssueID string

// NewIssueID mints a time-sortable issue ID.
func NewIssueID() IssueID { return IssueID("issue_" + newULID()) }

// ParseIssueID validates and returns an IssueID.
func ParseIssueID(s string) (IssueID, error) {
	id, err := parseULID(s, "issue")
	return IssueID(id), err
}

func (id IssueID) String() string { return string(id) }

// CriterionID identifies a goal success criterion.
type CriterionID string

// NewCriterionID mints a time-sortable criterion ID.
func NewCriterionID() CriterionID { return CriterionID("crit_" + newULID()) }

// ParseCriterionID validates and returns a CriterionID.
func ParseCriterionID(s string) (CriterionID, error) {
	id, err := parseULID(s, "crit")
	return CriterionID(id), err
}

func (id CriterionID) String() string { return string(id) }

// ReassignmentRequestID identifies a request to hand a task to a
// different executor.
type ReassignmentRequestID string

// NewReassignmentRequestID mints a time-sortable reassignment request ID.
func NewReassignmentRequestID() ReassignmentRequestID {
	return ReassignmentRequestID("reassign_" + newULID())
}

// ParseReassignmentRequestID validates and returns a ReassignmentRequestID.
func ParseReassignmentRequestID(s string) (ReassignmentRequestID, error) {
	id, err := parseULID(s, "reassign")
	return ReassignmentRequestID(id), err
}

func (id ReassignmentRequestID) String() string { return string(id) }

// EmbeddingID identifies a cached KnowledgeEmbedding.
type EmbeddingID string

// NewEmbeddingID mints a time-sortable embedding ID.
func NewEmbeddingID() EmbeddingID { return EmbeddingID("emb_" + newULID()) }

// ParseEmbeddingID validates and returns an EmbeddingID.
func ParseEmbeddingID(s string) (EmbeddingID, error) {
	id, err := parseULID(s, "emb")
	return EmbeddingID(id), err
}

func (id EmbeddingID) String() string { return string(id) }

// QualityProfileID identifies a named quality profile.
type QualityProfileID string

// NewQualityProfileID mints a time-sortable quality profile ID.
func NewQualityProfileID() QualityProfileID { return QualityProfileID("qp_" + newULID()) }

// ParseQualityProfileID validates and returns a QualityProfileID.
func ParseQualityProfileID(s string) (QualityProfileID, error) {
	id, err := parseULID(s, "qp")
	return QualityProfileID(id), err
}

func (id QualityProfileID) String() string { return string(id) }
