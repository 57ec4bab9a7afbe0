package models

import (
	"encoding/json"
	"time"
)

// JobStatus enumerates job lifecycle states on the request surface.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
	JobTimeout   JobStatus = "timeout"
)

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled, JobTimeout:
		return true
	}
	return false
}

// Job is one asynchronous operation tracked by the job registry.
type Job struct {
	ID              JobID           `json:"id"`
	Type            JobType         `json:"job_type"`
	Status          JobStatus       `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	TimeoutSeconds  int             `json:"timeout_seconds"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           *JobError       `json:"error,omitempty"`
	Progress        int             `json:"progress"` // 0-100
	ProgressMessage string          `json:"progress_message"`
}

// JobType names what the job does, with its key parameters.
type JobType struct {
	Kind   string          `json:"kind"`
	Title  string          `json:"title,omitempty"`
	GoalID GoalID          `json:"goal_id,omitempty"`
	Tool   string          `json:"tool,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Business error codes in the reserved JSON-RPC range.
const (
	CodeBusinessError    = -32000
	CodeStateConflict    = -32001
	CodeResourceNotFound = -32002
	CodeJobTimeout       = -32003
	CodeJobCancelled     = -32004
)

// JobError is the structured failure attached to a job, with a hint the
// calling agent can act on.
type JobError struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Hint      string          `json:"hint,omitempty"`
	Retryable bool            `json:"retryable"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (e *JobError) Error() string { return e.Message }
