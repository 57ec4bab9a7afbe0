// Package work orchestrates task lifecycles: creating tasks, driving the
// state machine, dispatching execution steps to tools, and keeping work
// records in sync with what actually ran.
package work

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devman-ai/devman/internal/core"
	"github.com/devman-ai/devman/internal/observability"
	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/internal/tools"
	"github.com/devman-ai/devman/pkg/models"
)

// StateConflictError reports a transition the guard rejected.
type StateConflictError struct {
	TaskID         models.TaskID
	From           models.StateKind
	To             models.StateKind
	RequiredAction string
	Guidance       string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("task %s: cannot move %s -> %s: %s", e.TaskID, e.From, e.To, e.Guidance)
}

// TaskSpec is the caller-facing shape for creating a task.
type TaskSpec struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Intent          models.Intent          `json:"intent,omitempty"`
	Steps           []models.ExecutionStep `json:"steps,omitempty"`
	Inputs          []models.IOSlot        `json:"inputs,omitempty"`
	ExpectedOutputs []models.IOSlot        `json:"expected_outputs,omitempty"`
	QualityGates    []models.QualityGate   `json:"quality_gates,omitempty"`
	PhaseID         models.PhaseID         `json:"phase_id,omitempty"`
	DependsOn       []models.TaskID        `json:"depends_on,omitempty"`
}

// Manager drives tasks through their lifecycle.
type Manager struct {
	store    storage.Storage
	executor tools.Executor
	caller   string
	events   observability.EventLog
}

// NewManager creates a task orchestrator. caller names who is operating
// the engine and is recorded on created tasks.
func NewManager(store storage.Storage, executor tools.Executor, caller string) *Manager {
	return &Manager{store: store, executor: executor, caller: caller}
}

// SetEventLog attaches a lifecycle event sink for metrics and alerting.
// Emission is best effort; a failing sink never fails the operation.
func (m *Manager) SetEventLog(log observability.EventLog) { m.events = log }

func (m *Manager) emit(event observability.Event) {
	if m.events == nil {
		return
	}
	_ = m.events.Write(event)
}

// CreateTask persists a new task in the created state with queued status,
// no work records and zero progress.
func (m *Manager) CreateTask(ctx context.Context, spec TaskSpec) (*models.Task, error) {
	if spec.Title == "" {
		return nil, fmt.Errorf("creating task: title is required")
	}

	state := models.NewCreatedState(m.caller)
	now := time.Now()
	task := &models.Task{
		ID:              models.NewTaskID(),
		Title:           spec.Title,
		Description:     spec.Description,
		Intent:          spec.Intent,
		Steps:           spec.Steps,
		Inputs:          spec.Inputs,
		ExpectedOutputs: spec.ExpectedOutputs,
		QualityGates:    spec.QualityGates,
		Status:          state.Status(),
		State:           state,
		Progress:        models.TaskProgress{TotalSteps: len(spec.Steps)},
		PhaseID:         spec.PhaseID,
		DependsOn:       spec.DependsOn,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := m.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task %s: %w", task.ID, err)
	}
	m.emit(observability.TaskCreated(task.ID, task.Title))
	return task, nil
}

// GetTask loads one task.
func (m *Manager) GetTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	return m.store.LoadTask(ctx, id)
}

// ListTasks lists tasks matching the filter.
func (m *Manager) ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	return m.store.ListTasks(ctx, filter)
}

// transition applies a guarded state change and persists the task.
func (m *Manager) transition(ctx context.Context, id models.TaskID, proposed models.TaskState, tctx core.TransitionContext) (*models.Task, error) {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}

	verdict := core.ValidateTransition(task.State, proposed, tctx)
	if !verdict.Allowed {
		return nil, &StateConflictError{
			TaskID:         id,
			From:           task.State.Kind,
			To:             proposed.Kind,
			RequiredAction: verdict.RequiredAction,
			Guidance:       verdict.Guidance,
		}
	}

	from := task.State.Kind
	task.State = proposed
	task.Status = proposed.Status()
	task.UpdatedAt = time.Now()
	if err := m.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("saving task %s: %w", id, err)
	}
	m.emit(observability.TaskTransitioned(id, from, proposed.Kind))
	return task, nil
}

func (m *Manager) callerContext() core.TransitionContext {
	return core.NewTransitionContext(m.caller)
}

// ReadContext marks the task context as read.
func (m *Manager) ReadContext(ctx context.Context, id models.TaskID) (*models.Task, error) {
	return m.transition(ctx, id, models.NewContextReadState(), m.callerContext())
}

// ConfirmKnowledgeReviewed records which knowledge items informed the task.
// At least one id is required.
func (m *Manager) ConfirmKnowledgeReviewed(ctx context.Context, id models.TaskID, knowledgeIDs []models.KnowledgeID) (*models.Task, error) {
	if len(knowledgeIDs) == 0 {
		return nil, fmt.Errorf("confirming knowledge review for %s: at least one knowledge id is required", id)
	}
	task, err := m.transition(ctx, id, models.NewKnowledgeReviewedState(knowledgeIDs), m.callerContext())
	if err != nil {
		return nil, err
	}
	for _, kid := range knowledgeIDs {
		m.emit(observability.KnowledgeUsed(kid, id))
	}
	return task, nil
}

// StartExecution moves the task into in-progress.
func (m *Manager) StartExecution(ctx context.Context, id models.TaskID) (*models.Task, error) {
	return m.transition(ctx, id, models.NewInProgressState(), m.callerContext())
}

// LogWork appends a work event to the task's open work record, creating
// the record if execution has not opened one yet.
func (m *Manager) LogWork(ctx context.Context, id models.TaskID, eventType models.WorkEventType, description string) error {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return fmt.Errorf("loading task %s: %w", id, err)
	}
	if task.State.Kind != models.StateInProgress {
		return &StateConflictError{
			TaskID:   id,
			From:     task.State.Kind,
			To:       task.State.Kind,
			Guidance: core.StateGuidance(task.State),
		}
	}

	record, err := m.latestRecord(ctx, task)
	if err != nil {
		record = m.openRecord(task, models.Executor{Kind: models.ExecutorAI, Name: m.caller})
		task.WorkRecords = append(task.WorkRecords, record.ID)
		if err := m.store.SaveTask(ctx, task); err != nil {
			return fmt.Errorf("saving task %s: %w", id, err)
		}
	}

	record.Events = append(record.Events, models.WorkEvent{
		Timestamp:   time.Now(),
		EventType:   eventType,
		Description: description,
	})
	if err := m.store.SaveWorkRecord(ctx, record); err != nil {
		return fmt.Errorf("saving work record %s: %w", record.ID, err)
	}
	return nil
}

// FinishWork closes out execution. The open work record must have at
// least one logged event.
func (m *Manager) FinishWork(ctx context.Context, id models.TaskID, description string) (*models.Task, error) {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	record, err := m.latestRecord(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("finishing work on %s: no work record: %w", id, err)
	}
	if len(record.Events) == 0 {
		return nil, fmt.Errorf("finishing work on %s: no work has been logged", id)
	}

	record.Events = append(record.Events, models.WorkEvent{
		Timestamp:   time.Now(),
		EventType:   models.WorkEventStepCompleted,
		Description: description,
	})
	if err := m.store.SaveWorkRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("saving work record %s: %w", record.ID, err)
	}
	return m.transition(ctx, id, models.NewWorkRecordedState(record.ID), m.callerContext())
}

// RunQualityCheck moves the task into quality-checking and returns the
// check run id the caller polls on.
func (m *Manager) RunQualityCheck(ctx context.Context, id models.TaskID) (models.QualityCheckID, error) {
	checkID := models.NewQualityCheckID()
	if _, err := m.transition(ctx, id, models.NewQualityCheckingState(checkID), m.callerContext()); err != nil {
		return "", err
	}
	return checkID, nil
}

// CompleteQualityCheck records the quality verdict on the task.
func (m *Manager) CompleteQualityCheck(ctx context.Context, id models.TaskID, result models.TaskQualityCheckResult) (*models.Task, error) {
	task, err := m.transition(ctx, id, models.NewQualityCompletedState(result), m.callerContext())
	if err != nil {
		return nil, err
	}
	passed := result.OverallStatus == models.QualityOverallPassed ||
		result.OverallStatus == models.QualityPassedWithWarnings
	m.emit(observability.QualityGateEvaluated(id, "overall", passed))
	return task, nil
}

// Complete marks the task done. Only a passing quality verdict gets here.
func (m *Manager) Complete(ctx context.Context, id models.TaskID) (*models.Task, error) {
	return m.transition(ctx, id, models.NewCompletedState(m.caller), m.callerContext())
}

// Pause suspends the task, wrapping its current state for later resumption.
func (m *Manager) Pause(ctx context.Context, id models.TaskID, reason string) (*models.Task, error) {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	return m.transition(ctx, id, models.NewPausedState(reason, task.State), m.callerContext())
}

// Resume restores the state the pause wrapped.
func (m *Manager) Resume(ctx context.Context, id models.TaskID) (*models.Task, error) {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	if task.State.Kind != models.StatePaused || task.State.PreviousState == nil {
		return nil, &StateConflictError{
			TaskID:   id,
			From:     task.State.Kind,
			To:       models.StateInProgress,
			Guidance: core.StateGuidance(task.State),
		}
	}
	return m.transition(ctx, id, task.State.PreviousState.Clone(), m.callerContext())
}

// Abandon gives up on the task. The transition context must carry the
// abandon permission and the reason must be filled in.
func (m *Manager) Abandon(ctx context.Context, id models.TaskID, reason models.AbandonReason, tctx core.TransitionContext) (*models.Task, error) {
	if reason.Reason == "" {
		return nil, fmt.Errorf("abandoning task %s: a reason is required", id)
	}
	return m.transition(ctx, id, models.NewAbandonedState(reason), tctx)
}

// ExecuteTask runs the task's planned steps through the tool executor.
// The task goes active with a fresh running work record; a step exiting
// non-zero stops sequencing. Step stdout is kept as a named output.
func (m *Manager) ExecuteTask(ctx context.Context, id models.TaskID, executor models.Executor) (*models.WorkRecord, error) {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}

	record := m.openRecord(task, executor)
	task.Status = models.StatusActive
	task.WorkRecords = append(task.WorkRecords, record.ID)
	task.UpdatedAt = time.Now()
	if err := m.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("saving task %s: %w", id, err)
	}
	if err := m.store.SaveWorkRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("saving work record %s: %w", record.ID, err)
	}

	status := models.WorkSuccess
	for _, step := range task.Steps {
		record.Events = append(record.Events, models.WorkEvent{
			Timestamp:   time.Now(),
			EventType:   models.WorkEventStepStarted,
			Description: step.Description,
		})

		output, err := m.executor.Execute(ctx, step.Tool.Name, tools.Input{
			Args:    step.Tool.Args,
			Env:     step.Tool.Env,
			Timeout: step.Tool.Timeout,
		})
		if err != nil {
			record.Events = append(record.Events, failureEvent(step, err.Error()))
			status = models.WorkFailed
			break
		}

		record.Result.Outputs = append(record.Result.Outputs, models.Output{
			Name:  "stdout",
			Value: output.Stdout,
		})
		record.Result.Metrics.ToolsInvoked++

		if output.ExitCode != 0 {
			record.Events = append(record.Events, failureEvent(step, fmt.Sprintf("exit code %d", output.ExitCode)))
			status = models.WorkFailed
			break
		}
		record.Events = append(record.Events, models.WorkEvent{
			Timestamp:   time.Now(),
			EventType:   models.WorkEventStepCompleted,
			Description: step.Description,
		})
	}

	record.Result.Status = status
	if len(task.Steps) > 0 {
		if err := m.store.SaveWorkRecord(ctx, record); err != nil {
			return nil, fmt.Errorf("saving work record %s: %w", record.ID, err)
		}
	}
	return record, nil
}

func failureEvent(step models.ExecutionStep, detail string) models.WorkEvent {
	data, _ := json.Marshal(map[string]string{"error": detail})
	return models.WorkEvent{
		Timestamp:   time.Now(),
		EventType:   models.WorkEventStepFailed,
		Description: step.Description,
		Data:        data,
	}
}

// RecordEvent appends one event to the task's latest work record.
func (m *Manager) RecordEvent(ctx context.Context, id models.TaskID, event models.WorkEvent) error {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return fmt.Errorf("loading task %s: %w", id, err)
	}
	record, err := m.latestRecord(ctx, task)
	if err != nil {
		return fmt.Errorf("recording event on %s: %w", id, err)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	record.Events = append(record.Events, event)
	if err := m.store.SaveWorkRecord(ctx, record); err != nil {
		return fmt.Errorf("saving work record %s: %w", record.ID, err)
	}
	return nil
}

// UpdateProgress overwrites the task's progress.
func (m *Manager) UpdateProgress(ctx context.Context, id models.TaskID, progress models.TaskProgress) error {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return fmt.Errorf("loading task %s: %w", id, err)
	}
	task.Progress = progress
	task.UpdatedAt = time.Now()
	if err := m.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("saving task %s: %w", id, err)
	}
	return nil
}

// CompleteTask closes the latest work record with the given result and
// projects the task status from it. Success goes to done; anything else
// lands in review for a human decision.
func (m *Manager) CompleteTask(ctx context.Context, id models.TaskID, result models.WorkResult) (*models.Task, error) {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}

	if record, err := m.latestRecord(ctx, task); err == nil && record.CompletedAt == nil {
		now := time.Now()
		record.CompletedAt = &now
		record.Duration = now.Sub(record.StartedAt)
		record.Result = result
		if err := m.store.SaveWorkRecord(ctx, record); err != nil {
			return nil, fmt.Errorf("saving work record %s: %w", record.ID, err)
		}
	}

	if result.Status == models.WorkSuccess {
		task.Status = models.StatusDone
	} else {
		task.Status = models.StatusReview
	}
	task.UpdatedAt = time.Now()
	if err := m.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("saving task %s: %w", id, err)
	}
	return task, nil
}

// Guidance returns the advisory bundle for the task's current state.
func (m *Manager) Guidance(ctx context.Context, id models.TaskID) (*core.Guidance, error) {
	task, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}

	gctx := core.GuidanceContext{TaskDescription: task.Description}
	if record, err := m.latestRecord(ctx, task); err == nil {
		gctx.WorkLogs = make([]string, 0, len(record.Events))
		for _, ev := range record.Events {
			gctx.WorkLogs = append(gctx.WorkLogs, ev.Description)
		}
	}
	g := core.GenerateGuidance(task.ID, task.State, gctx)
	return &g, nil
}

func (m *Manager) openRecord(task *models.Task, executor models.Executor) *models.WorkRecord {
	return &models.WorkRecord{
		ID:        models.NewWorkRecordID(),
		TaskID:    task.ID,
		Executor:  executor,
		StartedAt: time.Now(),
		Result:    models.WorkResult{Status: models.WorkRunning},
	}
}

// latestRecord returns the most recently linked work record of a task.
func (m *Manager) latestRecord(ctx context.Context, task *models.Task) (*models.WorkRecord, error) {
	if len(task.WorkRecords) == 0 {
		return nil, storage.ErrNotFound
	}
	id := task.WorkRecords[len(task.WorkRecords)-1]
	return m.store.LoadWorkRecord(ctx, id)
}
