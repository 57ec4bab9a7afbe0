// Package progress aggregates phase and goal completion, detects
// blockers in the task dependency graph, and estimates completion times.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/pkg/models"
)

// Snapshot is all progress at one point in time.
type Snapshot struct {
	Timestamp     time.Time                               `json:"timestamp"`
	GoalProgress  map[models.GoalID]models.GoalProgress   `json:"goal_progress"`
	PhaseProgress map[models.PhaseID]models.PhaseProgress `json:"phase_progress"`
	TaskProgress  map[models.TaskID]models.TaskProgress   `json:"task_progress"`
}

// Tracker computes completion percentages from stored entities.
type Tracker struct {
	store storage.Storage
}

// NewTracker creates a progress tracker over the given storage.
func NewTracker(store storage.Storage) *Tracker {
	return &Tracker{store: store}
}

// taskComplete reports whether a task counts toward completion.
// Abandoned tasks count: they no longer hold up the phase.
func taskComplete(status models.TaskStatus) bool {
	return status == models.StatusDone || status == models.StatusAbandoned
}

// GoalProgress computes a goal's progress across all phases of its project.
func (t *Tracker) GoalProgress(ctx context.Context, id models.GoalID) (*models.GoalProgress, error) {
	goal, err := t.store.LoadGoal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading goal %s: %w", id, err)
	}

	progress := models.GoalProgress{Blockers: []models.Blocker{}}
	project, err := t.store.LoadProject(ctx, goal.ProjectID)
	if err != nil {
		return &progress, nil
	}

	total := 0
	for _, phaseID := range project.Phases {
		phase, err := t.store.LoadPhase(ctx, phaseID)
		if err != nil {
			continue
		}
		if phase.Status == models.PhaseCompleted {
			progress.CompletedPhases = append(progress.CompletedPhases, phaseID)
		}
		for _, taskID := range phase.Tasks {
			task, err := t.store.LoadTask(ctx, taskID)
			if err != nil {
				continue
			}
			total++
			if taskComplete(task.Status) {
				progress.CompletedTasks++
			}
		}
	}

	progress.ActiveTasks = total - progress.CompletedTasks
	if total > 0 {
		progress.Percentage = float64(progress.CompletedTasks) / float64(total) * 100
	}
	return &progress, nil
}

// PhaseProgress computes a phase's progress from its tasks.
func (t *Tracker) PhaseProgress(ctx context.Context, id models.PhaseID) (*models.PhaseProgress, error) {
	phase, err := t.store.LoadPhase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading phase %s: %w", id, err)
	}

	progress := models.PhaseProgress{TotalTasks: len(phase.Tasks)}
	for _, taskID := range phase.Tasks {
		task, err := t.store.LoadTask(ctx, taskID)
		if err != nil {
			continue
		}
		if taskComplete(task.Status) {
			progress.CompletedTasks++
		}
	}
	if progress.TotalTasks > 0 {
		progress.Percentage = float64(progress.CompletedTasks) / float64(progress.TotalTasks) * 100
	}
	return &progress, nil
}

// TaskProgress returns the task's own progress record.
func (t *Tracker) TaskProgress(ctx context.Context, id models.TaskID) (*models.TaskProgress, error) {
	task, err := t.store.LoadTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	return &task.Progress, nil
}

// SnapshotAll captures progress for every stored goal, phase, and task.
func (t *Tracker) SnapshotAll(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Timestamp:     time.Now(),
		GoalProgress:  map[models.GoalID]models.GoalProgress{},
		PhaseProgress: map[models.PhaseID]models.PhaseProgress{},
		TaskProgress:  map[models.TaskID]models.TaskProgress{},
	}

	goals, err := t.store.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	for _, goal := range goals {
		if p, err := t.GoalProgress(ctx, goal.ID); err == nil {
			snap.GoalProgress[goal.ID] = *p
		}
	}

	phases, err := t.store.ListPhases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing phases: %w", err)
	}
	for _, phase := range phases {
		if p, err := t.PhaseProgress(ctx, phase.ID); err == nil {
			snap.PhaseProgress[phase.ID] = *p
		}
	}

	tasks, err := t.store.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	for _, task := range tasks {
		snap.TaskProgress[task.ID] = task.Progress
	}
	return snap, nil
}
