package progress

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/pkg/models"
)

// ResolutionAction enumerates ways a blocker can be resolved.
type ResolutionAction string

const (
	ResolveCompleteTask       ResolutionAction = "complete_task"
	ResolveAbandonTask        ResolutionAction = "abandon_task"
	ResolveSkipTask           ResolutionAction = "skip_task"
	ResolveModifyDependencies ResolutionAction = "modify_dependencies"
	ResolveManualReview       ResolutionAction = "manual_review"
	ResolveWait               ResolutionAction = "wait"
)

// ResolutionSuggestion is one suggested way out of a blocker. Lower
// priority sorts first.
type ResolutionSuggestion struct {
	Action      ResolutionAction `json:"action"`
	Description string           `json:"description"`
	Priority    int              `json:"priority"`
}

// BlockerStats summarizes detected blockers.
type BlockerStats struct {
	TotalBlockers        int                         `json:"total_blockers"`
	BySeverity           map[models.Severity]int     `json:"by_severity"`
	ByItemKind           map[models.BlockedItemKind]int `json:"by_item_kind"`
	AverageAgeHours      float64                     `json:"average_age_hours,omitempty"`
	CircularDependencies int                         `json:"circular_dependencies"`
}

// BlockerAnalysis is the full result of one detection pass.
type BlockerAnalysis struct {
	Blockers       []models.Blocker       `json:"blockers"`
	Suggestions    []ResolutionSuggestion `json:"suggestions"`
	Stats          BlockerStats           `json:"stats"`
	CircularChains [][]models.TaskID      `json:"circular_chains,omitempty"`
}

const circularDependencyReason = "Circular dependency detected: task is part of a dependency cycle"

// BlockerDetector finds blockers in the stored task graph.
type BlockerDetector struct {
	store storage.Storage
}

// NewBlockerDetector creates a detector over the given storage.
func NewBlockerDetector(store storage.Storage) *BlockerDetector {
	return &BlockerDetector{store: store}
}

// DetectAndAnalyze runs the full pass: dependency blockers, circular
// dependency chains, resolution suggestions, and statistics.
func (d *BlockerDetector) DetectAndAnalyze(ctx context.Context) (*BlockerAnalysis, error) {
	tasks, err := d.store.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	taskMap := make(map[models.TaskID]*models.Task, len(tasks))
	ids := make([]models.TaskID, 0, len(tasks))
	for _, task := range tasks {
		taskMap[task.ID] = task
		ids = append(ids, task.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	blockers := detectDependencyBlockers(ids, taskMap)
	chains, circular := detectCircularDependencies(ids, taskMap)
	blockers = append(blockers, circular...)

	return &BlockerAnalysis{
		Blockers:       blockers,
		Suggestions:    generateSuggestions(ids, taskMap),
		Stats:          calculateStats(blockers, time.Now()),
		CircularChains: chains,
	}, nil
}

// DetectPhaseBlockers returns blockers for the blocked tasks of one phase.
func (d *BlockerDetector) DetectPhaseBlockers(ctx context.Context, phaseID models.PhaseID) ([]models.Blocker, error) {
	phase, err := d.store.LoadPhase(ctx, phaseID)
	if err != nil {
		return nil, fmt.Errorf("loading phase %s: %w", phaseID, err)
	}

	var blockers []models.Blocker
	for _, taskID := range phase.Tasks {
		task, err := d.store.LoadTask(ctx, taskID)
		if err != nil {
			continue
		}
		if task.Status == models.StatusBlocked {
			blockers = append(blockers, newTaskBlocker(task, "Task is blocked"))
		}
	}
	return blockers, nil
}

// DetectGoalBlockers aggregates phase blockers across a goal's project.
func (d *BlockerDetector) DetectGoalBlockers(ctx context.Context, goalID models.GoalID) ([]models.Blocker, error) {
	goal, err := d.store.LoadGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("loading goal %s: %w", goalID, err)
	}
	project, err := d.store.LoadProject(ctx, goal.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", goal.ProjectID, err)
	}

	var blockers []models.Blocker
	for _, phaseID := range project.Phases {
		phaseBlockers, err := d.DetectPhaseBlockers(ctx, phaseID)
		if err != nil {
			continue
		}
		blockers = append(blockers, phaseBlockers...)
	}
	return blockers, nil
}

func newTaskBlocker(task *models.Task, reason string) models.Blocker {
	return models.Blocker{
		ID:          models.NewBlockerID(),
		BlockedItem: models.BlockedItem{Kind: models.BlockedTask, TaskID: task.ID},
		Reason:      reason,
		Severity:    models.SeverityError,
		CreatedAt:   task.UpdatedAt,
	}
}

func detectDependencyBlockers(ids []models.TaskID, taskMap map[models.TaskID]*models.Task) []models.Blocker {
	var blockers []models.Blocker
	for _, id := range ids {
		task := taskMap[id]
		if task.Status != models.StatusBlocked {
			continue
		}
		for _, depID := range task.DependsOn {
			dep, ok := taskMap[depID]
			if !ok {
				blockers = append(blockers, newTaskBlocker(task,
					fmt.Sprintf("Blocked by missing or deleted dependency: %s", depID)))
				continue
			}
			if !taskComplete(dep.Status) {
				blockers = append(blockers, newTaskBlocker(task,
					fmt.Sprintf("Blocked by task '%s' (status: %s)", dep.Title, dep.Status)))
			}
		}
	}
	return blockers
}

// detectCircularDependencies finds dependency cycles with a DFS and
// returns both the chains and one blocker per cycle member.
func detectCircularDependencies(ids []models.TaskID, taskMap map[models.TaskID]*models.Task) ([][]models.TaskID, []models.Blocker) {
	var (
		chains   [][]models.TaskID
		blockers []models.Blocker
	)
	visited := map[models.TaskID]bool{}
	onStack := map[models.TaskID]bool{}

	var walk func(id models.TaskID, path []models.TaskID) []models.TaskID
	walk = func(id models.TaskID, path []models.TaskID) []models.TaskID {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		if task, ok := taskMap[id]; ok {
			for _, depID := range task.DependsOn {
				if !visited[depID] {
					if cycle := walk(depID, path); cycle != nil {
						return cycle
					}
				} else if onStack[depID] {
					for i, p := range path {
						if p == depID {
							return append([]models.TaskID(nil), path[i:]...)
						}
					}
				}
			}
		}
		onStack[id] = false
		return nil
	}

	for _, id := range ids {
		if visited[id] {
			continue
		}
		cycle := walk(id, nil)
		// Clear the stack markers left behind by an aborted walk.
		for k := range onStack {
			delete(onStack, k)
		}
		if cycle == nil {
			continue
		}
		chains = append(chains, cycle)
		for _, member := range cycle {
			if task, ok := taskMap[member]; ok {
				blockers = append(blockers, newTaskBlocker(task, circularDependencyReason))
			}
		}
	}
	return chains, blockers
}

func generateSuggestions(ids []models.TaskID, taskMap map[models.TaskID]*models.Task) []ResolutionSuggestion {
	var suggestions []ResolutionSuggestion
	for _, id := range ids {
		task := taskMap[id]
		if task.Status != models.StatusBlocked {
			continue
		}

		var blocking []*models.Task
		for _, depID := range task.DependsOn {
			if dep, ok := taskMap[depID]; ok && !taskComplete(dep.Status) {
				blocking = append(blocking, dep)
			}
		}

		switch {
		case len(blocking) > 0:
			for _, dep := range blocking {
				if dep.Progress.Percentage > 50 {
					suggestions = append(suggestions, ResolutionSuggestion{
						Action:      ResolveCompleteTask,
						Description: fmt.Sprintf("Complete blocking task '%s' to unblock '%s'", dep.Title, task.Title),
						Priority:    1,
					})
				} else {
					suggestions = append(suggestions, ResolutionSuggestion{
						Action:      ResolveAbandonTask,
						Description: fmt.Sprintf("Consider abandoning blocking task '%s' or unblocking '%s'", dep.Title, task.Title),
						Priority:    2,
					})
				}
			}
		case len(task.DependsOn) == 0:
			suggestions = append(suggestions, ResolutionSuggestion{
				Action:      ResolveManualReview,
				Description: fmt.Sprintf("Task '%s' is blocked but has no dependencies - manual review required", task.Title),
				Priority:    1,
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority < suggestions[j].Priority
	})
	return suggestions
}

func calculateStats(blockers []models.Blocker, now time.Time) BlockerStats {
	stats := BlockerStats{
		TotalBlockers: len(blockers),
		BySeverity:    map[models.Severity]int{},
		ByItemKind:    map[models.BlockedItemKind]int{},
	}

	var totalAge float64
	for _, b := range blockers {
		stats.BySeverity[b.Severity]++
		stats.ByItemKind[b.BlockedItem.Kind]++
		totalAge += now.Sub(b.CreatedAt).Hours()
		if strings.Contains(b.Reason, "Circular dependency") {
			stats.CircularDependencies++
		}
	}
	if len(blockers) > 0 {
		stats.AverageAgeHours = totalAge / float64(len(blockers))
	}
	return stats
}
