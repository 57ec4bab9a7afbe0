package progress

import (
	"fmt"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

// TaskComplexity buckets tasks by how long an AI executor needs.
type TaskComplexity string

const (
	ComplexityTrivial     TaskComplexity = "trivial"
	ComplexitySimple      TaskComplexity = "simple"
	ComplexityModerate    TaskComplexity = "moderate"
	ComplexityComplex     TaskComplexity = "complex"
	ComplexityVeryComplex TaskComplexity = "very_complex"
)

// BaseMinutes is the base duration for the complexity level.
func (c TaskComplexity) BaseMinutes() int64 {
	switch c {
	case ComplexityTrivial:
		return 5
	case ComplexitySimple:
		return 15
	case ComplexityModerate:
		return 30
	case ComplexityComplex:
		return 60
	default:
		return 120
	}
}

// Confidence is the estimation confidence for the complexity level.
func (c TaskComplexity) Confidence() float64 {
	switch c {
	case ComplexityTrivial:
		return 0.95
	case ComplexitySimple:
		return 0.85
	case ComplexityModerate:
		return 0.75
	case ComplexityComplex:
		return 0.60
	default:
		return 0.45
	}
}

// TimeEstimation is a minute-precision completion estimate.
type TimeEstimation struct {
	EstimatedCompletion time.Time `json:"estimated_completion"`
	Confidence          float64   `json:"confidence"`
	DurationMinutes     int64     `json:"duration_minutes"`
	Factors             []string  `json:"factors"`
}

// Estimator derives completion estimates from task shape and progress.
type Estimator struct{}

// Base minutes per planned step; AI executors are fast per step, so the
// step floor only dominates very long plans.
const minutesPerStep = 2

// Average minutes per remaining task when aggregating over a phase.
const minutesPerTask = 30

// EstimateTask estimates one task from its complexity, step count,
// dependencies, and current progress.
func (e Estimator) EstimateTask(task *models.Task) TimeEstimation {
	if taskComplete(task.Status) {
		return TimeEstimation{
			EstimatedCompletion: task.UpdatedAt,
			Confidence:          1.0,
			Factors:             []string{"Task completed"},
		}
	}

	complexity := classifyTask(task)
	minutes := complexity.BaseMinutes()

	if stepMinutes := int64(len(task.Steps)) * minutesPerStep; stepMinutes > minutes {
		minutes = stepMinutes
	}

	// Each dependency adds 10% schedule risk.
	depFactor := float64(len(task.DependsOn)) * 0.1
	minutes = int64(float64(minutes) * (1 + depFactor))

	switch p := task.Progress.Percentage; {
	case p > 75:
		minutes = int64(float64(minutes) * 0.3)
	case p > 50:
		minutes = int64(float64(minutes) * 0.5)
	case p > 25:
		minutes = int64(float64(minutes) * 0.7)
	}

	confidence := complexity.Confidence() * clamp(1-float64(len(task.DependsOn))*0.05, 0.3, 1)

	return TimeEstimation{
		EstimatedCompletion: time.Now().Add(time.Duration(minutes) * time.Minute),
		Confidence:          confidence,
		DurationMinutes:     minutes,
		Factors: []string{
			fmt.Sprintf("Complexity: %s", complexity),
			fmt.Sprintf("Steps: %d", len(task.Steps)),
			fmt.Sprintf("Dependencies: %d", len(task.DependsOn)),
			fmt.Sprintf("Progress: %.0f%%", task.Progress.Percentage),
		},
	}
}

// EstimatePhase estimates a phase from its remaining task count.
func (e Estimator) EstimatePhase(phase *models.Phase) TimeEstimation {
	remaining := phase.Progress.TotalTasks - phase.Progress.CompletedTasks
	if remaining <= 0 {
		return TimeEstimation{
			EstimatedCompletion: time.Now(),
			Confidence:          1.0,
			Factors:             []string{"Phase completed"},
		}
	}

	minutes := int64(remaining) * minutesPerTask
	return TimeEstimation{
		EstimatedCompletion: time.Now().Add(time.Duration(minutes) * time.Minute),
		Confidence:          0.75,
		DurationMinutes:     minutes,
		Factors: []string{
			fmt.Sprintf("Remaining tasks: %d", remaining),
			fmt.Sprintf("Est. %d min/task", int64(minutesPerTask)),
		},
	}
}

// EstimateGoal estimates a goal from its active task count at moderate
// average complexity.
func (e Estimator) EstimateGoal(goal *models.Goal) TimeEstimation {
	active := goal.Progress.ActiveTasks
	if active <= 0 {
		return TimeEstimation{
			EstimatedCompletion: time.Now(),
			Confidence:          1.0,
			Factors:             []string{"Goal completed"},
		}
	}

	minutes := ComplexityModerate.BaseMinutes() * int64(active)
	return TimeEstimation{
		EstimatedCompletion: time.Now().Add(time.Duration(minutes) * time.Minute),
		Confidence:          ComplexityModerate.Confidence(),
		DurationMinutes:     minutes,
		Factors: []string{
			fmt.Sprintf("Active tasks: %d", active),
			fmt.Sprintf("Average complexity: %s", ComplexityModerate),
		},
	}
}

func classifyTask(task *models.Task) TaskComplexity {
	steps := len(task.Steps)
	deps := len(task.DependsOn)
	switch {
	case steps <= 2 && deps == 0:
		return ComplexityTrivial
	case steps <= 5 && deps <= 1:
		return ComplexitySimple
	case steps <= 10 && deps <= 2:
		return ComplexityModerate
	case steps <= 20 && deps <= 3:
		return ComplexityComplex
	default:
		return ComplexityVeryComplex
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FormatDuration renders minutes as a compact human string.
func FormatDuration(minutes int64) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dm", minutes)
	case minutes < 1440:
		h, m := minutes/60, minutes%60
		if m > 0 {
			return fmt.Sprintf("%dh %dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	default:
		d, h := minutes/1440, (minutes%1440)/60
		if h > 0 {
			return fmt.Sprintf("%dd %dh", d, h)
		}
		return fmt.Sprintf("%dd", d)
	}
}
