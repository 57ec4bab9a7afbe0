package observability

import (
	"fmt"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	PausedHours  int `yaml:"paused_threshold_hours" json:"paused_threshold_hours"`
	StaleDays    int `yaml:"stale_threshold_days" json:"stale_threshold_days"`
	ReviewDays   int `yaml:"review_threshold_days" json:"review_threshold_days"`
	MaxQueueSize int `yaml:"max_queue_size" json:"max_queue_size"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		PausedHours:  24,
		StaleDays:    3,
		ReviewDays:   5,
		MaxQueueSize: 10,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine implements AlertEngine by reading events and checking thresholds.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
	}
}

// taskState is the latest known fine state of a task, reconstructed from the log.
type taskState struct {
	state        models.StateKind
	changedAt    time.Time
	lastActivity time.Time
}

// Evaluate reads events and checks all alert conditions, returning any triggered alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	tasks, err := ae.replayTasks()
	if err != nil {
		return nil, fmt.Errorf("replaying task events: %w", err)
	}

	now := time.Now().UTC()
	var alerts []Alert
	alerts = append(alerts, ae.checkPausedTasks(tasks, now)...)
	alerts = append(alerts, ae.checkStaleTasks(tasks, now)...)
	alerts = append(alerts, ae.checkLongReviews(tasks, now)...)
	alerts = append(alerts, ae.checkQueueSize(tasks, now)...)
	return alerts, nil
}

// replayTasks folds the event log into the latest state per task.
func (ae *alertEngine) replayTasks() (map[string]*taskState, error) {
	events, err := ae.eventLog.Read(EventFilter{})
	if err != nil {
		return nil, err
	}

	tasks := make(map[string]*taskState)
	for _, event := range events {
		taskID, _ := event.Data["task_id"].(string)
		if taskID == "" {
			continue
		}

		ts := tasks[taskID]
		if ts == nil {
			ts = &taskState{}
			tasks[taskID] = ts
		}
		if event.Time.After(ts.lastActivity) {
			ts.lastActivity = event.Time
		}

		switch event.Type {
		case EventTaskCreated:
			ts.state = models.StateCreated
			ts.changedAt = event.Time
		case EventTaskTransition:
			if to, ok := event.Data["to"].(string); ok && to != "" {
				ts.state = models.StateKind(to)
				ts.changedAt = event.Time
			}
		}
	}
	return tasks, nil
}

// checkPausedTasks flags tasks that have sat paused longer than the threshold.
func (ae *alertEngine) checkPausedTasks(tasks map[string]*taskState, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.PausedHours) * time.Hour
	var alerts []Alert
	for taskID, ts := range tasks {
		if ts.state == models.StatePaused && now.Sub(ts.changedAt) > threshold {
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("paused-%s", taskID),
				Condition:   "task_paused_too_long",
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("task %s has been paused for more than %d hours", taskID, ae.thresholds.PausedHours),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

// checkStaleTasks flags in-progress tasks with no recent activity.
func (ae *alertEngine) checkStaleTasks(tasks map[string]*taskState, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.StaleDays) * 24 * time.Hour
	var alerts []Alert
	for taskID, ts := range tasks {
		active := ts.state == models.StateInProgress || ts.state == models.StateWorkRecorded
		if active && now.Sub(ts.lastActivity) > threshold {
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("stale-%s", taskID),
				Condition:   "task_stale",
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("task %s has had no activity for more than %d days", taskID, ae.thresholds.StaleDays),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

// checkLongReviews flags tasks stuck after a quality check longer than the threshold.
func (ae *alertEngine) checkLongReviews(tasks map[string]*taskState, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.ReviewDays) * 24 * time.Hour
	var alerts []Alert
	for taskID, ts := range tasks {
		if ts.state == models.StateQualityCompleted && now.Sub(ts.changedAt) > threshold {
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("review-%s", taskID),
				Condition:   "review_too_long",
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("task %s has been awaiting a quality verdict for more than %d days", taskID, ae.thresholds.ReviewDays),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

// checkQueueSize counts tasks still queued before execution and alerts when over the threshold.
func (ae *alertEngine) checkQueueSize(tasks map[string]*taskState, now time.Time) []Alert {
	queued := 0
	for _, ts := range tasks {
		switch ts.state {
		case models.StateCreated, models.StateContextRead, models.StateKnowledgeReviewed:
			queued++
		}
	}

	if queued <= ae.thresholds.MaxQueueSize {
		return nil
	}
	return []Alert{{
		ID:          "queue-size",
		Condition:   "queue_too_large",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("queue has %d tasks, exceeding the maximum of %d", queued, ae.thresholds.MaxQueueSize),
		TriggeredAt: now,
	}}
}
