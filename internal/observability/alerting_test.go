package observability

import (
	"testing"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

func writeAt(t *testing.T, log EventLog, e Event, at time.Time) {
	t.Helper()
	e.Time = at
	if err := log.Write(e); err != nil {
		t.Fatalf("writing event: %v", err)
	}
}

func findAlert(alerts []Alert, condition string) *Alert {
	for i := range alerts {
		if alerts[i].Condition == condition {
			return &alerts[i]
		}
	}
	return nil
}

func TestAlertPausedTooLong(t *testing.T) {
	log := newTestLog(t)
	taskID := models.NewTaskID()
	now := time.Now().UTC()

	writeAt(t, log, TaskCreated(taskID, "t"), now.Add(-72*time.Hour))
	writeAt(t, log, TaskTransitioned(taskID, models.StateInProgress, models.StatePaused), now.Add(-30*time.Hour))

	engine := NewAlertEngine(log, DefaultAlertThresholds())
	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}

	alert := findAlert(alerts, "task_paused_too_long")
	if alert == nil {
		t.Fatalf("expected a paused alert, got %v", alerts)
	}
	if alert.Severity != SeverityHigh {
		t.Errorf("expected high severity, got %s", alert.Severity)
	}
	if alert.ID != "paused-"+taskID.String() {
		t.Errorf("unexpected alert id %s", alert.ID)
	}
}

func TestAlertPausedWithinThreshold(t *testing.T) {
	log := newTestLog(t)
	taskID := models.NewTaskID()
	now := time.Now().UTC()

	writeAt(t, log, TaskTransitioned(taskID, models.StateInProgress, models.StatePaused), now.Add(-2*time.Hour))

	engine := NewAlertEngine(log, DefaultAlertThresholds())
	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if findAlert(alerts, "task_paused_too_long") != nil {
		t.Errorf("expected no paused alert, got %v", alerts)
	}
}

func TestAlertStaleInProgress(t *testing.T) {
	log := newTestLog(t)
	taskID := models.NewTaskID()
	now := time.Now().UTC()

	writeAt(t, log, TaskTransitioned(taskID, models.StateKnowledgeReviewed, models.StateInProgress), now.Add(-5*24*time.Hour))

	engine := NewAlertEngine(log, DefaultAlertThresholds())
	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}

	alert := findAlert(alerts, "task_stale")
	if alert == nil {
		t.Fatalf("expected a stale alert, got %v", alerts)
	}
	if alert.Severity != SeverityMedium {
		t.Errorf("expected medium severity, got %s", alert.Severity)
	}
}

func TestAlertRecentActivityClearsStale(t *testing.T) {
	log := newTestLog(t)
	taskID := models.NewTaskID()
	now := time.Now().UTC()

	writeAt(t, log, TaskTransitioned(taskID, models.StateKnowledgeReviewed, models.StateInProgress), now.Add(-5*24*time.Hour))
	writeAt(t, log, KnowledgeUsed(models.NewKnowledgeID(), taskID), now.Add(-time.Hour))

	engine := NewAlertEngine(log, DefaultAlertThresholds())
	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if findAlert(alerts, "task_stale") != nil {
		t.Errorf("expected no stale alert after recent activity, got %v", alerts)
	}
}

func TestAlertReviewTooLong(t *testing.T) {
	log := newTestLog(t)
	taskID := models.NewTaskID()
	now := time.Now().UTC()

	writeAt(t, log, TaskTransitioned(taskID, models.StateQualityChecking, models.StateQualityCompleted), now.Add(-6*24*time.Hour))

	engine := NewAlertEngine(log, DefaultAlertThresholds())
	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}

	alert := findAlert(alerts, "review_too_long")
	if alert == nil {
		t.Fatalf("expected a review alert, got %v", alerts)
	}
	if alert.ID != "review-"+taskID.String() {
		t.Errorf("unexpected alert id %s", alert.ID)
	}
}

func TestAlertQueueTooLarge(t *testing.T) {
	log := newTestLog(t)
	now := time.Now().UTC()

	for i := 0; i < 11; i++ {
		writeAt(t, log, TaskCreated(models.NewTaskID(), "queued"), now.Add(-time.Minute))
	}

	engine := NewAlertEngine(log, DefaultAlertThresholds())
	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}

	alert := findAlert(alerts, "queue_too_large")
	if alert == nil {
		t.Fatalf("expected a queue alert, got %v", alerts)
	}
	if alert.Severity != SeverityLow {
		t.Errorf("expected low severity, got %s", alert.Severity)
	}
	if alert.ID != "queue-size" {
		t.Errorf("unexpected alert id %s", alert.ID)
	}
}

func TestAlertStartedTasksLeaveQueue(t *testing.T) {
	log := newTestLog(t)
	now := time.Now().UTC()

	for i := 0; i < 11; i++ {
		taskID := models.NewTaskID()
		writeAt(t, log, TaskCreated(taskID, "queued"), now.Add(-time.Hour))
		if i < 5 {
			writeAt(t, log, TaskTransitioned(taskID, models.StateKnowledgeReviewed, models.StateInProgress), now.Add(-time.Minute))
		}
	}

	engine := NewAlertEngine(log, DefaultAlertThresholds())
	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if findAlert(alerts, "queue_too_large") != nil {
		t.Errorf("expected no queue alert with 6 queued tasks, got %v", alerts)
	}
}

func TestAlertNoEvents(t *testing.T) {
	log := newTestLog(t)
	engine := NewAlertEngine(log, DefaultAlertThresholds())
	alerts, err := engine.Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %v", alerts)
	}
}
