package observability

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

func TestMetricsCountsByEventType(t *testing.T) {
	log := newTestLog(t)

	a, b := models.NewTaskID(), models.NewTaskID()
	events := []Event{
		TaskCreated(a, "first"),
		TaskCreated(b, "second"),
		TaskTransitioned(a, models.StateCreated, models.StateContextRead),
		TaskTransitioned(a, models.StateContextRead, models.StateKnowledgeReviewed),
		TaskTransitioned(a, models.StateQualityCompleted, models.StateCompleted),
		TaskTransitioned(b, models.StateInProgress, models.StateAbandoned),
		QualityGateEvaluated(a, "lint", true),
		QualityGateEvaluated(a, "tests", true),
		QualityGateEvaluated(b, "lint", false),
		KnowledgeUsed(models.NewKnowledgeID(), a),
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	calc := NewMetricsCalculator(log)
	now := time.Now().UTC()
	m, err := calc.Calculate(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}

	if m.TasksCreated != 2 {
		t.Errorf("expected 2 tasks created, got %d", m.TasksCreated)
	}
	if m.TasksCompleted != 1 {
		t.Errorf("expected 1 task completed, got %d", m.TasksCompleted)
	}
	if m.TasksAbandoned != 1 {
		t.Errorf("expected 1 task abandoned, got %d", m.TasksAbandoned)
	}
	if m.QualityGatesPassed != 2 {
		t.Errorf("expected 2 gates passed, got %d", m.QualityGatesPassed)
	}
	if m.QualityGatesFailed != 1 {
		t.Errorf("expected 1 gate failed, got %d", m.QualityGatesFailed)
	}
	if m.KnowledgeUsed != 1 {
		t.Errorf("expected 1 knowledge use, got %d", m.KnowledgeUsed)
	}
	if m.EventCount != len(events) {
		t.Errorf("expected %d events, got %d", len(events), m.EventCount)
	}
	if got := m.TransitionsByState[string(models.StateContextRead)]; got != 1 {
		t.Errorf("expected 1 transition into context_read, got %d", got)
	}
}

func TestMetricsRespectsWindow(t *testing.T) {
	log := newTestLog(t)

	base := time.Now().UTC().Truncate(time.Millisecond)
	old := TaskCreated(models.NewTaskID(), "old")
	old.Time = base.Add(-48 * time.Hour)
	recent := TaskCreated(models.NewTaskID(), "recent")
	recent.Time = base

	for _, e := range []Event{old, recent} {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	calc := NewMetricsCalculator(log)
	m, err := calc.Calculate(base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}
	if m.TasksCreated != 1 {
		t.Errorf("expected 1 task created in window, got %d", m.TasksCreated)
	}
	if m.EventCount != 1 {
		t.Errorf("expected 1 event in window, got %d", m.EventCount)
	}
}

func TestMetricsEmptyLog(t *testing.T) {
	log := &jsonlEventLog{path: filepath.Join(t.TempDir(), "absent.jsonl")}
	calc := NewMetricsCalculator(log)

	now := time.Now().UTC()
	m, err := calc.Calculate(now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}
	if m.EventCount != 0 {
		t.Errorf("expected 0 events, got %d", m.EventCount)
	}
	if len(m.TransitionsByState) != 0 {
		t.Errorf("expected empty transition map, got %v", m.TransitionsByState)
	}
}
