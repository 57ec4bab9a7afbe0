package observability

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

func newTestLog(t *testing.T) EventLog {
	t.Helper()
	log, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestEventLogWriteAndRead(t *testing.T) {
	log := newTestLog(t)

	taskID := models.NewTaskID()
	events := []Event{
		TaskCreated(taskID, "wire the parser"),
		TaskTransitioned(taskID, models.StateCreated, models.StateContextRead),
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
	if result[0].Type != EventTaskCreated {
		t.Errorf("expected type %s, got %s", EventTaskCreated, result[0].Type)
	}
	if got, _ := result[0].Data["task_id"].(string); got != taskID.String() {
		t.Errorf("expected task_id %s, got %s", taskID, got)
	}
	if result[1].Type != EventTaskTransition {
		t.Errorf("expected type %s, got %s", EventTaskTransition, result[1].Type)
	}
	if got, _ := result[1].Data["to"].(string); got != string(models.StateContextRead) {
		t.Errorf("expected to=%s, got %s", models.StateContextRead, got)
	}
}

func TestEventLogFilterByType(t *testing.T) {
	log := newTestLog(t)

	taskID := models.NewTaskID()
	if err := log.Write(TaskCreated(taskID, "t")); err != nil {
		t.Fatalf("writing event: %v", err)
	}
	if err := log.Write(QualityGateEvaluated(taskID, "lint", false)); err != nil {
		t.Fatalf("writing event: %v", err)
	}
	if err := log.Write(KnowledgeUsed(models.NewKnowledgeID(), taskID)); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	result, err := log.Read(EventFilter{Type: EventQualityGate})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result))
	}
	if result[0].Level != "WARN" {
		t.Errorf("failed gate should log at WARN, got %s", result[0].Level)
	}
}

func TestEventLogFilterByTime(t *testing.T) {
	log := newTestLog(t)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		e := Event{Time: base.Add(time.Duration(i) * time.Minute), Level: "INFO", Type: EventTaskCreated, Message: "t"}
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	since := base.Add(30 * time.Second)
	until := base.Add(90 * time.Second)
	result, err := log.Read(EventFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 event in window, got %d", len(result))
	}
	if !result[0].Time.Equal(base.Add(time.Minute)) {
		t.Errorf("expected the middle event, got %v", result[0].Time)
	}
}

func TestEventLogReadMissingFile(t *testing.T) {
	log := &jsonlEventLog{path: filepath.Join(t.TempDir(), "absent.jsonl")}
	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil events for missing file, got %v", result)
	}
}

func TestEventLogSkipsMalformedLines(t *testing.T) {
	log := newTestLog(t)

	if err := log.Write(TaskCreated(models.NewTaskID(), "ok")); err != nil {
		t.Fatalf("writing event: %v", err)
	}
	jl := log.(*jsonlEventLog)
	if _, err := jl.file.WriteString("not json\n"); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}
	if err := log.Write(TaskCreated(models.NewTaskID(), "also ok")); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 parseable events, got %d", len(result))
	}
}

func TestEventLogConcurrentWrites(t *testing.T) {
	log := newTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := log.Write(TaskCreated(models.NewTaskID(), "t")); err != nil {
					t.Errorf("writing event: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 200 {
		t.Fatalf("expected 200 events, got %d", len(result))
	}
}
