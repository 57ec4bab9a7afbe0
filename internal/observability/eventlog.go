package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

// Event types emitted by the engine.
const (
	EventTaskCreated    = "task.created"
	EventTaskTransition = "task.transition"
	EventQualityGate    = "quality.gate_evaluated"
	EventKnowledgeUsed  = "knowledge.used"
	EventJobFinished    = "job.finished"
)

// Event is a single observable event in the system.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// TaskCreated builds the event for a freshly created task.
func TaskCreated(taskID models.TaskID, title string) Event {
	return Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    EventTaskCreated,
		Message: fmt.Sprintf("task %s created", taskID),
		Data:    map[string]any{"task_id": taskID.String(), "title": title},
	}
}

// TaskTransitioned builds the event for an accepted state transition.
func TaskTransitioned(taskID models.TaskID, from, to models.StateKind) Event {
	return Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    EventTaskTransition,
		Message: fmt.Sprintf("task %s moved %s -> %s", taskID, from, to),
		Data: map[string]any{
			"task_id": taskID.String(),
			"from":    string(from),
			"to":      string(to),
		},
	}
}

// QualityGateEvaluated builds the event for a gate decision.
func QualityGateEvaluated(taskID models.TaskID, gate string, passed bool) Event {
	level := "INFO"
	if !passed {
		level = "WARN"
	}
	return Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    EventQualityGate,
		Message: fmt.Sprintf("gate %s on task %s: passed=%v", gate, taskID, passed),
		Data: map[string]any{
			"task_id": taskID.String(),
			"gate":    gate,
			"passed":  passed,
		},
	}
}

// KnowledgeUsed builds the event for a knowledge item applied to a task.
func KnowledgeUsed(knowledgeID models.KnowledgeID, taskID models.TaskID) Event {
	return Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    EventKnowledgeUsed,
		Message: fmt.Sprintf("knowledge %s used on task %s", knowledgeID, taskID),
		Data: map[string]any{
			"knowledge_id": knowledgeID.String(),
			"task_id":      taskID.String(),
		},
	}
}

// EventFilter narrows event reads.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	Type  string
	Level string
}

// EventLog writes and reads events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// jsonlEventLog is an append-only JSONL file.
type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog creates an EventLog backed by a JSONL file at path.
func NewJSONLEventLog(path string) (EventLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, file: f}, nil
}

func (l *jsonlEventLog) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // skip malformed lines
		}

		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Level != "" && event.Level != filter.Level {
		return false
	}
	return true
}
