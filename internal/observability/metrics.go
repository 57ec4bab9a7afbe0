package observability

import (
	"fmt"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

// Metrics summarises engine activity over a window of events.
type Metrics struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	TasksCreated       int            `json:"tasks_created"`
	TasksCompleted     int            `json:"tasks_completed"`
	TasksAbandoned     int            `json:"tasks_abandoned"`
	TransitionsByState map[string]int `json:"transitions_by_state"`
	QualityGatesPassed int            `json:"quality_gates_passed"`
	QualityGatesFailed int            `json:"quality_gates_failed"`
	KnowledgeUsed      int            `json:"knowledge_used"`
	EventCount         int            `json:"event_count"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator struct {
	log EventLog
}

// NewMetricsCalculator creates a calculator reading from log.
func NewMetricsCalculator(log EventLog) *MetricsCalculator {
	return &MetricsCalculator{log: log}
}

// Calculate computes metrics for events between from and to.
func (c *MetricsCalculator) Calculate(from, to time.Time) (*Metrics, error) {
	events, err := c.log.Read(EventFilter{Since: &from, Until: &to})
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}

	m := &Metrics{
		From:               from,
		To:                 to,
		TransitionsByState: make(map[string]int),
		EventCount:         len(events),
	}

	for _, event := range events {
		switch event.Type {
		case EventTaskCreated:
			m.TasksCreated++
		case EventTaskTransition:
			to, _ := event.Data["to"].(string)
			if to == "" {
				continue
			}
			m.TransitionsByState[to]++
			switch models.StateKind(to) {
			case models.StateCompleted:
				m.TasksCompleted++
			case models.StateAbandoned:
				m.TasksAbandoned++
			}
		case EventQualityGate:
			if passed, _ := event.Data["passed"].(bool); passed {
				m.QualityGatesPassed++
			} else {
				m.QualityGatesFailed++
			}
		case EventKnowledgeUsed:
			m.KnowledgeUsed++
		}
	}

	return m, nil
}
