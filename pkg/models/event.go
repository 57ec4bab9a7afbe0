package models

import "time"

// Event is an atomic entry on the work timeline: who did what, when, and
// with what result.
type Event struct {
	ID           EventID       `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Actor        AgentID       `json:"actor"`
	Action       string        `json:"action"`
	Result       string        `json:"result"`
	RelatedTasks []TaskID      `json:"related_tasks"`
	NewKnowledge []KnowledgeID `json:"new_knowledge,omitempty"`
}

// NewEvent creates a timeline event stamped now.
func NewEvent(actor AgentID, action, result string) Event {
	return Event{
		ID:        NewEventID(),
		Timestamp: time.Now(),
		Actor:     actor,
		Action:    action,
		Result:    result,
	}
}

// AgentID names the actor behind an event: an AI model, a human, or the
// system itself.
type AgentID string

const (
	AgentSystem AgentID = "system"
	AgentAI     AgentID = "ai"
	AgentUser   AgentID = "user"
)
