package models

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestIDPrefixes(t *testing.T) {
	cases := []struct {
		id     string
		prefix string
	}{
		{NewTaskID().String(), "task_"},
		{NewGoalID().String(), "goal_"},
		{NewPhaseID().String(), "phase_"},
		{NewKnowledgeID().String(), "know_"},
		{NewJobID().String(), "job_"},
		{NewQualityCheckID().String(), "qc_"},
		{NewWorkRecordID().String(), "work_"},
	}
	for _, tc := range cases {
		if !strings.HasPrefix(tc.id, tc.prefix) {
			t.Errorf("id %q should start with %q", tc.id, tc.prefix)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := NewTaskID()
	parsed, err := ParseTaskID(id.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != id {
		t.Errorf("round trip changed the id: %s != %s", parsed, id)
	}
}

func TestParseRejectsForeignPrefix(t *testing.T) {
	goal := NewGoalID()
	if _, err := ParseTaskID(goal.String()); err == nil {
		t.Error("a goal id should not parse as a task id")
	}
	if _, err := ParseTaskID("task_not-a-ulid"); err == nil {
		t.Error("malformed ulid should be rejected")
	}
	if _, err := ParseTaskID(""); err == nil {
		t.Error("empty id should be rejected")
	}
}

func TestTaskIDsAreMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 50).Draw(rt, "n")
		prev := NewTaskID().String()
		for i := 1; i < n; i++ {
			next := NewTaskID().String()
			if next <= prev {
				rt.Fatalf("ids not strictly increasing: %s then %s", prev, next)
			}
			prev = next
		}
	})
}
