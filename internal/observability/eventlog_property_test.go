package observability

import (
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestEventLogRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		path := filepath.Join(t.TempDir(), "events.jsonl")
		log, err := NewJSONLEventLog(path)
		if err != nil {
			rt.Fatalf("creating event log: %v", err)
		}
		defer log.Close()

		types := []string{EventTaskCreated, EventTaskTransition, EventQualityGate, EventKnowledgeUsed}
		levels := []string{"INFO", "WARN", "ERROR"}

		n := rapid.IntRange(0, 20).Draw(rt, "n")
		base := time.Now().UTC().Truncate(time.Millisecond)
		var written []Event
		for i := 0; i < n; i++ {
			e := Event{
				Time:    base.Add(time.Duration(i) * time.Second),
				Level:   rapid.SampledFrom(levels).Draw(rt, "level"),
				Type:    rapid.SampledFrom(types).Draw(rt, "type"),
				Message: rapid.StringMatching(`[a-z ]{1,40}`).Draw(rt, "msg"),
			}
			if err := log.Write(e); err != nil {
				rt.Fatalf("writing event: %v", err)
			}
			written = append(written, e)
		}

		got, err := log.Read(EventFilter{})
		if err != nil {
			rt.Fatalf("reading events: %v", err)
		}
		if len(got) != len(written) {
			rt.Fatalf("expected %d events, got %d", len(written), len(got))
		}
		for i := range written {
			if !got[i].Time.Equal(written[i].Time) || got[i].Type != written[i].Type ||
				got[i].Level != written[i].Level || got[i].Message != written[i].Message {
				rt.Fatalf("event %d mismatch: wrote %+v, read %+v", i, written[i], got[i])
			}
		}

		filterType := rapid.SampledFrom(types).Draw(rt, "filter_type")
		filtered, err := log.Read(EventFilter{Type: filterType})
		if err != nil {
			rt.Fatalf("reading filtered events: %v", err)
		}
		want := 0
		for _, e := range written {
			if e.Type == filterType {
				want++
			}
		}
		if len(filtered) != want {
			rt.Fatalf("expected %d events of type %s, got %d", want, filterType, len(filtered))
		}
	})
}
