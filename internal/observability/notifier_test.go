package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlackNotifierSendsBlocks(t *testing.T) {
	var captured []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		captured = body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	alerts := []Alert{
		{ID: "paused-task_1", Condition: "task_paused_too_long", Severity: SeverityHigh, Message: "task task_1 has been paused for more than 24 hours", TriggeredAt: time.Now().UTC()},
		{ID: "queue-size", Condition: "queue_too_large", Severity: SeverityLow, Message: "queue has 12 tasks", TriggeredAt: time.Now().UTC()},
	}
	if err := notifier.Notify(alerts); err != nil {
		t.Fatalf("notifying: %v", err)
	}

	var msg slackMessage
	if err := json.Unmarshal(captured, &msg); err != nil {
		t.Fatalf("unmarshaling slack message: %v", err)
	}
	if len(msg.Blocks) == 0 {
		t.Fatal("expected blocks in slack message")
	}
	if msg.Blocks[0].Type != "header" {
		t.Errorf("expected header block first, got %s", msg.Blocks[0].Type)
	}
	if msg.Blocks[0].Text.Text != "devman Alert Summary" {
		t.Errorf("unexpected header text %q", msg.Blocks[0].Text.Text)
	}

	var sections int
	for _, b := range msg.Blocks {
		if b.Type == "section" {
			sections++
		}
	}
	if sections != 2 {
		t.Errorf("expected 2 section blocks, got %d", sections)
	}
	if !strings.Contains(string(captured), "[HIGH]") {
		t.Error("expected the high severity label in the payload")
	}
}

func TestSlackNotifierSkipsEmpty(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	if err := notifier.Notify(nil); err != nil {
		t.Fatalf("notifying: %v", err)
	}
	if called {
		t.Error("expected no request for empty alerts")
	}
}

func TestSlackNotifierNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Notify([]Alert{{ID: "x", Severity: SeverityLow, Message: "m", TriggeredAt: time.Now().UTC()}})
	if err == nil {
		t.Fatal("expected an error for non-200 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestSlackChannelSendsSubjectAndBody(t *testing.T) {
	var captured []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewSlackChannel(server.URL)
	if err := channel.Send(context.Background(), "Review requested", "please look at task_1"); err != nil {
		t.Fatalf("sending: %v", err)
	}

	var msg slackMessage
	if err := json.Unmarshal(captured, &msg); err != nil {
		t.Fatalf("unmarshaling slack message: %v", err)
	}
	if len(msg.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(msg.Blocks))
	}
	if msg.Blocks[0].Text.Text != "Review requested" {
		t.Errorf("unexpected subject %q", msg.Blocks[0].Text.Text)
	}
	if msg.Blocks[1].Text.Text != "please look at task_1" {
		t.Errorf("unexpected body %q", msg.Blocks[1].Text.Text)
	}
}

func TestWebhookChannelPostsJSON(t *testing.T) {
	var captured map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("unmarshaling payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	channel := NewWebhookChannel(server.URL)
	if err := channel.Send(context.Background(), "subject line", "body text"); err != nil {
		t.Fatalf("sending: %v", err)
	}
	if captured["subject"] != "subject line" {
		t.Errorf("unexpected subject %q", captured["subject"])
	}
	if captured["body"] != "body text" {
		t.Errorf("unexpected body %q", captured["body"])
	}
}

func TestWebhookChannelErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	channel := NewWebhookChannel(server.URL)
	err := channel.Send(context.Background(), "s", "b")
	if err == nil {
		t.Fatal("expected an error for non-2xx response")
	}
}
