package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devman-ai/devman/internal/core"
	"github.com/devman-ai/devman/internal/jobs"
	"github.com/devman-ai/devman/internal/knowledge"
	"github.com/devman-ai/devman/internal/observability"
	"github.com/devman-ai/devman/internal/progress"
	"github.com/devman-ai/devman/internal/quality"
	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/internal/tools"
	"github.com/devman-ai/devman/internal/work"
	"github.com/devman-ai/devman/pkg/models"
)

// setupCLI wires the command singletons over a throwaway storage root.
func setupCLI(t *testing.T) storage.Storage {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log, err := observability.NewJSONLEventLog(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	executor := tools.NewRegistry()
	cfg := core.DefaultConfig()
	cfg.Storage.Root = dir
	cfg.Caller = "tester"

	Cfg = &cfg
	Store = store
	Work = work.NewManager(store, executor, cfg.Caller)
	Work.SetEventLog(log)
	Knowledge = knowledge.NewService(store)
	Searcher = nil
	Quality = quality.NewEngine(executor)
	Jobs = jobs.NewManager()
	Tracker = progress.NewTracker(store)
	Blockers = progress.NewBlockerDetector(store)
	Executor = executor
	EventLog = log
	MetricsCalc = observability.NewMetricsCalculator(log)
	AlertEngine = observability.NewAlertEngine(log, observability.DefaultAlertThresholds())
	Connect = func(string) error { return nil }
	return store
}

// runCLI executes the root command with args and captures its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// createTestTask creates a task through the command and returns its ID.
func createTestTask(t *testing.T, title string) string {
	t.Helper()
	out, err := runCLI(t, "task", "create", title)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		t.Fatalf("unexpected create output: %q", out)
	}
	return strings.TrimSuffix(fields[1], ":")
}

func TestVersionCommand(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "devman") {
		t.Errorf("version output %q does not mention devman", out)
	}
}

func TestTaskCreateAndList(t *testing.T) {
	setupCLI(t)
	id := createTestTask(t, "wire the parser")

	out, err := runCLI(t, "task", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "wire the parser") {
		t.Errorf("list output %q missing created task", out)
	}
	if !strings.Contains(out, "queued") {
		t.Errorf("new task should list as queued, got %q", out)
	}
}

func TestTaskGuidanceForNewTask(t *testing.T) {
	setupCLI(t)
	id := createTestTask(t, "guided task")

	out, err := runCLI(t, "task", "guidance", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "read_context") {
		t.Errorf("fresh task should be guided to read context, got %q", out)
	}
}

func TestTaskLifecycleCommands(t *testing.T) {
	store := setupCLI(t)
	ctx := context.Background()
	id := createTestTask(t, "full lifecycle")

	if _, err := runCLI(t, "task", "read-context", id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	k := &models.Knowledge{
		ID:        models.NewKnowledgeID(),
		Title:     "retry with backoff",
		Type:      models.KnowledgeBestPractice,
		Content:   models.KnowledgeContent{Summary: "always cap retries"},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.SaveKnowledge(ctx, k); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := runCLI(t, "task", "confirm-knowledge", id, k.ID.String()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := runCLI(t, "task", "start", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, string(models.StateInProgress)) {
		t.Errorf("start output %q should report in_progress", out)
	}

	if _, err := runCLI(t, "task", "log-work", id, "implemented the codec"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err = runCLI(t, "task", "finish-work", id, "codec done, tests pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, string(models.StateWorkRecorded)) {
		t.Errorf("finish-work output %q should report work_recorded", out)
	}
}

func TestTaskStartBeforeContextFails(t *testing.T) {
	setupCLI(t)
	id := createTestTask(t, "too eager")

	_, err := runCLI(t, "task", "start", id)
	if err == nil {
		t.Fatal("starting before reading context should fail")
	}
	if !strings.Contains(err.Error(), "required action") {
		t.Errorf("conflict error %q should carry the required action", err)
	}
}

func TestTaskPauseAndResume(t *testing.T) {
	setupCLI(t)
	id := createTestTask(t, "pausable")

	if _, err := runCLI(t, "task", "pause", id, "-r", "waiting on review"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := runCLI(t, "task", "resume", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, string(models.StateCreated)) {
		t.Errorf("resume should restore the pre-pause state, got %q", out)
	}
}

func TestTaskAbandon(t *testing.T) {
	setupCLI(t)
	id := createTestTask(t, "doomed")

	out, err := runCLI(t, "task", "abandon", id, "superseded by another task", "--kind", "duplicate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "abandoned") {
		t.Errorf("abandon output %q should confirm abandonment", out)
	}
}

func TestKnowledgeSaveSearchShow(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "knowledge", "save", "connection pooling", "reuse database connections",
		"--type", "best_practice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		t.Fatalf("unexpected save output: %q", out)
	}
	id := strings.TrimSuffix(fields[1], ":")

	out, err = runCLI(t, "knowledge", "search", "pooling")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "connection pooling") {
		t.Errorf("search output %q missing saved entry", out)
	}

	out, err = runCLI(t, "knowledge", "show", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "reuse database connections") {
		t.Errorf("show output %q missing summary", out)
	}
}

func TestGoalCreateListProgress(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "goal", "create", "ship v2", "--criteria", "all tests green")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := strings.Fields(out)
	id := strings.TrimSuffix(fields[1], ":")

	out, err = runCLI(t, "goal", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "ship v2") {
		t.Errorf("goal list %q missing goal", out)
	}

	out, err = runCLI(t, "goal", "progress", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Progress:") {
		t.Errorf("goal progress %q missing progress line", out)
	}
}

func TestStatusGroupsByLifecycle(t *testing.T) {
	setupCLI(t)
	createTestTask(t, "first")
	createTestTask(t, "second")

	out, err := runCLI(t, "status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "2 tasks") {
		t.Errorf("status %q should count two tasks", out)
	}
	if !strings.Contains(out, "queued (2)") {
		t.Errorf("status %q should group both under queued", out)
	}
}

func TestBlockersCommandEmpty(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "blockers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No blockers") {
		t.Errorf("unexpected blockers output: %q", out)
	}
}

func TestMetricsFromEventLog(t *testing.T) {
	setupCLI(t)

	if err := EventLog.Write(observability.TaskCreated(models.NewTaskID(), "metered")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := runCLI(t, "metrics", "--since", "24h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Tasks created:    1") {
		t.Errorf("metrics output %q should count one created task", out)
	}
}

func TestAlertsQuietLog(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "alerts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No active alerts") {
		t.Errorf("unexpected alerts output: %q", out)
	}
}

func TestParseSinceDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"7d", 7 * 24 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"36h", 36 * time.Hour, true},
		{"90m", 90 * time.Minute, true},
		{"soon", 0, false},
	}
	for _, tc := range cases {
		got, err := parseSinceDuration(tc.in)
		if tc.ok && err != nil {
			t.Errorf("parseSinceDuration(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("parseSinceDuration(%q): expected error", tc.in)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("parseSinceDuration(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate should leave short strings alone, got %q", got)
	}
	if got := truncate("a very long task title indeed", 10); got != "a very ..." {
		t.Errorf("unexpected truncation: %q", got)
	}
}
