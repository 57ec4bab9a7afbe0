package core

import (
	"strings"
	"testing"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

func TestGuidanceForCreatedTask(t *testing.T) {
	g := GenerateGuidance(models.NewTaskID(), models.NewCreatedState("tester"), GuidanceContext{})
	if g.NextAction.Kind != ActionReadContext {
		t.Errorf("expected read_context, got %s", g.NextAction.Kind)
	}
	if !g.NextAction.SuggestedFirst {
		t.Error("reading context should be suggested first")
	}
	if !g.PrerequisitesSatisfied {
		t.Errorf("created task has no prerequisites, missing %v", g.MissingPrerequisites)
	}
	if g.GuidanceMessage == "" {
		t.Error("guidance message should not be empty")
	}
}

func TestGuidanceSuggestsQueriesFromDescription(t *testing.T) {
	g := GenerateGuidance(models.NewTaskID(), models.NewContextReadState(), GuidanceContext{
		TaskDescription: "Implement the auth API endpoint",
		HasReadContext:  true,
		Domains:         []string{"payments"},
	})
	if g.NextAction.Kind != ActionReviewKnowledge {
		t.Fatalf("expected review_knowledge, got %s", g.NextAction.Kind)
	}
	joined := strings.Join(g.NextAction.SuggestedQueries, "\n")
	for _, want := range []string{"authentication best practices", "REST API design patterns", "payments best practices"} {
		if !strings.Contains(joined, want) {
			t.Errorf("suggested queries missing %q: %v", want, g.NextAction.SuggestedQueries)
		}
	}
}

func TestGuidanceFallsBackToLiteralQuery(t *testing.T) {
	queries := SuggestKnowledgeQueries(GuidanceContext{TaskDescription: "rework the billing exporter"})
	if len(queries) != 1 || queries[0] != "rework the billing exporter" {
		t.Errorf("unmatched description should become the query, got %v", queries)
	}
}

func TestSuggestWorkflow(t *testing.T) {
	cases := map[string]string{
		"implement the new search feature": "tdd_workflow",
		"fix the crash on startup":         "debugging_workflow",
		"refactor the storage layer":       "refactoring_workflow",
		"update the changelog":             "standard_workflow",
	}
	for desc, want := range cases {
		if got := SuggestWorkflow(desc); got != want {
			t.Errorf("SuggestWorkflow(%q) = %q, want %q", desc, got, want)
		}
	}
}

func TestGuidanceMissingPrerequisites(t *testing.T) {
	g := GenerateGuidance(models.NewTaskID(), models.NewKnowledgeReviewedState(nil), GuidanceContext{})
	if g.PrerequisitesSatisfied {
		t.Error("no reviewed knowledge should leave prerequisites unmet")
	}
	if len(g.MissingPrerequisites) == 0 {
		t.Fatal("missing prerequisites should be listed")
	}
	if !strings.Contains(g.GuidanceMessage, g.MissingPrerequisites[0]) {
		t.Error("guidance message should repeat the missing prerequisite")
	}
}

func TestRequiredQualityChecksByStack(t *testing.T) {
	checks := RequiredQualityChecks(GuidanceContext{TechStack: []string{"go"}})
	kinds := make([]models.GenericCheckKind, 0, len(checks))
	for _, c := range checks {
		if c.Generic != nil {
			kinds = append(kinds, c.Generic.Kind)
		}
	}
	want := []models.GenericCheckKind{
		models.CheckCompiles, models.CheckTestsPass, models.CheckLintsPass, models.CheckFormatted,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("check %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}

	// A stack with no conventional linter gets compile and tests only.
	checks = RequiredQualityChecks(GuidanceContext{TechStack: []string{"cobol"}})
	if len(checks) != 2 {
		t.Errorf("unknown stack should get 2 checks, got %d", len(checks))
	}
}

func TestGuidanceForQualityVerdicts(t *testing.T) {
	failed := models.NewQualityCompletedState(models.TaskQualityCheckResult{
		OverallStatus: models.QualityOverallFailed,
		FindingsCount: 3,
	})
	g := GenerateGuidance(models.NewTaskID(), failed, GuidanceContext{})
	if g.NextAction.Kind != ActionFixQualityIssues {
		t.Errorf("failed verdict should ask for fixes, got %s", g.NextAction.Kind)
	}
	if len(g.NextAction.Issues) == 0 {
		t.Error("failed verdict should carry issue summaries")
	}

	passed := models.NewQualityCompletedState(models.TaskQualityCheckResult{
		OverallStatus: models.QualityOverallPassed,
	})
	g = GenerateGuidance(models.NewTaskID(), passed, GuidanceContext{})
	if g.NextAction.Kind != ActionCompleteTask {
		t.Errorf("passed verdict should ask for completion, got %s", g.NextAction.Kind)
	}
}

func TestTaskHealthLevels(t *testing.T) {
	now := time.Now()

	h := AssessTaskHealth(models.NewInProgressState(), GuidanceContext{WorkLogs: []string{"x"}}, now)
	if h.Level != HealthHealthy {
		t.Errorf("fresh in-progress task should be healthy, got %s", h.Level)
	}

	stale := models.NewInProgressState()
	stale.StartedAt = now.Add(-3 * time.Hour)
	h = AssessTaskHealth(stale, GuidanceContext{}, now)
	if h.Level != HealthAttention {
		t.Errorf("3h without work logs should demand attention, got %s", h.Level)
	}
	if len(h.Issues) == 0 || h.Issues[0].SuggestedAction == "" {
		t.Error("attention issues should carry a suggested action")
	}

	paused := models.NewPausedState("waiting", models.NewInProgressState())
	h = AssessTaskHealth(paused, GuidanceContext{}, now)
	if h.Level != HealthCritical {
		t.Errorf("paused task should be critical, got %s", h.Level)
	}
}
