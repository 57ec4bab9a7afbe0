package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

// GuidanceContext is the evidence the generator consults beyond the bare
// state: what the task is about and what the agent has done so far.
type GuidanceContext struct {
	TaskDescription        string
	Domains                []string
	TechStack              []string
	HasReadContext         bool
	ReviewedKnowledge      []models.KnowledgeID
	WorkLogs               []string
	HasQualityRequirements bool
	RequiredQualityChecks  []models.QualityCheckType
}

// ActionKind names the single next action the agent should take.
type ActionKind string

const (
	ActionReadContext         ActionKind = "read_context"
	ActionReviewKnowledge     ActionKind = "review_knowledge"
	ActionStartExecution      ActionKind = "start_execution"
	ActionContinueExecution   ActionKind = "continue_execution"
	ActionRunQualityCheck     ActionKind = "run_quality_check"
	ActionWaitForQualityCheck ActionKind = "wait_for_quality_check"
	ActionFixQualityIssues    ActionKind = "fix_quality_issues"
	ActionReviewQualityResult ActionKind = "review_quality_result"
	ActionCompleteTask        ActionKind = "complete_task"
	ActionPaused              ActionKind = "paused"
	ActionAbandoned           ActionKind = "abandoned"
	ActionTaskCompleted       ActionKind = "task_completed"
)

// NextAction is the derived next step with its supporting payload.
type NextAction struct {
	Kind              ActionKind                `json:"kind"`
	SuggestedFirst    bool                      `json:"suggested_first,omitempty"`
	SuggestedQueries  []string                  `json:"suggested_queries,omitempty"`
	SuggestedWorkflow string                    `json:"suggested_workflow,omitempty"`
	RequiredLogs      []string                  `json:"required_logs,omitempty"`
	RequiredChecks    []models.QualityCheckType `json:"required_checks,omitempty"`
	Issues            []string                  `json:"issues,omitempty"`
	Reason            string                    `json:"reason,omitempty"`
}

// HealthLevel is the four-level task health classification.
type HealthLevel string

const (
	HealthHealthy   HealthLevel = "healthy"
	HealthWarning   HealthLevel = "warning"
	HealthAttention HealthLevel = "attention"
	HealthCritical  HealthLevel = "critical"
)

// IssueSeverity grades an attention-level issue.
type IssueSeverity string

const (
	IssueLow    IssueSeverity = "low"
	IssueMedium IssueSeverity = "medium"
	IssueHigh   IssueSeverity = "high"
)

// TaskIssue is one attention-level problem with a suggested fix.
type TaskIssue struct {
	Severity        IssueSeverity `json:"severity"`
	Description     string        `json:"description"`
	SuggestedAction string        `json:"suggested_action"`
}

// TaskHealth is the health verdict with its supporting evidence.
type TaskHealth struct {
	Level    HealthLevel `json:"level"`
	Warnings []string    `json:"warnings,omitempty"`
	Issues   []TaskIssue `json:"issues,omitempty"`
	Blockers []string    `json:"blockers,omitempty"`
}

// Guidance is the advisory bundle returned to the agent.
type Guidance struct {
	TaskID                models.TaskID    `json:"task_id"`
	CurrentState          models.TaskState `json:"current_state"`
	NextAction            NextAction       `json:"next_action"`
	PrerequisitesSatisfied bool            `json:"prerequisites_satisfied"`
	MissingPrerequisites  []string         `json:"missing_prerequisites"`
	AllowedOperations     []string         `json:"allowed_operations"`
	GuidanceMessage       string           `json:"guidance_message"`
	TaskHealth            TaskHealth       `json:"task_health"`
}

// GenerateGuidance derives the full advisory bundle for a task from its
// current state and context.
func GenerateGuidance(taskID models.TaskID, state models.TaskState, ctx GuidanceContext) Guidance {
	next := determineNextAction(state, ctx)
	missing := checkPrerequisites(state, ctx)
	return Guidance{
		TaskID:                taskID,
		CurrentState:          state.Clone(),
		NextAction:            next,
		PrerequisitesSatisfied: len(missing) == 0,
		MissingPrerequisites:  missing,
		AllowedOperations:     AllowedOperations(state),
		GuidanceMessage:       buildGuidanceMessage(state, missing),
		TaskHealth:            AssessTaskHealth(state, ctx, time.Now()),
	}
}

func determineNextAction(state models.TaskState, ctx GuidanceContext) NextAction {
	switch state.Kind {
	case models.StateCreated:
		return NextAction{Kind: ActionReadContext, SuggestedFirst: true}
	case models.StateContextRead:
		return NextAction{Kind: ActionReviewKnowledge, SuggestedQueries: SuggestKnowledgeQueries(ctx)}
	case models.StateKnowledgeReviewed:
		return NextAction{Kind: ActionStartExecution, SuggestedWorkflow: SuggestWorkflow(ctx.TaskDescription)}
	case models.StateInProgress:
		return NextAction{Kind: ActionContinueExecution, RequiredLogs: requiredWorkLogs(ctx)}
	case models.StateWorkRecorded:
		return NextAction{Kind: ActionRunQualityCheck, RequiredChecks: RequiredQualityChecks(ctx)}
	case models.StateQualityChecking:
		return NextAction{Kind: ActionWaitForQualityCheck}
	case models.StateQualityCompleted:
		if state.Result == nil {
			return NextAction{Kind: ActionReviewQualityResult}
		}
		switch state.Result.OverallStatus {
		case models.QualityOverallPassed:
			return NextAction{Kind: ActionCompleteTask}
		case models.QualityPassedWithWarnings:
			return NextAction{Kind: ActionFixQualityIssues, Issues: warningsSummary(*state.Result)}
		case models.QualityOverallFailed:
			return NextAction{Kind: ActionFixQualityIssues, Issues: failuresSummary(*state.Result)}
		default:
			return NextAction{Kind: ActionReviewQualityResult}
		}
	case models.StatePaused:
		return NextAction{Kind: ActionPaused, Reason: state.PauseReason}
	case models.StateAbandoned:
		reason := ""
		if state.AbandonReason != nil {
			reason = state.AbandonReason.Reason
		}
		return NextAction{Kind: ActionAbandoned, Reason: reason}
	case models.StateCompleted:
		return NextAction{Kind: ActionTaskCompleted}
	}
	return NextAction{Kind: ActionReviewQualityResult}
}

// SuggestKnowledgeQueries maps keywords in the task description to
// canonical knowledge queries; domains each contribute a best-practices
// query; with no matches the literal description is the query.
func SuggestKnowledgeQueries(ctx GuidanceContext) []string {
	desc := strings.ToLower(ctx.TaskDescription)
	var queries []string

	if strings.Contains(desc, "auth") || strings.Contains(desc, "login") {
		queries = append(queries, "authentication best practices", "security considerations")
	}
	if strings.Contains(desc, "api") || strings.Contains(desc, "endpoint") {
		queries = append(queries, "REST API design patterns", "API versioning")
	}
	if strings.Contains(desc, "test") || strings.Contains(desc, "testing") {
		queries = append(queries, "unit testing patterns", "test coverage")
	}
	if strings.Contains(desc, "database") || strings.Contains(desc, "sql") {
		queries = append(queries, "database design patterns", "transaction handling")
	}
	if strings.Contains(desc, "performance") || strings.Contains(desc, "optimize") {
		queries = append(queries, "performance optimization", "profiling techniques")
	}

	for _, domain := range ctx.Domains {
		queries = append(queries, fmt.Sprintf("%s best practices", domain))
	}

	if len(queries) == 0 {
		queries = append(queries, ctx.TaskDescription)
	}
	return queries
}

// SuggestWorkflow picks a workflow id from the task description.
func SuggestWorkflow(description string) string {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "feature") || strings.Contains(desc, "implement"):
		return "tdd_workflow"
	case strings.Contains(desc, "bug") || strings.Contains(desc, "fix"):
		return "debugging_workflow"
	case strings.Contains(desc, "refactor"):
		return "refactoring_workflow"
	default:
		return "standard_workflow"
	}
}

func requiredWorkLogs(ctx GuidanceContext) []string {
	required := []string{"记录实现的功能", "记录运行的测试"}
	if ctx.HasQualityRequirements {
		required = append(required, "记录质检结果")
	}
	return required
}

// conventional linter/formatter per language, for the default check list.
var lintersByLang = map[string][2]string{
	"go":     {"golangci-lint", "gofmt"},
	"rust":   {"clippy", "rustfmt"},
	"python": {"ruff", "black"},
}

// RequiredQualityChecks builds the default check list for a task:
// compile + unit tests, plus lint and format when the language has
// conventional tools, plus any checks the context demands.
func RequiredQualityChecks(ctx GuidanceContext) []models.QualityCheckType {
	target := "unknown"
	if len(ctx.TechStack) > 0 {
		target = ctx.TechStack[0]
	}
	checks := []models.QualityCheckType{
		{Generic: &models.GenericCheck{Kind: models.CheckCompiles, Target: target}},
		{Generic: &models.GenericCheck{Kind: models.CheckTestsPass, TestSuite: "unit"}},
	}
	for _, lang := range ctx.TechStack {
		if tools, ok := lintersByLang[strings.ToLower(lang)]; ok {
			checks = append(checks,
				models.QualityCheckType{Generic: &models.GenericCheck{Kind: models.CheckLintsPass, Linter: tools[0]}},
				models.QualityCheckType{Generic: &models.GenericCheck{Kind: models.CheckFormatted, Formatter: tools[1]}},
			)
			break
		}
	}
	checks = append(checks, ctx.RequiredQualityChecks...)
	return checks
}

func warningsSummary(result models.TaskQualityCheckResult) []string {
	if result.WarningsCount > 0 {
		return []string{
			fmt.Sprintf("质检发现 %d 个警告，请查看详细报告", result.WarningsCount),
			fmt.Sprintf("总共有 %d 个问题需要关注", result.FindingsCount),
		}
	}
	return []string{"质检通过但有警告"}
}

func failuresSummary(result models.TaskQualityCheckResult) []string {
	var failures []string
	if result.FindingsCount > 0 {
		failures = append(failures, fmt.Sprintf("质检未通过，发现 %d 个问题", result.FindingsCount))
	}
	if result.WarningsCount > 0 {
		failures = append(failures, fmt.Sprintf("另外有 %d 个警告", result.WarningsCount))
	}
	if len(failures) == 0 {
		failures = append(failures, "质检未通过，请查看详细报告")
	}
	return failures
}

func checkPrerequisites(state models.TaskState, ctx GuidanceContext) []string {
	var missing []string
	switch state.Kind {
	case models.StateContextRead:
		if !ctx.HasReadContext {
			missing = append(missing, "读取任务上下文")
		}
	case models.StateKnowledgeReviewed:
		if len(ctx.ReviewedKnowledge) == 0 {
			missing = append(missing, "学习相关知识")
		}
	case models.StateWorkRecorded:
		if len(ctx.WorkLogs) == 0 {
			missing = append(missing, "记录工作进展")
		}
	}
	return missing
}

func buildGuidanceMessage(state models.TaskState, missing []string) string {
	base := StateGuidance(state)
	if len(missing) == 0 {
		return base
	}
	return fmt.Sprintf("%s\n\n缺少前置条件:\n- %s", base, strings.Join(missing, "\n- "))
}

// Health thresholds. These exact values are relied on by callers.
const (
	createdStaleAfter     = 24 * time.Hour
	contextReadStaleAfter = 4 * time.Hour
	inProgressStaleAfter  = 24 * time.Hour
	unloggedWorkAfter     = 2 * time.Hour
	qualityCheckLongAfter = 2 * time.Hour
)

// AssessTaskHealth classifies the task given the time spent in its
// current state and the context's evidence. Critical dominates
// Attention, which dominates Warning.
func AssessTaskHealth(state models.TaskState, ctx GuidanceContext, now time.Time) TaskHealth {
	var warnings []string
	var issues []TaskIssue
	var blockers []string

	since := func(t time.Time, d time.Duration) bool {
		return !t.IsZero() && now.Sub(t) > d
	}

	switch state.Kind {
	case models.StateCreated:
		if since(state.CreatedAt, createdStaleAfter) {
			blockers = append(blockers, "任务创建超过24小时未开始")
		}
	case models.StateContextRead:
		if since(state.ReadAt, contextReadStaleAfter) {
			warnings = append(warnings, "读取上下文后长时间未学习知识")
		}
	case models.StateInProgress:
		if since(state.StartedAt, inProgressStaleAfter) {
			warnings = append(warnings, "任务执行超过24小时")
		}
		if len(ctx.WorkLogs) == 0 && since(state.StartedAt, unloggedWorkAfter) {
			issues = append(issues, TaskIssue{
				Severity:        IssueMedium,
				Description:     "执行超过2小时未记录工作",
				SuggestedAction: "使用 log_work() 记录当前进展",
			})
		}
	case models.StateQualityChecking:
		if since(state.CheckStartedAt, qualityCheckLongAfter) {
			warnings = append(warnings, "质检运行时间较长")
		}
	case models.StatePaused:
		blockers = append(blockers, "任务已暂停")
	case models.StateAbandoned:
		blockers = append(blockers, "任务已放弃")
	}

	switch {
	case len(blockers) > 0:
		return TaskHealth{Level: HealthCritical, Blockers: blockers}
	case len(issues) > 0:
		return TaskHealth{Level: HealthAttention, Issues: issues}
	case len(warnings) > 0:
		return TaskHealth{Level: HealthWarning, Warnings: warnings}
	default:
		return TaskHealth{Level: HealthHealthy}
	}
}
