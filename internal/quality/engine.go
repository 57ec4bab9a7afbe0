package quality

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/devman-ai/devman/internal/tools"
	"github.com/devman-ai/devman/pkg/models"
)

// CheckContext carries the environment a check runs in.
type CheckContext struct {
	TaskID  models.TaskID
	WorkDir string
}

// GateDecision is the gate verdict.
type GateDecision string

const (
	DecisionPass             GateDecision = "pass"
	DecisionFail             GateDecision = "fail"
	DecisionPassWithWarnings GateDecision = "pass_with_warnings"
	DecisionEscalate         GateDecision = "escalate"
)

// GateResult is the outcome of evaluating one quality gate.
type GateResult struct {
	GateName     string                      `json:"gate_name"`
	Passed       bool                        `json:"passed"`
	CheckResults []models.QualityCheckResult `json:"check_results"`
	Decision     GateDecision                `json:"decision"`
}

// Engine runs quality checks through a ToolExecutor.
type Engine struct {
	executor tools.Executor
	registry *CheckRegistry
}

// NewEngine creates a quality engine on top of the executor.
func NewEngine(executor tools.Executor) *Engine {
	return &Engine{executor: executor, registry: NewCheckRegistry()}
}

// Registry exposes the engine's custom-check registry.
func (e *Engine) Registry() *CheckRegistry { return e.registry }

// RunCheck executes one check and maps the outcome to a result.
func (e *Engine) RunCheck(ctx context.Context, check *models.QualityCheck, cctx CheckContext) (*models.QualityCheckResult, error) {
	switch {
	case check.CheckType.Generic != nil:
		return e.runGeneric(ctx, check, check.CheckType.Generic, cctx)
	case check.CheckType.Custom != nil:
		return e.runCustom(ctx, check, check.CheckType.Custom, cctx)
	default:
		return nil, fmt.Errorf("running check %s: neither generic nor custom", check.ID)
	}
}

// RunChecks executes checks in order and collects every result.
func (e *Engine) RunChecks(ctx context.Context, checks []*models.QualityCheck, cctx CheckContext) ([]models.QualityCheckResult, error) {
	results := make([]models.QualityCheckResult, 0, len(checks))
	for _, check := range checks {
		result, err := e.RunCheck(ctx, check, cctx)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// RunGate runs the gate's checks and evaluates its pass condition.
// The FailureAction shades a failed gate: warn yields pass-with-warnings,
// escalate yields escalate, block yields fail.
func (e *Engine) RunGate(ctx context.Context, gate models.QualityGate, checks []*models.QualityCheck, cctx CheckContext) (*GateResult, error) {
	results, err := e.RunChecks(ctx, checks, cctx)
	if err != nil {
		return nil, fmt.Errorf("running gate %q: %w", gate.Name, err)
	}

	passed := evaluatePassKind(gate.PassCondition, results)

	decision := DecisionPass
	if !passed {
		switch gate.FailureAction {
		case models.FailureActionWarn:
			decision = DecisionPassWithWarnings
		case models.FailureActionEscalate:
			decision = DecisionEscalate
		default:
			decision = DecisionFail
		}
	}

	return &GateResult{
		GateName:     gate.Name,
		Passed:       passed,
		CheckResults: results,
		Decision:     decision,
	}, nil
}

func evaluatePassKind(cond models.GatePassCondition, results []models.QualityCheckResult) bool {
	switch cond.Kind {
	case models.GatePassAtLeast:
		passed := 0
		for _, r := range results {
			if r.Passed {
				passed++
			}
		}
		return passed >= cond.AtLeast
	case models.GatePassCustom:
		// Custom gate rules are not interpreted; the gate passes.
		return true
	default: // AllPassed
		for _, r := range results {
			if !r.Passed {
				return false
			}
		}
		return true
	}
}

// genericCommand maps a generic check variant to the tool invocation
// that realizes it and the finding category on failure.
func genericCommand(g *models.GenericCheck) (tool string, input tools.Input, category models.QualityCategory, suggestion string) {
	switch g.Kind {
	case models.CheckCompiles:
		return "go", tools.Input{Args: []string{"build", "./..."}}, models.CategoryCorrectness,
			"修复编译错误后重试"
	case models.CheckTestsPass:
		args := []string{"test", "./..."}
		if g.MinCoverage != nil {
			args = append(args, "-cover")
		}
		return "go", tools.Input{Args: args}, models.CategoryTesting,
			"查看失败的测试并修复"
	case models.CheckFormatted:
		formatter := g.Formatter
		if formatter == "" {
			formatter = "gofmt"
		}
		return "shell", tools.Input{Args: []string{formatter + " -l . | grep . && exit 1 || exit 0"}}, models.CategoryMaintainability,
			"运行格式化工具"
	case models.CheckLintsPass:
		linter := g.Linter
		if linter == "" {
			linter = "golangci-lint"
		}
		return "shell", tools.Input{Args: []string{linter + " run"}}, models.CategoryMaintainability,
			"修复 lint 告警"
	case models.CheckTypeCheck:
		return "go", tools.Input{Args: []string{"vet", "./..."}}, models.CategoryCorrectness,
			"修复类型检查错误"
	case models.CheckDependenciesValid:
		return "go", tools.Input{Args: []string{"mod", "verify"}}, models.CategoryCompliance,
			"检查依赖完整性"
	case models.CheckSecurityScan:
		scanner := g.Scanner
		if scanner == "" {
			scanner = "govulncheck"
		}
		return "shell", tools.Input{Args: []string{scanner + " ./..."}}, models.CategorySecurity,
			"处理安全扫描发现的问题"
	default:
		return "", tools.Input{}, models.CategoryCorrectness, ""
	}
}

func (e *Engine) runGeneric(ctx context.Context, check *models.QualityCheck, g *models.GenericCheck, cctx CheckContext) (*models.QualityCheckResult, error) {
	// DocumentationExists needs no process at all.
	if g.Kind == models.CheckDocumentationExists {
		return docExistsResult(check, g), nil
	}

	tool, input, category, suggestion := genericCommand(g)
	if tool == "" {
		return nil, fmt.Errorf("running check %s: unknown generic kind %q", check.ID, g.Kind)
	}
	input.WorkDir = cctx.WorkDir

	out, err := e.executor.Execute(ctx, tool, input)
	if err != nil {
		return nil, fmt.Errorf("running check %s: %w", check.ID, err)
	}

	passed := out.ExitCode == 0
	fullOutput := combineOutput(out.Stdout, out.Stderr)

	result := &models.QualityCheckResult{
		CheckID:       check.ID,
		Passed:        passed,
		ExecutionTime: out.Duration,
		Details: models.CheckDetails{
			Output:   fullOutput,
			ExitCode: &out.ExitCode,
		},
	}

	if g.Kind == models.CheckTestsPass && g.MinCoverage != nil {
		if coverage, ok := extractCoverage(fullOutput); ok {
			result.Metrics = append(result.Metrics, models.Metric{
				Name: "coverage", Value: coverage, Unit: "%",
			})
			if coverage < *g.MinCoverage {
				result.Passed = false
				result.Findings = append(result.Findings, models.Finding{
					Severity: models.SeverityError,
					Category: models.CategoryTesting,
					Message:  fmt.Sprintf("覆盖率 %.1f%% 低于要求的 %.1f%%", coverage, *g.MinCoverage),
				})
			}
		}
	}

	if !passed {
		result.Findings = append(result.Findings, models.Finding{
			Severity:   models.SeverityError,
			Category:   category,
			Message:    fmt.Sprintf("%s 未通过 (exit code %d)", check.Name, out.ExitCode),
			Suggestion: suggestion,
		})
	}
	return result, nil
}

func docExistsResult(check *models.QualityCheck, g *models.GenericCheck) *models.QualityCheckResult {
	start := time.Now()
	var missing []string
	for _, path := range g.Paths {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}

	result := &models.QualityCheckResult{
		CheckID:       check.ID,
		Passed:        len(missing) == 0,
		ExecutionTime: time.Since(start),
		Details: models.CheckDetails{
			Output: fmt.Sprintf("checked %d paths, %d missing", len(g.Paths), len(missing)),
		},
	}
	for _, path := range missing {
		result.Findings = append(result.Findings, models.Finding{
			Severity:   models.SeverityError,
			Category:   models.CategoryDocumentation,
			Message:    fmt.Sprintf("缺少文档文件: %s", path),
			Location:   &models.FileLocation{File: path},
			Suggestion: "补充缺少的文档",
		})
	}
	return result
}

func combineOutput(stdout, stderr string) string {
	if strings.TrimSpace(stderr) == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + "\n" + stderr
}

// Summarize rolls per-check results up into the per-task status.
func Summarize(taskID models.TaskID, results []models.QualityCheckResult) models.QualityStatus {
	status := models.QualityStatus{TaskID: taskID, TotalChecks: len(results)}
	for _, r := range results {
		if r.HumanReview == nil && hasPendingReview(r) {
			status.PendingHumanReview = true
		}
		if r.Passed {
			status.PassedChecks++
			for _, f := range r.Findings {
				if f.Severity == models.SeverityWarning {
					status.Warnings++
				}
			}
		} else {
			status.FailedChecks++
		}
	}

	switch {
	case len(results) == 0:
		status.OverallStatus = models.QualityNotChecked
	case status.PendingHumanReview:
		status.OverallStatus = models.QualityPendingReview
	case status.FailedChecks > 0:
		status.OverallStatus = models.QualityOverallFailed
	case status.Warnings > 0:
		status.OverallStatus = models.QualityPassedWithWarnings
	default:
		status.OverallStatus = models.QualityOverallPassed
	}
	return status
}

func hasPendingReview(r models.QualityCheckResult) bool {
	for _, f := range r.Findings {
		if strings.Contains(f.Message, "等待人工审查") {
			return true
		}
	}
	return false
}
