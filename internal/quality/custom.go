package quality

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devman-ai/devman/internal/tools"
	"github.com/devman-ai/devman/pkg/models"
)

// pendingReviewMarker tags results that wait for an out-of-band answer.
const pendingReviewMarker = "等待人工审查"

func (e *Engine) runCustom(ctx context.Context, check *models.QualityCheck, spec *models.CustomCheckSpec, cctx CheckContext) (*models.QualityCheckResult, error) {
	cmd := spec.CheckCommand

	out, err := e.executor.Execute(ctx, cmd.Command, tools.Input{
		Args:    cmd.Args,
		Timeout: cmd.Timeout,
		WorkDir: cctx.WorkDir,
	})
	if err != nil {
		return nil, fmt.Errorf("running custom check %q: %w", spec.Name, err)
	}

	fullOutput := combineOutput(out.Stdout, out.Stderr)
	result := &models.QualityCheckResult{
		CheckID:       check.ID,
		ExecutionTime: out.Duration,
		Details: models.CheckDetails{
			Output:   fullOutput,
			ExitCode: &out.ExitCode,
		},
	}

	// An exit-code mismatch fails fast; the validator never runs.
	if cmd.ExpectedExitCode != nil && out.ExitCode != *cmd.ExpectedExitCode {
		result.Passed = false
		result.Findings = append(result.Findings, models.Finding{
			Severity: check.Severity,
			Category: check.Category,
			Message: fmt.Sprintf("退出码 %d，期望 %d",
				out.ExitCode, *cmd.ExpectedExitCode),
		})
		return result, nil
	}

	values, parseErr := ParseOutput(spec.Validation.OutputParser, fullOutput)
	if parseErr != nil {
		result.Passed = false
		result.Details.Error = parseErr.Error()
		result.Findings = append(result.Findings, models.Finding{
			Severity: check.Severity,
			Category: check.Category,
			Message:  fmt.Sprintf("解析输出失败: %v", parseErr),
		})
		return result, nil
	}

	passed, evalErr := EvaluatePassCondition(spec.Validation.PassCondition, values)
	if evalErr != nil {
		result.Passed = false
		result.Details.Error = evalErr.Error()
		result.Findings = append(result.Findings, models.Finding{
			Severity: check.Severity,
			Category: check.Category,
			Message:  fmt.Sprintf("评估通过条件失败: %v", evalErr),
		})
		return result, nil
	}
	result.Passed = passed
	if !passed {
		result.Findings = append(result.Findings, models.Finding{
			Severity: check.Severity,
			Category: check.Category,
			Message:  fmt.Sprintf("通过条件不满足: %s", spec.Validation.PassCondition),
		})
	}

	result.Metrics = ExtractMetrics(spec.Validation.ExtractMetrics, fullOutput)

	if spec.HumanReview != nil {
		result.Findings = append(result.Findings, models.Finding{
			Severity: models.SeverityInfo,
			Category: check.Category,
			Message:  fmt.Sprintf("%s: %s", pendingReviewMarker, spec.Name),
		})
	}
	return result, nil
}

// CheckBuilder assembles a custom QualityCheck with sensible defaults:
// severity Warning, 60s timeout, expected exit code 0, pass condition
// "true".
type CheckBuilder struct {
	check models.QualityCheck
	spec  models.CustomCheckSpec
}

// NewCheckBuilder starts a builder for the named check.
func NewCheckBuilder(name string) *CheckBuilder {
	zero := 0
	b := &CheckBuilder{}
	b.check = models.QualityCheck{
		ID:       models.NewQualityCheckID(),
		Name:     name,
		Severity: models.SeverityWarning,
		Category: models.CategoryCorrectness,
	}
	b.spec = models.CustomCheckSpec{
		Name: name,
		CheckCommand: models.CommandSpec{
			Timeout:          60 * time.Second,
			ExpectedExitCode: &zero,
		},
		Validation: models.ValidationSpec{
			OutputParser:  models.OutputParser{Kind: models.ParserLineContains, Text: ""},
			PassCondition: "true",
		},
	}
	return b
}

// Description sets the human-readable description.
func (b *CheckBuilder) Description(d string) *CheckBuilder {
	b.check.Description = d
	return b
}

// Command sets the command and its arguments.
func (b *CheckBuilder) Command(command string, args ...string) *CheckBuilder {
	b.spec.CheckCommand.Command = command
	b.spec.CheckCommand.Args = args
	return b
}

// Timeout overrides the default 60s budget.
func (b *CheckBuilder) Timeout(d time.Duration) *CheckBuilder {
	b.spec.CheckCommand.Timeout = d
	return b
}

// ExpectedExitCode overrides the default expectation of 0. Passing a
// negative value clears the expectation entirely.
func (b *CheckBuilder) ExpectedExitCode(code int) *CheckBuilder {
	if code < 0 {
		b.spec.CheckCommand.ExpectedExitCode = nil
	} else {
		b.spec.CheckCommand.ExpectedExitCode = &code
	}
	return b
}

// Parser sets the output parser.
func (b *CheckBuilder) Parser(p models.OutputParser) *CheckBuilder {
	b.spec.Validation.OutputParser = p
	return b
}

// PassCondition sets the pass-condition expression.
func (b *CheckBuilder) PassCondition(expr string) *CheckBuilder {
	b.spec.Validation.PassCondition = expr
	return b
}

// Metric adds a metric extractor.
func (b *CheckBuilder) Metric(name string, extractor models.OutputParser, unit string) *CheckBuilder {
	b.spec.Validation.ExtractMetrics = append(b.spec.Validation.ExtractMetrics,
		models.MetricExtractor{Name: name, Extractor: extractor, Unit: unit})
	return b
}

// Severity overrides the default Warning severity.
func (b *CheckBuilder) Severity(s models.Severity) *CheckBuilder {
	b.check.Severity = s
	return b
}

// Category sets the quality category.
func (b *CheckBuilder) Category(c models.QualityCategory) *CheckBuilder {
	b.check.Category = c
	return b
}

// HumanReview attaches a human review step.
func (b *CheckBuilder) HumanReview(spec models.HumanReviewSpec) *CheckBuilder {
	if spec.Timeout == 0 {
		spec.Timeout = defaultReviewTimeout
	}
	b.spec.HumanReview = &spec
	return b
}

// Build validates and returns the assembled check.
func (b *CheckBuilder) Build() (*models.QualityCheck, error) {
	if b.spec.CheckCommand.Command == "" {
		return nil, fmt.Errorf("building check %q: command is required", b.spec.Name)
	}
	check := b.check
	spec := b.spec
	check.CheckType = models.QualityCheckType{Custom: &spec}
	return &check, nil
}

// CheckRegistry holds named custom checks for reuse across tasks.
type CheckRegistry struct {
	mu     sync.RWMutex
	checks map[string]*models.QualityCheck
}

// NewCheckRegistry creates an empty registry.
func NewCheckRegistry() *CheckRegistry {
	return &CheckRegistry{checks: make(map[string]*models.QualityCheck)}
}

// Register stores the check under its name, replacing any previous one.
func (r *CheckRegistry) Register(check *models.QualityCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[check.Name] = check
}

// Get looks a check up by name.
func (r *CheckRegistry) Get(name string) (*models.QualityCheck, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	check, ok := r.checks[name]
	return check, ok
}

// Names lists registered check names.
func (r *CheckRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	return names
}
