package models

import "time"

// QualityCheck is one measurable property of the work, generic or custom.
type QualityCheck struct {
	ID          QualityCheckID   `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	CheckType   QualityCheckType `json:"check_type"`
	Severity    Severity         `json:"severity"`
	Category    QualityCategory  `json:"category"`
}

// QualityCategory classifies what aspect of quality a check measures.
type QualityCategory string

const (
	CategoryCorrectness     QualityCategory = "correctness"
	CategoryPerformance     QualityCategory = "performance"
	CategorySecurity        QualityCategory = "security"
	CategoryMaintainability QualityCategory = "maintainability"
	CategoryDocumentation   QualityCategory = "documentation"
	CategoryTesting         QualityCategory = "testing"
	CategoryBusiness        QualityCategory = "business"
	CategoryCompliance      QualityCategory = "compliance"
)

// QualityCheckType is either a built-in generic check or a custom
// command spec. Exactly one of Generic or Custom is set.
type QualityCheckType struct {
	Generic *GenericCheck    `json:"generic,omitempty"`
	Custom  *CustomCheckSpec `json:"custom,omitempty"`
}

// GenericCheckKind enumerates the built-in check variants.
type GenericCheckKind string

const (
	CheckCompiles            GenericCheckKind = "compiles"
	CheckTestsPass           GenericCheckKind = "tests_pass"
	CheckFormatted           GenericCheckKind = "formatted"
	CheckLintsPass           GenericCheckKind = "lints_pass"
	CheckDocumentationExists GenericCheckKind = "documentation_exists"
	CheckTypeCheck           GenericCheckKind = "type_check"
	CheckDependenciesValid   GenericCheckKind = "dependencies_valid"
	CheckSecurityScan        GenericCheckKind = "security_scan"
)

// GenericCheck is one built-in check with its variant parameters.
type GenericCheck struct {
	Kind        GenericCheckKind `json:"kind"`
	Target      string           `json:"target,omitempty"`       // Compiles
	TestSuite   string           `json:"test_suite,omitempty"`   // TestsPass
	MinCoverage *float64         `json:"min_coverage,omitempty"` // TestsPass
	Formatter   string           `json:"formatter,omitempty"`    // Formatted
	Linter      string           `json:"linter,omitempty"`       // LintsPass
	Paths       []string         `json:"paths,omitempty"`        // DocumentationExists
	Scanner     string           `json:"scanner,omitempty"`      // SecurityScan
}

// CustomCheckSpec is a user-defined check: run a command, parse its
// output, evaluate a pass condition, extract metrics.
type CustomCheckSpec struct {
	Name         string           `json:"name"`
	CheckCommand CommandSpec      `json:"check_command"`
	Validation   ValidationSpec   `json:"validation"`
	HumanReview  *HumanReviewSpec `json:"human_review,omitempty"`
}

// CommandSpec describes the external command a custom check runs.
type CommandSpec struct {
	Command          string        `json:"command"`
	Args             []string      `json:"args"`
	Timeout          time.Duration `json:"timeout"`
	ExpectedExitCode *int          `json:"expected_exit_code,omitempty"`
}

// ValidationSpec describes how a custom check's output is judged.
type ValidationSpec struct {
	OutputParser   OutputParser      `json:"output_parser"`
	PassCondition  string            `json:"pass_condition"`
	ExtractMetrics []MetricExtractor `json:"extract_metrics,omitempty"`
}

// ParserKind enumerates the output parser variants.
type ParserKind string

const (
	ParserJSONPath     ParserKind = "json_path"
	ParserRegex        ParserKind = "regex"
	ParserLineContains ParserKind = "line_contains"
	ParserCustom       ParserKind = "custom"
)

// OutputParser extracts key/value pairs from raw command output.
type OutputParser struct {
	Kind    ParserKind `json:"kind"`
	Path    string     `json:"path,omitempty"`    // JSONPath
	Pattern string     `json:"pattern,omitempty"` // Regex
	Text    string     `json:"text,omitempty"`    // LineContains
	Script  string     `json:"script,omitempty"`  // Custom
}

// MetricExtractor pulls one named numeric metric out of check output.
type MetricExtractor struct {
	Name      string       `json:"name"`
	Extractor OutputParser `json:"extractor"`
	Unit      string       `json:"unit,omitempty"`
}

// HumanReviewSpec asks named reviewers to answer a review form.
type HumanReviewSpec struct {
	Reviewers         []string         `json:"reviewers"`
	ReviewGuide       string           `json:"review_guide"`
	ReviewForm        []ReviewQuestion `json:"review_form"`
	Timeout           time.Duration    `json:"timeout"`
	AutoPassThreshold *float64         `json:"auto_pass_threshold,omitempty"`
}

// ReviewQuestion is one item on a human review form.
type ReviewQuestion struct {
	Question   string     `json:"question"`
	AnswerType AnswerType `json:"answer_type"`
	Required   bool       `json:"required"`
}

// AnswerKind enumerates form answer types.
type AnswerKind string

const (
	AnswerYesNo  AnswerKind = "yes_no"
	AnswerRating AnswerKind = "rating"
	AnswerText   AnswerKind = "text"
	AnswerChoice AnswerKind = "choice"
)

// AnswerType constrains what a review answer may be.
type AnswerType struct {
	Kind    AnswerKind `json:"kind"`
	Min     int        `json:"min,omitempty"`
	Max     int        `json:"max,omitempty"`
	Options []string   `json:"options,omitempty"`
}

// AnswerValue is one given answer.
type AnswerValue struct {
	Kind   AnswerKind `json:"kind"`
	YesNo  bool       `json:"yes_no,omitempty"`
	Rating int        `json:"rating,omitempty"`
	Text   string     `json:"text,omitempty"`
	Choice string     `json:"choice,omitempty"`
}

// QualityCheckResult is the outcome of running one check.
type QualityCheckResult struct {
	CheckID       QualityCheckID     `json:"check_id"`
	Passed        bool               `json:"passed"`
	ExecutionTime time.Duration      `json:"execution_time"`
	Details       CheckDetails       `json:"details"`
	Findings      []Finding          `json:"findings"`
	Metrics       []Metric           `json:"metrics"`
	HumanReview   *HumanReviewResult `json:"human_review,omitempty"`
}

// CheckDetails captures the raw evidence behind a result.
type CheckDetails struct {
	Output   string `json:"output"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Finding is one atomic defect reported by a check.
type Finding struct {
	Severity   Severity        `json:"severity"`
	Category   QualityCategory `json:"category"`
	Message    string          `json:"message"`
	Location   *FileLocation   `json:"location,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
}

// FileLocation pins a finding to a file position.
type FileLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// Metric is one numeric measurement from a check.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// HumanReviewResult records a completed human review.
type HumanReviewResult struct {
	Reviewer   string         `json:"reviewer"`
	ReviewedAt time.Time      `json:"reviewed_at"`
	Answers    []ReviewAnswer `json:"answers"`
	Comments   string         `json:"comments,omitempty"`
	Approved   bool           `json:"approved"`
}

// ReviewAnswer is one answered form question.
type ReviewAnswer struct {
	Question string      `json:"question"`
	Answer   AnswerValue `json:"answer"`
}

// QualityProfile names a reusable set of checks and gate strategy.
type QualityProfile struct {
	ID              QualityProfileID `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Checks          []QualityCheckID `json:"checks"`
	PhaseGates      []PhaseGate      `json:"phase_gates"`
	DefaultStrategy GateStrategy     `json:"default_strategy"`
}

// PhaseGate attaches checks to a phase boundary.
type PhaseGate struct {
	Phase    PhaseID          `json:"phase"`
	Checks   []QualityCheckID `json:"checks"`
	Strategy GateStrategy     `json:"strategy"`
}

// GateStrategyKind enumerates gate strategies.
type GateStrategyKind string

const (
	GateAllMustPass     GateStrategyKind = "all_must_pass"
	GateWarningsAllowed GateStrategyKind = "warnings_allowed"
	GateManualDecision  GateStrategyKind = "manual_decision"
	GateCustomRule      GateStrategyKind = "custom"
)

// GateStrategy decides gate outcomes from check results.
type GateStrategy struct {
	Kind        GateStrategyKind `json:"kind"`
	MaxWarnings int              `json:"max_warnings,omitempty"`
	Rule        string           `json:"rule,omitempty"`
}

// QualityOverallStatus summarizes all checks for a task.
type QualityOverallStatus string

const (
	QualityNotChecked         QualityOverallStatus = "not_checked"
	QualityOverallPassed      QualityOverallStatus = "passed"
	QualityPassedWithWarnings QualityOverallStatus = "passed_with_warnings"
	QualityOverallFailed      QualityOverallStatus = "failed"
	QualityPendingReview      QualityOverallStatus = "pending_review"
)

// QualityStatus is the per-task quality summary used by listings.
type QualityStatus struct {
	TaskID             TaskID               `json:"task_id"`
	TotalChecks        int                  `json:"total_checks"`
	PassedChecks       int                  `json:"passed_checks"`
	FailedChecks       int                  `json:"failed_checks"`
	Warnings           int                  `json:"warnings"`
	OverallStatus      QualityOverallStatus `json:"overall_status"`
	PendingHumanReview bool                 `json:"pending_human_review"`
}
