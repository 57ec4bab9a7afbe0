package quality

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

// defaultReviewTimeout bounds how long a review may stay unanswered.
const defaultReviewTimeout = 24 * time.Hour

// NotificationChannel delivers a review request out of band. Delivery
// acceptance is success; end-to-end delivery is not tracked.
type NotificationChannel interface {
	Send(ctx context.Context, subject, body string) error
}

// ConsoleChannel prints review requests to stdout.
type ConsoleChannel struct{}

func (ConsoleChannel) Send(_ context.Context, subject, body string) error {
	fmt.Printf("=== %s ===\n%s\n", subject, body)
	return nil
}

// ReviewRequest is one dispatched human review awaiting answers.
type ReviewRequest struct {
	CheckID     models.QualityCheckID
	CheckName   string
	Spec        models.HumanReviewSpec
	RequestedAt time.Time
}

// Expired reports whether the request has outlived its timeout.
func (r *ReviewRequest) Expired(now time.Time) bool {
	timeout := r.Spec.Timeout
	if timeout == 0 {
		timeout = defaultReviewTimeout
	}
	return now.Sub(r.RequestedAt) > timeout
}

// RequestReview formats and dispatches a review notification.
func RequestReview(ctx context.Context, channel NotificationChannel, check *models.QualityCheck, spec models.HumanReviewSpec) (*ReviewRequest, error) {
	body := formatReviewBody(check, spec)
	subject := fmt.Sprintf("人工审查请求: %s", check.Name)
	if err := channel.Send(ctx, subject, body); err != nil {
		return nil, fmt.Errorf("dispatching review for %s: %w", check.Name, err)
	}
	return &ReviewRequest{
		CheckID:     check.ID,
		CheckName:   check.Name,
		Spec:        spec,
		RequestedAt: time.Now(),
	}, nil
}

func formatReviewBody(check *models.QualityCheck, spec models.HumanReviewSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "检查项: %s\n", check.Name)
	if check.Description != "" {
		fmt.Fprintf(&b, "说明: %s\n", check.Description)
	}
	if spec.ReviewGuide != "" {
		fmt.Fprintf(&b, "审查指南: %s\n", spec.ReviewGuide)
	}
	if len(spec.Reviewers) > 0 {
		fmt.Fprintf(&b, "审查人: %s\n", strings.Join(spec.Reviewers, ", "))
	}
	b.WriteString("审查问题:\n")
	for i, q := range spec.ReviewForm {
		required := ""
		if q.Required {
			required = " (必答)"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, q.Question, required)
	}
	return b.String()
}

// EvaluateReview judges a completed review against the form: any
// required yes/no question answered no, or any required rating below 3,
// rejects the review.
func EvaluateReview(spec models.HumanReviewSpec, result *models.HumanReviewResult) bool {
	byQuestion := make(map[string]models.AnswerValue, len(result.Answers))
	for _, a := range result.Answers {
		byQuestion[a.Question] = a.Answer
	}

	for _, q := range spec.ReviewForm {
		if !q.Required {
			continue
		}
		answer, ok := byQuestion[q.Question]
		if !ok {
			return false
		}
		switch q.AnswerType.Kind {
		case models.AnswerYesNo:
			if !answer.YesNo {
				return false
			}
		case models.AnswerRating:
			if answer.Rating < 3 {
				return false
			}
		}
	}
	return true
}

// CompleteReview attaches the evaluated review to a check result.
func CompleteReview(result *models.QualityCheckResult, spec models.HumanReviewSpec, review *models.HumanReviewResult) {
	review.Approved = EvaluateReview(spec, review)
	result.HumanReview = review
	if !review.Approved {
		result.Passed = false
		result.Findings = append(result.Findings, models.Finding{
			Severity: models.SeverityError,
			Category: models.CategoryBusiness,
			Message:  fmt.Sprintf("人工审查未通过 (审查人: %s)", review.Reviewer),
		})
	}
}
