package quality

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

type recordingChannel struct {
	subject string
	body    string
}

func (c *recordingChannel) Send(_ context.Context, subject, body string) error {
	c.subject = subject
	c.body = body
	return nil
}

func reviewSpec() models.HumanReviewSpec {
	return models.HumanReviewSpec{
		Reviewers:   []string{"alice"},
		ReviewGuide: "check the API surface",
		ReviewForm: []models.ReviewQuestion{
			{Question: "Is the API backward compatible?", AnswerType: models.AnswerType{Kind: models.AnswerYesNo}, Required: true},
			{Question: "Rate the code quality", AnswerType: models.AnswerType{Kind: models.AnswerRating, Min: 1, Max: 5}, Required: true},
			{Question: "Additional comments", AnswerType: models.AnswerType{Kind: models.AnswerText}},
		},
	}
}

func TestRequestReview_DispatchesNotification(t *testing.T) {
	channel := &recordingChannel{}
	check := &models.QualityCheck{
		ID:   models.NewQualityCheckID(),
		Name: "api review",
	}

	request, err := RequestReview(context.Background(), channel, check, reviewSpec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(channel.subject, "api review") {
		t.Fatalf("expected subject to name the check, got %q", channel.subject)
	}
	if !strings.Contains(channel.body, "Is the API backward compatible?") {
		t.Fatalf("expected body to list questions, got %q", channel.body)
	}
	if request.Expired(time.Now()) {
		t.Fatal("fresh request must not be expired")
	}
	if !request.Expired(time.Now().Add(25 * time.Hour)) {
		t.Fatal("request must expire after the default 24h")
	}
}

func TestEvaluateReview(t *testing.T) {
	spec := reviewSpec()

	approved := &models.HumanReviewResult{
		Reviewer: "alice",
		Answers: []models.ReviewAnswer{
			{Question: spec.ReviewForm[0].Question, Answer: models.AnswerValue{Kind: models.AnswerYesNo, YesNo: true}},
			{Question: spec.ReviewForm[1].Question, Answer: models.AnswerValue{Kind: models.AnswerRating, Rating: 4}},
		},
	}
	if !EvaluateReview(spec, approved) {
		t.Fatal("expected approval")
	}

	noAnswer := &models.HumanReviewResult{Reviewer: "alice"}
	if EvaluateReview(spec, noAnswer) {
		t.Fatal("expected rejection when required answers are missing")
	}

	saidNo := &models.HumanReviewResult{
		Reviewer: "alice",
		Answers: []models.ReviewAnswer{
			{Question: spec.ReviewForm[0].Question, Answer: models.AnswerValue{Kind: models.AnswerYesNo, YesNo: false}},
			{Question: spec.ReviewForm[1].Question, Answer: models.AnswerValue{Kind: models.AnswerRating, Rating: 5}},
		},
	}
	if EvaluateReview(spec, saidNo) {
		t.Fatal("expected rejection when a required yes/no is answered no")
	}

	lowRating := &models.HumanReviewResult{
		Reviewer: "alice",
		Answers: []models.ReviewAnswer{
			{Question: spec.ReviewForm[0].Question, Answer: models.AnswerValue{Kind: models.AnswerYesNo, YesNo: true}},
			{Question: spec.ReviewForm[1].Question, Answer: models.AnswerValue{Kind: models.AnswerRating, Rating: 2}},
		},
	}
	if EvaluateReview(spec, lowRating) {
		t.Fatal("expected rejection when a required rating is below 3")
	}
}

func TestCompleteReview_RejectionFailsResult(t *testing.T) {
	spec := reviewSpec()
	result := &models.QualityCheckResult{Passed: true}

	review := &models.HumanReviewResult{
		Reviewer: "alice",
		Answers: []models.ReviewAnswer{
			{Question: spec.ReviewForm[0].Question, Answer: models.AnswerValue{Kind: models.AnswerYesNo, YesNo: false}},
			{Question: spec.ReviewForm[1].Question, Answer: models.AnswerValue{Kind: models.AnswerRating, Rating: 4}},
		},
	}
	CompleteReview(result, spec, review)

	if result.HumanReview == nil || result.HumanReview.Approved {
		t.Fatal("expected an unapproved review to be attached")
	}
	if result.Passed {
		t.Fatal("expected rejection to fail the result")
	}
}
