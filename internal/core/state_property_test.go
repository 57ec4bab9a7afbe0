package core

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/devman-ai/devman/pkg/models"
)

// stateOfKind builds a well-formed state for the given kind.
func stateOfKind(kind models.StateKind) models.TaskState {
	switch kind {
	case models.StateCreated:
		return models.NewCreatedState("prop")
	case models.StateContextRead:
		return models.NewContextReadState()
	case models.StateKnowledgeReviewed:
		return models.NewKnowledgeReviewedState([]models.KnowledgeID{models.NewKnowledgeID()})
	case models.StateInProgress:
		return models.NewInProgressState()
	case models.StateWorkRecorded:
		return models.NewWorkRecordedState(models.NewWorkRecordID())
	case models.StateQualityChecking:
		return models.NewQualityCheckingState(models.NewQualityCheckID())
	case models.StateQualityCompleted:
		return models.NewQualityCompletedState(models.TaskQualityCheckResult{
			OverallStatus: models.QualityOverallPassed,
		})
	case models.StateCompleted:
		return models.NewCompletedState("prop")
	case models.StateAbandoned:
		return models.NewAbandonedState(models.AbandonReason{Kind: models.AbandonOther, Reason: "prop"})
	}
	panic("unreachable")
}

var pausableKinds = []models.StateKind{
	models.StateCreated, models.StateContextRead, models.StateKnowledgeReviewed,
	models.StateInProgress, models.StateWorkRecorded, models.StateQualityChecking,
	models.StateQualityCompleted,
}

func TestPauseResumeRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		kind := rapid.SampledFrom(pausableKinds).Draw(rt, "kind")
		original := stateOfKind(kind)
		paused := models.NewPausedState(rapid.StringMatching(`[a-z ]{1,30}`).Draw(rt, "reason"), original)

		if v := ValidateTransition(original, paused, NewTransitionContext("prop")); !v.Allowed {
			rt.Fatalf("pausing %s rejected: %s", kind, v.Guidance)
		}

		// Resuming to the wrapped kind is the only permitted resume.
		if v := ValidateTransition(paused, stateOfKind(kind), NewTransitionContext("prop")); !v.Allowed {
			rt.Fatalf("resume to %s rejected: %s", kind, v.Guidance)
		}
		other := rapid.SampledFrom(pausableKinds).Draw(rt, "other")
		if other != kind {
			if v := ValidateTransition(paused, stateOfKind(other), NewTransitionContext("prop")); v.Allowed {
				rt.Fatalf("resume from paused %s to %s should be rejected", kind, other)
			}
		}
	})
}

func TestAbandonEscapeHatchProperty(t *testing.T) {
	abandoned := models.NewAbandonedState(models.AbandonReason{Kind: models.AbandonOther, Reason: "prop"})
	rapid.Check(t, func(rt *rapid.T) {
		kind := rapid.SampledFrom(pausableKinds).Draw(rt, "kind")
		from := stateOfKind(kind)

		with := ValidateTransition(from, abandoned, NewTransitionContext("prop").WithPermissions("abandon"))
		if !with.Allowed {
			rt.Fatalf("abandon from %s with permission rejected: %s", kind, with.Guidance)
		}
		without := ValidateTransition(from, abandoned, NewTransitionContext("prop"))
		if without.Allowed {
			rt.Fatalf("abandon from %s without permission allowed", kind)
		}
	})
}
