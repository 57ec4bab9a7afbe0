// Package core contains the business logic for devman: the task state
// machine, guidance generation, identifier helpers, and configuration.
package core

import (
	"fmt"

	"github.com/devman-ai/devman/pkg/models"
)

// TransitionContext carries who is asking for a transition and what they
// are allowed to do. Recognized permissions: "abandon", "cancel",
// "change_goal", and the wildcard "*". Unknown permissions are ignored.
type TransitionContext struct {
	Caller      string
	Permissions []string
	Reason      string
}

// NewTransitionContext creates a context with no permissions.
func NewTransitionContext(caller string) TransitionContext {
	return TransitionContext{Caller: caller}
}

// WithPermissions returns a copy carrying the given permissions.
func (c TransitionContext) WithPermissions(perms ...string) TransitionContext {
	c.Permissions = perms
	return c
}

func (c TransitionContext) hasPermission(name string) bool {
	for _, p := range c.Permissions {
		if p == name || p == "*" {
			return true
		}
	}
	return false
}

// CanAbandon reports whether the caller may abandon tasks.
func (c TransitionContext) CanAbandon() bool { return c.hasPermission("abandon") }

// CanCancel reports whether the caller may cancel running jobs.
func (c TransitionContext) CanCancel() bool { return c.hasPermission("cancel") }

// CanChangeGoal reports whether the caller may reassign goals.
func (c TransitionContext) CanChangeGoal() bool { return c.hasPermission("change_goal") }

// Transition is the guard's verdict on a proposed state change.
type Transition struct {
	Allowed bool
	// RequiredAction and Guidance are set only on rejection.
	RequiredAction string
	Guidance       string
}

// Allowed is the accepting verdict.
var allowed = Transition{Allowed: true}

func rejected(action, guidance string) Transition {
	return Transition{RequiredAction: action, Guidance: guidance}
}

// ValidateTransition is the pure transition guard. It never mutates; a
// rejection carries the action the caller must take first and a guidance
// message. Any pair not matched below is rejected.
func ValidateTransition(current, proposed models.TaskState, ctx TransitionContext) Transition {
	// Resume: Paused goes back to exactly the variant it wrapped.
	// This arm also rejects Paused → Abandoned and Paused → Paused.
	if current.Kind == models.StatePaused {
		prev := current.PreviousState
		if prev != nil && prev.Kind == proposed.Kind {
			return allowed
		}
		prevKind := models.StateKind("?")
		if prev != nil {
			prevKind = prev.Kind
		}
		return rejected(
			fmt.Sprintf("恢复到 %s", proposed.Kind),
			fmt.Sprintf("只能恢复到暂停前的状态: %s", prevKind),
		)
	}

	// Pause: any pausable state wraps itself.
	if proposed.Kind == models.StatePaused {
		if current.IsPausable() {
			return allowed
		}
		return rejected(
			fmt.Sprintf("%s → %s", current.Kind, proposed.Kind),
			StateGuidance(current),
		)
	}

	// Abandon: permission-gated escape hatch from any non-terminal state.
	if proposed.Kind == models.StateAbandoned {
		if current.IsTerminal() {
			return rejected(
				fmt.Sprintf("%s → %s", current.Kind, proposed.Kind),
				StateGuidance(current),
			)
		}
		if ctx.CanAbandon() {
			return allowed
		}
		return rejected("放弃任务", "放弃任务需要提供详细原因")
	}

	switch {
	case current.Kind == models.StateCreated && proposed.Kind == models.StateContextRead:
		return allowed
	case current.Kind == models.StateContextRead && proposed.Kind == models.StateKnowledgeReviewed:
		return allowed
	case current.Kind == models.StateKnowledgeReviewed && proposed.Kind == models.StateInProgress:
		return allowed
	case current.Kind == models.StateInProgress && proposed.Kind == models.StateWorkRecorded:
		return allowed
	case current.Kind == models.StateWorkRecorded && proposed.Kind == models.StateQualityChecking:
		return allowed
	case current.Kind == models.StateQualityChecking && proposed.Kind == models.StateQualityCompleted:
		return allowed

	case current.Kind == models.StateQualityCompleted && proposed.Kind == models.StateCompleted:
		if current.Result != nil && current.Result.OverallStatus == models.QualityOverallPassed {
			return allowed
		}
		return rejected("修复质检问题", "质检未通过，请修复问题后重新质检或放弃任务")

	case current.Kind == models.StateQualityCompleted && proposed.Kind == models.StateInProgress:
		// Fix cycle: only a non-passing verdict sends work back.
		if current.Result != nil &&
			(current.Result.OverallStatus == models.QualityOverallFailed ||
				current.Result.OverallStatus == models.QualityPassedWithWarnings) {
			return allowed
		}
		return rejected(
			fmt.Sprintf("%s → %s", current.Kind, proposed.Kind),
			StateGuidance(current),
		)
	}

	return rejected(
		fmt.Sprintf("%s → %s", current.Kind, proposed.Kind),
		StateGuidance(current),
	)
}

// StateGuidance returns the advisory text for a state, shown to callers
// whose transition was rejected and embedded in guidance messages.
func StateGuidance(s models.TaskState) string {
	switch s.Kind {
	case models.StateCreated:
		return "使用 read_task_context() 读取任务上下文"
	case models.StateContextRead:
		return "使用 review_knowledge() 学习相关知识"
	case models.StateKnowledgeReviewed:
		return "使用 start_execution() 开始执行任务"
	case models.StateInProgress:
		return "使用 log_work() 记录当前进展"
	case models.StateWorkRecorded:
		return "使用 run_quality_check() 运行质量检查"
	case models.StateQualityChecking:
		return "质检进行中，请等待质检结果"
	case models.StateQualityCompleted:
		if s.Result != nil && s.Result.OverallStatus == models.QualityOverallPassed {
			return "质检通过，使用 complete_task() 完成任务"
		}
		return "质检未通过，请修复问题后重新质检或放弃任务"
	case models.StatePaused:
		return "任务已暂停，使用 resume_task() 恢复"
	case models.StateAbandoned:
		return "任务已放弃"
	case models.StateCompleted:
		return "任务已完成"
	}
	return ""
}

// AllowedOperations lists the tool operations valid in a state, in the
// order an agent should consider them.
func AllowedOperations(s models.TaskState) []string {
	switch s.Kind {
	case models.StateCreated:
		return []string{"read_task_context", "pause_task", "abandon_task"}
	case models.StateContextRead:
		return []string{"review_knowledge", "confirm_knowledge_reviewed", "pause_task", "abandon_task"}
	case models.StateKnowledgeReviewed:
		return []string{"start_execution", "pause_task", "abandon_task"}
	case models.StateInProgress:
		return []string{"log_work", "finish_work", "pause_task", "abandon_task"}
	case models.StateWorkRecorded:
		return []string{"run_quality_check", "pause_task", "abandon_task"}
	case models.StateQualityChecking:
		return []string{"get_quality_result", "pause_task", "abandon_task"}
	case models.StateQualityCompleted:
		if s.Result != nil && s.Result.OverallStatus == models.QualityOverallPassed {
			return []string{"complete_task", "pause_task", "abandon_task"}
		}
		return []string{"confirm_quality_result", "start_execution", "pause_task", "abandon_task"}
	case models.StatePaused:
		return []string{"resume_task"}
	case models.StateAbandoned, models.StateCompleted:
		return nil
	}
	return nil
}
