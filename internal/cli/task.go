package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devman-ai/devman/internal/core"
	"github.com/devman-ai/devman/internal/quality"
	"github.com/devman-ai/devman/internal/work"
	"github.com/devman-ai/devman/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create and drive tasks through their lifecycle",
}

var (
	taskCreateDescription string
	taskCreatePhase       string
	taskCreateDepends     []string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := work.TaskSpec{
			Title:       args[0],
			Description: taskCreateDescription,
		}
		if taskCreatePhase != "" {
			id, err := models.ParsePhaseID(taskCreatePhase)
			if err != nil {
				return err
			}
			spec.PhaseID = id
		}
		for _, raw := range taskCreateDepends {
			id, err := models.ParseTaskID(raw)
			if err != nil {
				return err
			}
			spec.DependsOn = append(spec.DependsOn, id)
		}
		task, err := Work.CreateTask(cmd.Context(), spec)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s\n", task.ID, task.Title)
		return nil
	},
}

var taskListStatuses []string

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var filter models.TaskFilter
		for _, s := range taskListStatuses {
			filter.Statuses = append(filter.Statuses, models.TaskStatus(s))
		}
		tasks, err := Work.ListTasks(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
			return nil
		}
		for _, t := range tasks {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s %-18s %s\n", t.ID, t.Status, t.State.Kind, t.Title)
		}
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		task, err := Work.GetTask(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Task:    %s\n", task.ID)
		fmt.Fprintf(out, "Title:   %s\n", task.Title)
		fmt.Fprintf(out, "Status:  %s\n", task.Status)
		fmt.Fprintf(out, "State:   %s\n", task.State.Kind)
		if task.Description != "" {
			fmt.Fprintf(out, "About:   %s\n", task.Description)
		}
		if task.PhaseID != "" {
			fmt.Fprintf(out, "Phase:   %s\n", task.PhaseID)
		}
		if len(task.DependsOn) > 0 {
			deps := make([]string, len(task.DependsOn))
			for i, d := range task.DependsOn {
				deps[i] = d.String()
			}
			fmt.Fprintf(out, "Depends: %s\n", strings.Join(deps, ", "))
		}
		if task.Progress.TotalSteps > 0 {
			fmt.Fprintf(out, "Progress: %.0f%% (step %d/%d)\n",
				task.Progress.Percentage, task.Progress.CurrentStep, task.Progress.TotalSteps)
		}
		for _, gate := range task.QualityGates {
			fmt.Fprintf(out, "Gate:    %s (%d checks, %v)\n", gate.Name, len(gate.Checks), gate.PassCondition)
		}
		return nil
	},
}

var taskGuidanceCmd = &cobra.Command{
	Use:   "guidance <task-id>",
	Short: "Show what to do next for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		g, err := Work.Guidance(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "State:       %s\n", g.CurrentState.Kind)
		fmt.Fprintf(out, "Next action: %s\n", g.NextAction.Kind)
		if g.NextAction.Reason != "" {
			fmt.Fprintf(out, "Reason:      %s\n", g.NextAction.Reason)
		}
		fmt.Fprintf(out, "Guidance:    %s\n", g.GuidanceMessage)
		if len(g.NextAction.SuggestedQueries) > 0 {
			fmt.Fprintln(out, "Suggested knowledge queries:")
			for _, q := range g.NextAction.SuggestedQueries {
				fmt.Fprintf(out, "  - %s\n", q)
			}
		}
		if len(g.MissingPrerequisites) > 0 {
			fmt.Fprintln(out, "Missing prerequisites:")
			for _, p := range g.MissingPrerequisites {
				fmt.Fprintf(out, "  - %s\n", p)
			}
		}
		if len(g.AllowedOperations) > 0 {
			fmt.Fprintf(out, "Allowed operations: %s\n", strings.Join(g.AllowedOperations, ", "))
		}
		return nil
	},
}

var taskReadContextCmd = &cobra.Command{
	Use:   "read-context <task-id>",
	Short: "Confirm the task context has been read",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunE(func(cmd *cobra.Command, id models.TaskID) (*models.Task, error) {
		return Work.ReadContext(cmd.Context(), id)
	}),
}

var taskConfirmKnowledgeCmd = &cobra.Command{
	Use:   "confirm-knowledge <task-id> <knowledge-id>...",
	Short: "Confirm which knowledge entries were reviewed",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		var kids []models.KnowledgeID
		for _, raw := range args[1:] {
			kid, err := models.ParseKnowledgeID(raw)
			if err != nil {
				return err
			}
			kids = append(kids, kid)
		}
		task, err := Work.ConfirmKnowledgeReviewed(cmd.Context(), id, kids)
		if err != nil {
			return describeConflict(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", task.ID, task.State.Kind)
		return nil
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Start executing a task",
	Args:  cobra.ExactArgs(1),
	RunE: transitionRunE(func(cmd *cobra.Command, id models.TaskID) (*models.Task, error) {
		return Work.StartExecution(cmd.Context(), id)
	}),
}

var taskLogType string

var taskLogWorkCmd = &cobra.Command{
	Use:   "log-work <task-id> <message>",
	Short: "Record a work log entry on the active task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		if err := Work.LogWork(cmd.Context(), id, models.WorkEventType(taskLogType), args[1]); err != nil {
			return describeConflict(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged.")
		return nil
	},
}

var taskFinishWorkCmd = &cobra.Command{
	Use:   "finish-work <task-id> <summary>",
	Short: "Mark the work on a task as recorded",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		task, err := Work.FinishWork(cmd.Context(), id, args[1])
		if err != nil {
			return describeConflict(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", task.ID, task.State.Kind)
		return nil
	},
}

var taskCheckWorkDir string

var taskCheckCmd = &cobra.Command{
	Use:   "check <task-id>",
	Short: "Run the task's quality gates and record the verdict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		task, err := Work.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if _, err := Work.RunQualityCheck(ctx, id); err != nil {
			return describeConflict(err)
		}

		var checks []*models.QualityCheck
		for _, gate := range task.QualityGates {
			for _, cid := range gate.Checks {
				check, err := Store.LoadQualityCheck(ctx, cid)
				if err != nil {
					return fmt.Errorf("loading check %s: %w", cid, err)
				}
				checks = append(checks, check)
			}
		}
		results, err := Quality.RunChecks(ctx, checks, quality.CheckContext{
			TaskID:  id,
			WorkDir: taskCheckWorkDir,
		})
		if err != nil {
			return err
		}
		status := quality.Summarize(id, results)

		out := cmd.OutOrStdout()
		names := make(map[models.QualityCheckID]string, len(checks))
		for _, c := range checks {
			names[c.ID] = c.Name
		}
		for _, r := range results {
			verdict := "FAIL"
			if r.Passed {
				verdict = "PASS"
			}
			fmt.Fprintf(out, "  [%s] %s\n", verdict, names[r.CheckID])
		}
		fmt.Fprintf(out, "Verdict: %s (%d/%d passed, %d warnings)\n",
			status.OverallStatus, status.PassedChecks, status.TotalChecks, status.Warnings)

		task, err = Work.CompleteQualityCheck(ctx, id, models.TaskQualityCheckResult{
			OverallStatus: status.OverallStatus,
			FindingsCount: status.FailedChecks,
			WarningsCount: status.Warnings,
		})
		if err != nil {
			return describeConflict(err)
		}
		fmt.Fprintf(out, "%s -> %s\n", task.ID, task.State.Kind)
		return nil
	},
}

var (
	taskExecuteKind  string
	taskExecuteModel string
	taskExecuteName  string
)

var taskExecuteCmd = &cobra.Command{
	Use:   "execute <task-id>",
	Short: "Run the task's execution steps through the tool executor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		executor := models.Executor{
			Kind:  models.ExecutorKind(taskExecuteKind),
			Model: taskExecuteModel,
			Name:  taskExecuteName,
		}
		record, err := Work.ExecuteTask(cmd.Context(), id, executor)
		if err != nil {
			return describeConflict(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Work record %s: %s\n", record.ID, record.Result.Status)
		for _, e := range record.Events {
			fmt.Fprintf(out, "  %s %s\n", e.EventType, e.Description)
		}
		return nil
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Complete a task that passed its quality gates",
	Args:  cobra.ExactArgs(1),
	RunE: transitionRunE(func(cmd *cobra.Command, id models.TaskID) (*models.Task, error) {
		return Work.Complete(cmd.Context(), id)
	}),
}

var taskPauseReason string

var taskPauseCmd = &cobra.Command{
	Use:   "pause <task-id>",
	Short: "Pause a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		task, err := Work.Pause(cmd.Context(), id, taskPauseReason)
		if err != nil {
			return describeConflict(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s paused\n", task.ID)
		return nil
	},
}

var taskResumeCmd = &cobra.Command{
	Use:   "resume <task-id>",
	Short: "Resume a paused task",
	Args:  cobra.ExactArgs(1),
	RunE: transitionRunE(func(cmd *cobra.Command, id models.TaskID) (*models.Task, error) {
		return Work.Resume(cmd.Context(), id)
	}),
}

var (
	taskAbandonKind    string
	taskAbandonDetails string
)

var taskAbandonCmd = &cobra.Command{
	Use:   "abandon <task-id> <reason>",
	Short: "Abandon a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		reason := models.AbandonReason{
			Kind:    models.AbandonKind(taskAbandonKind),
			Reason:  args[1],
			Details: taskAbandonDetails,
		}
		task, err := Work.Abandon(cmd.Context(), id, reason, abandonContext())
		if err != nil {
			return describeConflict(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s abandoned\n", task.ID)
		return nil
	},
}

// transitionRunE adapts a single-ID lifecycle call into a cobra RunE.
func transitionRunE(fn func(*cobra.Command, models.TaskID) (*models.Task, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseTaskID(args[0])
		if err != nil {
			return err
		}
		task, err := fn(cmd, id)
		if err != nil {
			return describeConflict(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", task.ID, task.State.Kind)
		return nil
	}
}

// abandonContext carries the permission the abandon transition checks.
func abandonContext() core.TransitionContext {
	return core.NewTransitionContext(Cfg.Caller).WithPermissions("abandon")
}

// describeConflict augments state conflicts with the engine's guidance
// so the operator sees the required action, not just a refusal.
func describeConflict(err error) error {
	var conflict *work.StateConflictError
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w\n  required action: %s\n  %s", err, conflict.RequiredAction, conflict.Guidance)
	}
	return err
}

// printJSON is shared by commands with a --json flag.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	taskCreateCmd.Flags().StringVarP(&taskCreateDescription, "description", "d", "", "task description")
	taskCreateCmd.Flags().StringVar(&taskCreatePhase, "phase", "", "phase the task belongs to")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateDepends, "depends", nil, "task IDs this task depends on")
	taskListCmd.Flags().StringSliceVar(&taskListStatuses, "status", nil, "filter by status (idea, queued, active, blocked, review, done, abandoned)")
	taskLogWorkCmd.Flags().StringVar(&taskLogType, "type", string(models.WorkEventStepCompleted), "work event type")
	taskCheckCmd.Flags().StringVar(&taskCheckWorkDir, "workdir", "", "directory the checks run in")
	taskExecuteCmd.Flags().StringVar(&taskExecuteKind, "executor-kind", string(models.ExecutorHuman), "executor kind (ai, human, hybrid)")
	taskExecuteCmd.Flags().StringVar(&taskExecuteModel, "executor-model", "", "model name when the executor is an AI")
	taskExecuteCmd.Flags().StringVar(&taskExecuteName, "executor-name", "", "executor display name")
	taskPauseCmd.Flags().StringVarP(&taskPauseReason, "reason", "r", "", "why the task is paused")
	taskAbandonCmd.Flags().StringVar(&taskAbandonKind, "kind", string(models.AbandonOther), "abandon kind (technical_blocker, requirement_changed, duplicate, no_longer_needed, other)")
	taskAbandonCmd.Flags().StringVar(&taskAbandonDetails, "details", "", "extra detail for the record")

	taskCmd.AddCommand(taskCreateCmd, taskListCmd, taskShowCmd, taskGuidanceCmd,
		taskReadContextCmd, taskConfirmKnowledgeCmd, taskStartCmd, taskLogWorkCmd,
		taskFinishWorkCmd, taskCheckCmd, taskExecuteCmd, taskCompleteCmd, taskPauseCmd,
		taskResumeCmd, taskAbandonCmd)
	rootCmd.AddCommand(taskCmd)
}
