package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devman-ai/devman/pkg/models"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage goals and track their progress",
}

var (
	goalCreateDescription string
	goalCreateCriteria    []string
)

var goalCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		goal := &models.Goal{
			ID:          models.NewGoalID(),
			Title:       args[0],
			Description: goalCreateDescription,
			Status:      models.GoalActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for _, c := range goalCreateCriteria {
			goal.SuccessCriteria = append(goal.SuccessCriteria, models.SuccessCriterion{
				ID:           models.NewCriterionID(),
				Description:  c,
				Verification: models.VerificationMethod{Kind: models.VerifyManual},
				Status:       models.CriterionNotStarted,
			})
		}
		if err := Store.SaveGoal(cmd.Context(), goal); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s\n", goal.ID, goal.Title)
		return nil
	},
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		goals, err := Store.ListGoals(cmd.Context())
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No goals found.")
			return nil
		}
		for _, g := range goals {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s %3.0f%%  %s\n", g.ID, g.Status, g.Progress.Percentage, g.Title)
		}
		return nil
	},
}

var goalProgressCmd = &cobra.Command{
	Use:   "progress <goal-id>",
	Short: "Recompute and show a goal's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := models.ParseGoalID(args[0])
		if err != nil {
			return err
		}
		p, err := Tracker.GoalProgress(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Progress:         %.0f%%\n", p.Percentage)
		fmt.Fprintf(out, "Active tasks:     %d\n", p.ActiveTasks)
		fmt.Fprintf(out, "Completed tasks:  %d\n", p.CompletedTasks)
		fmt.Fprintf(out, "Completed phases: %d\n", len(p.CompletedPhases))
		if len(p.Blockers) > 0 {
			fmt.Fprintf(out, "Blockers:        %d\n", len(p.Blockers))
		}
		return nil
	},
}

func init() {
	goalCreateCmd.Flags().StringVarP(&goalCreateDescription, "description", "d", "", "goal description")
	goalCreateCmd.Flags().StringSliceVar(&goalCreateCriteria, "criteria", nil, "success criteria, one per flag occurrence")

	goalCmd.AddCommand(goalCreateCmd, goalListCmd, goalProgressCmd)
	rootCmd.AddCommand(goalCmd)
}
