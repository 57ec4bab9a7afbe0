package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devman-ai/devman/pkg/models"
)

// statusOrder lists statuses in the order the overview prints them.
var statusOrder = []models.TaskStatus{
	models.StatusActive,
	models.StatusBlocked,
	models.StatusReview,
	models.StatusQueued,
	models.StatusIdea,
	models.StatusDone,
	models.StatusAbandoned,
}

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Overview of all tasks grouped by status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		tasks, err := Work.ListTasks(ctx, models.TaskFilter{})
		if err != nil {
			return err
		}

		groups := make(map[models.TaskStatus][]*models.Task)
		for _, t := range tasks {
			groups[t.Status] = append(groups[t.Status], t)
		}

		if statusJSON {
			counts := make(map[models.TaskStatus]int, len(groups))
			for status, g := range groups {
				counts[status] = len(g)
			}
			return printJSON(cmd, map[string]any{
				"total":  len(tasks),
				"counts": counts,
			})
		}

		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks yet. Create one with: devman task create <title>")
			return nil
		}
		fmt.Fprintf(out, "%d tasks\n", len(tasks))
		for _, status := range statusOrder {
			printStatusGroup(cmd, status, groups[status])
		}

		analysis, err := Blockers.DetectAndAnalyze(ctx)
		if err != nil {
			return err
		}
		if analysis.Stats.TotalBlockers > 0 {
			fmt.Fprintf(out, "\n%d blockers detected (run 'devman blockers' for detail)\n", analysis.Stats.TotalBlockers)
		}
		return nil
	},
}

func printStatusGroup(cmd *cobra.Command, status models.TaskStatus, tasks []*models.Task) {
	if len(tasks) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s (%d)\n", status, len(tasks))
	for _, t := range tasks {
		line := fmt.Sprintf("  %s  %-18s %s", t.ID, t.State.Kind, t.Title)
		if t.Progress.TotalSteps > 0 {
			line += fmt.Sprintf("  [%.0f%%]", t.Progress.Percentage)
		}
		fmt.Fprintln(out, line)
	}
}

var blockersCmd = &cobra.Command{
	Use:   "blockers",
	Short: "Detect blocked tasks and suggest resolutions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		analysis, err := Blockers.DetectAndAnalyze(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if analysis.Stats.TotalBlockers == 0 {
			fmt.Fprintln(out, "No blockers detected.")
			return nil
		}
		fmt.Fprintf(out, "%d blockers\n", analysis.Stats.TotalBlockers)
		for _, b := range analysis.Blockers {
			fmt.Fprintf(out, "  [%s] %s: %s\n", b.Severity, b.BlockedItem.TaskID, b.Reason)
		}
		if len(analysis.CircularChains) > 0 {
			fmt.Fprintln(out, "Circular dependency chains:")
			for _, chain := range analysis.CircularChains {
				for i, id := range chain {
					if i > 0 {
						fmt.Fprint(out, " -> ")
					}
					fmt.Fprint(out, id)
				}
				fmt.Fprintln(out)
			}
		}
		if len(analysis.Suggestions) > 0 {
			fmt.Fprintln(out, "Suggestions:")
			for _, s := range analysis.Suggestions {
				fmt.Fprintf(out, "  - [%d] %s: %s\n", s.Priority, s.Action, s.Description)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output counts as JSON")
	rootCmd.AddCommand(statusCmd, blockersCmd)
}
