package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Throughput and quality metrics from the event log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		window, err := parseSinceDuration(metricsSince)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		m, err := MetricsCalc.Calculate(now.Add(-window), now)
		if err != nil {
			return err
		}
		if metricsJSON {
			return printJSON(cmd, m)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Window: last %s (%d events)\n", metricsSince, m.EventCount)
		fmt.Fprintf(out, "Tasks created:    %d\n", m.TasksCreated)
		fmt.Fprintf(out, "Tasks completed:  %d\n", m.TasksCompleted)
		fmt.Fprintf(out, "Tasks abandoned:  %d\n", m.TasksAbandoned)
		fmt.Fprintf(out, "Quality gates:    %d passed, %d failed\n", m.QualityGatesPassed, m.QualityGatesFailed)
		fmt.Fprintf(out, "Knowledge used:   %d\n", m.KnowledgeUsed)
		if len(m.TransitionsByState) > 0 {
			fmt.Fprintln(out, "Transitions:")
			for state, n := range m.TransitionsByState {
				fmt.Fprintf(out, "  %-20s %d\n", state, n)
			}
		}
		return nil
	},
}

// parseSinceDuration accepts "7d", "24h", or any time.ParseDuration form.
func parseSinceDuration(s string) (time.Duration, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%dd", &n); err == nil && n > 0 {
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --since %q: use 7d, 24h or a Go duration", s)
	}
	return d, nil
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Evaluate alert conditions against the event log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}
		for _, a := range alerts {
			fmt.Fprintf(out, "[%s] %s\n", strings.ToUpper(string(a.Severity)), a.Message)
			fmt.Fprintf(out, "        triggered at %s\n", a.TriggeredAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "output as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "window to aggregate over")
	rootCmd.AddCommand(metricsCmd, alertsCmd)
}
