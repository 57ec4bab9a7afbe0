// Package cli implements the devman command-line interface. Commands
// operate on service singletons assigned by the app wiring before
// Execute runs.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devman-ai/devman/internal/core"
	"github.com/devman-ai/devman/internal/jobs"
	"github.com/devman-ai/devman/internal/knowledge"
	"github.com/devman-ai/devman/internal/observability"
	"github.com/devman-ai/devman/internal/progress"
	"github.com/devman-ai/devman/internal/quality"
	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/internal/tools"
	"github.com/devman-ai/devman/internal/work"
)

// Service singletons shared by all commands. The app package assigns
// these through Connect before any command body runs.
var (
	Cfg         *core.Config
	Store       storage.Storage
	Work        *work.Manager
	Knowledge   knowledge.Service
	Searcher    *knowledge.HybridSearcher
	Quality     *quality.Engine
	Jobs        *jobs.Manager
	Tracker     *progress.Tracker
	Blockers    *progress.BlockerDetector
	Executor    tools.Executor
	EventLog    observability.EventLog
	MetricsCalc *observability.MetricsCalculator
	AlertEngine observability.AlertEngine
)

// Connect wires the service singletons for the resolved storage root.
// The app package installs it; commands that only print static
// information skip it.
var Connect func(flagRoot string) error

var storageRoot string

var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersionInfo records build metadata injected through ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
}

var rootCmd = &cobra.Command{
	Use:   "devman",
	Short: "Cognitive work-management engine for AI-assisted development",
	Long: `devman tracks development tasks through an explicit cognitive
lifecycle: context is read, knowledge is reviewed, work is recorded, and
quality is checked before a task may complete. State lives under a
storage root shared by the CLI and the MCP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if !needsServices(cmd) {
			return nil
		}
		if Connect == nil {
			return fmt.Errorf("cli services are not wired")
		}
		return Connect(storageRoot)
	},
}

// needsServices reports whether a command touches the storage root.
func needsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return false
	}
	return true
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "devman %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storageRoot, "storage-root", "", "storage root directory (overrides DEVMAN_STORAGE_ROOT and .devman.yaml)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
