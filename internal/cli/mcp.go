package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/devman-ai/devman/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool surface over stdio",
	Long: `Serve speaks MCP on stdin/stdout so an AI client can drive the
engine. All diagnostics go to stderr; stdout carries only protocol
frames.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		srv := mcp.NewServer(mcp.Deps{
			Store:     Store,
			Work:      Work,
			Knowledge: Knowledge,
			Searcher:  Searcher,
			Quality:   Quality,
			Jobs:      Jobs,
			Tracker:   Tracker,
			Blockers:  Blockers,
			Executor:  Executor,
			Metrics:   MetricsCalc,
			Alerts:    AlertEngine,
			Caller:    Cfg.Caller,
		}, buildVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Fprintln(os.Stderr, "devman MCP server listening on stdio")
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
