package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Provision the storage root and seed .devman.yaml",
	Long: `Init creates the storage layout under the configured root and
writes a .devman.yaml in the current directory when none exists. The
root comes from --storage-root or DEVMAN_STORAGE_ROOT.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Connect already provisioned the backend under the root.
		path := filepath.Join(".", ".devman.yaml")
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Storage ready at %s (.devman.yaml already present)\n", Cfg.Storage.Root)
			return nil
		}
		seed := map[string]any{
			"storage": map[string]any{
				"root":    Cfg.Storage.Root,
				"backend": Cfg.Storage.Backend,
			},
			"caller": Cfg.Caller,
			"embedding": map[string]any{
				"enabled": Cfg.Embedding.Enabled,
			},
		}
		data, err := yaml.Marshal(seed)
		if err != nil {
			return fmt.Errorf("encoding .devman.yaml: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing .devman.yaml: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Storage ready at %s\n", Cfg.Storage.Root)
		fmt.Fprintln(cmd.OutOrStdout(), "Wrote .devman.yaml")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
