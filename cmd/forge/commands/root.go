package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forge",
		Short: "FirmForge - Firmware Configuration Compiler",
		Long: `FirmForge compiles declarative YAML firmware configuration into
C++ headers for embedded targets.

Features:
  - Fragmented YAML configs merged per domain (tasks, packet, commands)
  - CUE schema validation with attributable findings
  - Deterministic hash-based topic identifier allocation
  - Template-driven header emission with override support
  - Merged-document mirrors for audit and debugging
  - Optional SQLite run ledger`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newTopicsCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}
