package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/firmforge/firmforge/pkg/scan"
)

func newScanCommand() *cobra.Command {
	var extraRoots []string

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "List the configuration files a compile run would ingest",
		Long: `List the eligible configuration files in scan order.

The scanner reads YAML files directly under the project root, walks
conventional configuration directories recursively, and prunes
build, vendor, and tooling directories. Previously merged outputs
and the working directory are always excluded.`,
		Example: `  # List eligible files in the current directory
  forge scan

  # List eligible files for a specific project
  forge scan ./firmware

  # Include extra search roots
  forge scan --roots ./shared/config`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			files, err := scan.NewScanner(scan.Options{Root: root, ExtraRoots: extraRoots}, log.Logger).Scan(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), files)
			}
			for _, file := range files {
				fmt.Fprintln(cmd.OutOrStdout(), file)
			}
			log.Info().Int("files", len(files)).Msg("Scan complete")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&extraRoots, "roots", nil, "additional search roots scanned recursively")

	return cmd
}
