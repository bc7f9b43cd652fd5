package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/firmforge/firmforge/pkg/aggregate"
	"github.com/firmforge/firmforge/pkg/document"
	"github.com/firmforge/firmforge/pkg/scan"
	"github.com/firmforge/firmforge/pkg/topics"
	"github.com/firmforge/firmforge/pkg/validate"
)

func newTopicsCommand() *cobra.Command {
	var extraRoots []string

	cmd := &cobra.Command{
		Use:   "topics [path] [channel...]",
		Short: "Preview the channel to topic identifier table",
		Long: `Preview the topic identifiers a compile run would allocate.

Identifiers are derived from the folded FNV-1a hash of each channel
name, offset into the reserved band, with in-run collisions resolved
by linear probing. Allocation is deterministic: the same channel set
always yields the same table.

With channel name arguments, the table is computed for exactly those
names without reading any configuration.`,
		Example: `  # Allocate for the channels declared in the current project
  forge topics

  # Allocate for a specific project
  forge topics ./firmware

  # Allocate for explicit channel names
  forge topics telemetry_channel sensor_data_channel`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := channelNames(cmd, args, extraRoots)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				log.Warn().Msg("No channels declared; nothing to allocate")
				return nil
			}

			table, err := topics.NewAllocator(log.Logger).Allocate(names)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), table.Allocations())
			}
			for _, a := range table.Allocations() {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%04X  %s\n", a.ID, a.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&extraRoots, "roots", nil, "additional search roots scanned recursively")

	return cmd
}

// channelNames resolves the channel set to allocate for. Arguments
// containing no path separator are treated as explicit channel names;
// otherwise the first argument is the project root and its validated
// task domain supplies the channels.
func channelNames(cmd *cobra.Command, args []string, extraRoots []string) ([]string, error) {
	if len(args) > 0 && !looksLikePath(args[0]) {
		return args, nil
	}

	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	ctx := cmd.Context()
	logger := log.Logger

	files, err := scan.NewScanner(scan.Options{Root: root, ExtraRoots: extraRoots}, logger).Scan(ctx)
	if err != nil {
		return nil, err
	}
	docs := document.NewLoader(logger).LoadAll(files)
	merged := aggregate.NewAggregator(logger).Merge(docs)
	if !merged.Tasks.Found {
		return nil, nil
	}

	domain, res := validate.NewValidator(logger).ValidateTasks(ctx, &merged.Tasks)
	if !res.OK() {
		return nil, fmt.Errorf("task domain failed validation with %d violations; run 'forge validate' for details", len(res))
	}

	names := make([]string, 0, len(domain.Channels))
	for _, ch := range domain.Channels {
		names = append(names, ch.Name)
	}
	return names, nil
}

// looksLikePath reports whether an argument names a directory rather
// than a channel. Channel names are lower_snake identifiers, so any
// separator or dot marks a path.
func looksLikePath(arg string) bool {
	for _, r := range arg {
		if r == '/' || r == '\\' || r == '.' {
			return true
		}
	}
	return false
}
