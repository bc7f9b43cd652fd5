package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/firmforge/firmforge/pkg/aggregate"
	"github.com/firmforge/firmforge/pkg/document"
	"github.com/firmforge/firmforge/pkg/model"
	"github.com/firmforge/firmforge/pkg/scan"
	"github.com/firmforge/firmforge/pkg/validate"
)

// domainFinding is the per-domain outcome of a validate run.
type domainFinding struct {
	Domain     model.Domain    `json:"domain"`
	Found      bool            `json:"found"`
	Violations validate.Result `json:"violations"`
}

func newValidateCommand() *cobra.Command {
	var extraRoots []string

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate YAML configuration without generating",
		Long: `Validate the project's YAML configuration.

This command runs the compile pipeline through validation only:
scan, merge, and validate every domain, reporting each finding with
the entity and field it belongs to. No headers are generated and no
mirrors are written.`,
		Example: `  # Validate configs in the current directory
  forge validate

  # Validate a specific project
  forge validate ./firmware

  # Validate with extra search roots
  forge validate --roots ./shared/config`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			ctx := cmd.Context()
			logger := log.Logger

			files, err := scan.NewScanner(scan.Options{Root: root, ExtraRoots: extraRoots}, logger).Scan(ctx)
			if err != nil {
				return err
			}
			docs := document.NewLoader(logger).LoadAll(files)
			merged := aggregate.NewAggregator(logger).Merge(docs)
			validator := validate.NewValidator(logger)

			// Absent domains are skipped, not validated, matching the
			// compile pipeline.
			findings := make([]domainFinding, 0, len(model.Domains()))
			tasks := domainFinding{Domain: model.DomainTasks, Found: merged.Tasks.Found}
			if tasks.Found {
				_, tasks.Violations = validator.ValidateTasks(ctx, &merged.Tasks)
			}
			findings = append(findings, tasks)

			packet := domainFinding{Domain: model.DomainPacket, Found: merged.Packet.Found}
			if packet.Found {
				_, packet.Violations = validator.ValidatePacket(ctx, &merged.Packet)
			}
			findings = append(findings, packet)

			commands := domainFinding{Domain: model.DomainCommands, Found: merged.Commands.Found}
			if commands.Found {
				_, commands.Violations = validator.ValidateCommands(ctx, &merged.Commands)
			}
			findings = append(findings, commands)

			if jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), findings); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, f := range findings {
					switch {
					case !f.Found:
						fmt.Fprintf(out, "%-8s no input\n", f.Domain)
					case f.Violations.OK():
						fmt.Fprintf(out, "%-8s valid\n", f.Domain)
					default:
						fmt.Fprintf(out, "%-8s %d violations\n", f.Domain, len(f.Violations))
						for _, v := range f.Violations.Strings() {
							fmt.Fprintf(out, "  - %s\n", v)
						}
					}
				}
			}

			invalid := 0
			for _, f := range findings {
				if !f.Violations.OK() {
					invalid++
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d domains failed validation", invalid, len(findings))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&extraRoots, "roots", nil, "additional search roots scanned recursively")

	return cmd
}
