package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/firmforge/firmforge/pkg/pipeline"
	"github.com/firmforge/firmforge/pkg/report"
	"github.com/firmforge/firmforge/pkg/telemetry"
)

func newGenerateCommand() *cobra.Command {
	var (
		outDir        string
		workDir       string
		extraRoots    []string
		templateDir   string
		reportDB      string
		noMirror      bool
		traceExporter string
	)

	cmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Compile YAML configuration into C++ headers",
		Long: `Compile the project's YAML configuration into C++ headers.

The compile run scans the project for configuration fragments, merges
them into one canonical document per domain, validates each domain,
allocates topic identifiers for the messaging channels, and renders
the generated headers. Domains fail independently: a validation
failure in one domain never blocks the artifacts of another.

Merged canonical documents are mirrored under the working directory
for audit; mirrors are never re-ingested as input.`,
		Example: `  # Compile the current directory
  forge generate

  # Compile a specific project with a custom output directory
  forge generate ./firmware --out ./firmware/include/gen

  # Compile with extra search roots and custom templates
  forge generate --roots ./shared/config --template-dir ./templates

  # Record the run in a SQLite ledger
  forge generate --report-db ./.forge/runs.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			tel, err := newTelemetry(traceExporter)
			if err != nil {
				return err
			}
			defer func() { _ = tel.Shutdown(context.Background()) }()

			if !jsonOutput && !verbose {
				subscribeProgress(tel, cmd.ErrOrStderr())
			}

			p, err := pipeline.NewPipeline(pipeline.Options{
				Root:          root,
				ExtraRoots:    extraRoots,
				WorkDir:       workDir,
				OutDir:        outDir,
				TemplateDir:   templateDir,
				DisableMirror: noMirror,
			}, tel.Logger.Zerolog())
			if err != nil {
				return err
			}

			result, runErr := p.Run(tel.WithContext(cmd.Context()))

			if reportDB != "" && result != nil {
				saveReport(cmd.Context(), reportDB, result)
			}

			if result != nil {
				if jsonOutput {
					if err := printJSON(cmd.OutOrStdout(), result); err != nil {
						return err
					}
				} else {
					printRunSummary(cmd.OutOrStdout(), result)
				}
			}

			if runErr != nil {
				return runErr
			}
			if result.Status != pipeline.RunStatusSucceeded {
				return fmt.Errorf("run finished %s: %d of %d domains failed",
					result.Status, result.Summary.Failed, result.Summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory for generated headers (default <path>/src)")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "working directory for merged mirrors (default <path>/.forge)")
	cmd.Flags().StringSliceVar(&extraRoots, "roots", nil, "additional search roots scanned recursively")
	cmd.Flags().StringVar(&templateDir, "template-dir", "", "directory of template overrides")
	cmd.Flags().StringVar(&reportDB, "report-db", "", "SQLite run ledger path")
	cmd.Flags().BoolVar(&noMirror, "no-mirror", false, "skip writing merged document mirrors")
	cmd.Flags().StringVar(&traceExporter, "trace-exporter", "", "enable tracing with the given exporter (otlp, stdout)")

	return cmd
}

// newTelemetry builds the unified telemetry for a compile run from the
// global flags.
func newTelemetry(traceExporter string) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	if verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.EnableCaller = true
	}
	if traceExporter != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = traceExporter
	}
	return telemetry.NewTelemetry(cfg)
}

// subscribeProgress prints concise per-domain progress lines as run
// events arrive. Delivery is synchronous, so lines appear in phase
// order.
func subscribeProgress(tel *telemetry.Telemetry, out io.Writer) {
	if tel.Events == nil {
		return
	}
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Fprintf(out, "  %s\n", event.Message)
	}, telemetry.FilterByType(
		telemetry.EventTypeDomainValidated,
		telemetry.EventTypeDomainFailed,
		telemetry.EventTypeTopicsAllocated,
		telemetry.EventTypeArtifactWritten,
	))
}

// printRunSummary renders the human-readable run outcome.
func printRunSummary(w io.Writer, result *pipeline.RunResult) {
	fmt.Fprintf(w, "run %s in %s\n", result.Status, result.Duration.Round(time.Millisecond))
	for _, d := range result.Domains {
		switch d.Status {
		case pipeline.DomainStatusSucceeded:
			fmt.Fprintf(w, "  %-8s %s, %d artifacts\n", d.Domain, d.Status, len(d.OutFiles))
		case pipeline.DomainStatusFailed:
			fmt.Fprintf(w, "  %-8s %s, %d violations\n", d.Domain, d.Status, len(d.Violations))
			for _, v := range d.Violations.Strings() {
				fmt.Fprintf(w, "    - %s\n", v)
			}
		default:
			fmt.Fprintf(w, "  %-8s %s, no input\n", d.Domain, d.Status)
		}
	}
}

// printJSON renders a value as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// saveReport records the run in the SQLite ledger. The ledger is pure
// output: failures are logged and never change the exit code.
func saveReport(ctx context.Context, path string, result *pipeline.RunResult) {
	store, err := report.NewSQLiteStore(report.Config{Path: path})
	if err != nil {
		log.Warn().Err(err).Str("db", path).Msg("Run ledger unavailable; skipping report")
		return
	}
	if err := store.Init(ctx); err != nil {
		log.Warn().Err(err).Str("db", path).Msg("Run ledger unavailable; skipping report")
		return
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Warn().Err(err).Str("db", path).Msg("Run ledger migration failed; skipping report")
		return
	}
	if err := store.SaveRun(ctx, result); err != nil {
		log.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to record run in ledger")
		return
	}
	log.Debug().Str("db", path).Str("run_id", result.RunID).Msg("Run recorded in ledger")
}
