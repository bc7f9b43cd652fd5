package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/firmforge/firmforge/pkg/report"
	"github.com/firmforge/firmforge/pkg/validate"
)

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the recorded run ledger",
		Long: `Inspect compile runs recorded in the SQLite ledger.

The ledger is written by 'forge generate --report-db' and holds each
run's outcome, the per-domain results with their violations, and the
allocated topic identifiers.`,
	}

	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())
	cmd.AddCommand(newRunsPruneCommand())

	return cmd
}

// openLedger opens the ledger read-write and migrates it to the
// current schema.
func openLedger(ctx context.Context, path string) (*report.SQLiteStore, error) {
	store, err := report.NewSQLiteStore(report.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newRunsListCommand() *cobra.Command {
	var (
		reportDB string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, most recent first",
		Example: `  # List the last 20 runs
  forge runs list --report-db ./.forge/runs.db

  # List the last 5 runs as JSON
  forge runs list --report-db ./.forge/runs.db --limit 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openLedger(ctx, reportDB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no recorded runs")
				return nil
			}
			for _, run := range runs {
				fmt.Fprintf(out, "%s  %-9s  %s  %d files  %d/%d/%d succeeded/failed/skipped\n",
					run.StartedAt.Format(time.RFC3339),
					run.Status,
					run.ID,
					run.Files,
					run.Succeeded, run.Failed, run.Skipped,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reportDB, "report-db", "", "SQLite run ledger path")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	_ = cmd.MarkFlagRequired("report-db")

	return cmd
}

func newRunsShowCommand() *cobra.Command {
	var reportDB string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its domains and allocations",
		Example: `  # Show a run's domain outcomes and topic table
  forge runs show 7e6b... --report-db ./.forge/runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openLedger(ctx, reportDB)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			domains, err := store.ListDomainResults(ctx, run.ID)
			if err != nil {
				return err
			}
			allocs, err := store.ListAllocations(ctx, run.ID)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), struct {
					Run         *report.RunRecord          `json:"run"`
					Domains     []*report.DomainRecord     `json:"domains"`
					Allocations []*report.AllocationRecord `json:"allocations"`
				}{run, domains, allocs})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s\n", run.ID)
			fmt.Fprintf(out, "  root     %s\n", run.Root)
			fmt.Fprintf(out, "  status   %s\n", run.Status)
			fmt.Fprintf(out, "  started  %s\n", run.StartedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "  duration %dms\n", run.DurationMS)
			fmt.Fprintf(out, "  files    %d\n", run.Files)

			for _, d := range domains {
				fmt.Fprintf(out, "  %-8s %s\n", d.Domain, d.Status)
				var violations validate.Result
				if err := json.Unmarshal([]byte(d.Violations), &violations); err == nil {
					for _, v := range violations.Strings() {
						fmt.Fprintf(out, "    - %s\n", v)
					}
				}
			}

			if len(allocs) > 0 {
				fmt.Fprintln(out, "  topics")
				for _, a := range allocs {
					fmt.Fprintf(out, "    0x%04X  %s\n", a.TopicID, a.Channel)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reportDB, "report-db", "", "SQLite run ledger path")
	_ = cmd.MarkFlagRequired("report-db")

	return cmd
}

func newRunsPruneCommand() *cobra.Command {
	var (
		reportDB string
		keep     int
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Example: `  # Keep only the 50 most recent runs
  forge runs prune --report-db ./.forge/runs.db --keep 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openLedger(ctx, reportDB)
			if err != nil {
				return err
			}
			defer store.Close()

			pruned, err := store.PruneRuns(ctx, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d runs, kept the %d most recent\n", pruned, keep)
			return nil
		},
	}

	cmd.Flags().StringVar(&reportDB, "report-db", "", "SQLite run ledger path")
	cmd.Flags().IntVar(&keep, "keep", 50, "number of recent runs to keep")
	_ = cmd.MarkFlagRequired("report-db")

	return cmd
}
