package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/crcsweep/internal/store"
	"github.com/roach88/crcsweep/internal/sweep"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	List     bool
	Limit    int
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show stored sweep results",
		Long: `Show a sweep run stored by 'crcsweep sweep --db'.

Without a run ID the most recent run is shown. With --list, one line per
stored run is printed instead.

Examples:
  crcsweep report --db ./sweeps.db
  crcsweep report --db ./sweeps.db 0192f0c4-8d1e-7c3a-9b52-1f0e6a2d4c11
  crcsweep report --db ./sweeps.db --list --limit 10`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runReport(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored runs")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReport(opts *ReportOptions, runID string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	path, err := existingPath(opts.Database)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeNotFound, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		if opts.Format == "json" {
			return f.Success(runs)
		}
		writeRunList(cmd.OutOrStdout(), runs)
		return nil
	}

	if runID == "" {
		runID, err = st.LatestRunID(ctx)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeNotFound, "no runs stored", err)
		}
	}

	report, err := st.LoadReport(ctx, runID)
	if err != nil {
		code := ErrCodeStore
		if errors.Is(err, store.ErrRunNotFound) {
			code = ErrCodeNotFound
		}
		return fail(f, ExitCommandError, code, "failed to load run", err)
	}

	if opts.Format == "json" {
		if err := f.Success(report); err != nil {
			return err
		}
	} else {
		writeReportText(cmd.OutOrStdout(), report)
	}
	if report.Failed() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: sweep %s failed", ErrCodeSweepFailed, report.RunID))
	}
	return nil
}

// writeReportText prints a report as one line per point followed by a
// summary line.
func writeReportText(w io.Writer, r *sweep.Report) {
	fmt.Fprintf(w, "run %s (%s)\n", r.RunID, r.Name)
	fmt.Fprintf(w, "started %s, %d of %d points run\n\n",
		r.StartedAt.UTC().Format(time.RFC3339), len(r.Results), r.Planned)

	for _, res := range r.Results {
		fmt.Fprintf(w, "  %-28s %-18s %6d frames %8d cycles",
			res.Point.ID(), res.Outcome, res.Stats.FramesSent, res.Stats.Cycles)
		if res.Detail != "" {
			fmt.Fprintf(w, "  %s", res.Detail)
		}
		fmt.Fprintln(w)
	}

	passed := r.Counts()[sweep.OutcomePass]
	fmt.Fprintf(w, "\n%d passed, %d failed", passed, len(r.Results)-passed)
	if r.Aborted {
		fmt.Fprint(w, ", aborted")
	}
	fmt.Fprintln(w)
}

func writeRunList(w io.Writer, runs []store.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs stored")
		return
	}
	for _, r := range runs {
		status := "PASS"
		switch {
		case r.Failed():
			status = "FAIL"
		case !r.Finished:
			status = "RUNNING"
		}
		fmt.Fprintf(w, "%-36s  %-16s  %s  %4d/%-4d  %s\n",
			r.ID, r.Name, r.StartedAt.UTC().Format(time.RFC3339), r.Recorded, r.Planned, status)
	}
}
