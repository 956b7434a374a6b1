package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/crcsweep/internal/dut"
	"github.com/roach88/crcsweep/internal/store"
	"github.com/roach88/crcsweep/internal/sweep"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Database string

	// Matrix overrides; applied only when the flag is set.
	Widths     []int
	Levels     []int
	Masks      []uint
	Algorithms []string
	Seed       uint64
	Deadline   time.Duration
	Trials     int
	FailFast   bool

	// Model faults.
	CorruptResult int64
	DropResult    int64
	StallEvery    int64

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs sweep.RunIDGenerator

	// Now allows overriding the report clock (for testing).
	Now func() time.Time
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return newSweepCommand(&SweepOptions{RootOptions: rootOpts})
}

func newSweepCommand(opts *SweepOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [matrix.yaml]",
		Short: "Run a conformance sweep",
		Long: `Run every point of a sweep matrix against the CRC circuit model and
check every result against the software reference.

Without a matrix file the full regression matrix runs: bus widths
32, 128, 512 and 768, pipeline levels 0 and 1, reflection pipeline off
and fully on, every catalog algorithm. Flags override matrix fields.

With --db the run and every point verdict are stored for 'crcsweep report'.

Exit codes:
  0 - every point passed
  1 - one or more points failed, or the sweep was aborted
  2 - command error (bad matrix, unreadable catalog, database error)

Examples:
  crcsweep sweep
  crcsweep sweep ./smoke.yaml --db ./sweeps.db
  crcsweep sweep --width 32 --width 64 --algorithm crc-32 --fail-fast
  crcsweep sweep --algorithm crc-16 --corrupt-result 5`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSweep(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for results")
	cmd.Flags().IntSliceVar(&opts.Widths, "width", nil, "data widths in bits (repeatable)")
	cmd.Flags().IntSliceVar(&opts.Levels, "levels", nil, "pipeline levels (repeatable)")
	cmd.Flags().UintSliceVar(&opts.Masks, "masks", nil, "reflect pipeline masks (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Algorithms, "algorithm", nil, "algorithm names (repeatable)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "base payload seed")
	cmd.Flags().DurationVar(&opts.Deadline, "deadline", 0, "per-point quiescence deadline")
	cmd.Flags().IntVar(&opts.Trials, "trials", 0, "frames per size")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first failing point")
	cmd.Flags().Int64Var(&opts.CorruptResult, "corrupt-result", 0, "corrupt the n-th result of every point")
	cmd.Flags().Int64Var(&opts.DropResult, "drop-result", 0, "drop the n-th result of every point")
	cmd.Flags().Int64Var(&opts.StallEvery, "stall-every", 0, "stall the input every k-th cycle")

	return cmd
}

func runSweep(opts *SweepOptions, path string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, f.GetErrWriter())

	m, err := loadMatrix(path)
	if err != nil {
		return fail(f, ExitCommandError, loadErrorCode(err), "failed to load matrix", err)
	}
	if err := applyOverrides(opts, cmd, m); err != nil {
		return fail(f, ExitCommandError, ErrCodeLoadFailed, "invalid flag", err)
	}
	if err := m.Validate(); err != nil {
		return fail(f, ExitCommandError, ErrCodeLoadFailed, "invalid matrix", err)
	}

	catalogPath := opts.Catalog
	if catalogPath == "" {
		catalogPath = m.Catalog
	}
	cat, err := loadCatalog(catalogPath)
	if err != nil {
		return fail(f, ExitCommandError, loadErrorCode(err), "failed to load catalog", err)
	}

	ctrlOpts := []sweep.Option{sweep.WithLogger(logger)}
	if opts.RunIDs != nil {
		ctrlOpts = append(ctrlOpts, sweep.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.Now != nil {
		ctrlOpts = append(ctrlOpts, sweep.WithClock(opts.Now))
	}

	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		ctrlOpts = append(ctrlOpts, sweep.WithRecorder(st))
	}

	builder := dut.Builder{Options: dut.Options{
		Faults: dut.Faults{
			CorruptResult: opts.CorruptResult,
			DropResult:    opts.DropResult,
			StallEvery:    opts.StallEvery,
		},
		Logger: logger,
	}}
	ctrl := sweep.NewController(cat, builder, ctrlOpts...)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping sweep", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := ctrl.Run(ctx, m)
	if report == nil {
		return fail(f, ExitCommandError, ErrCodeSweepFailed, "sweep failed", err)
	}

	if opts.Format == "json" {
		if outErr := f.Success(report); outErr != nil {
			return WrapExitError(ExitCommandError, "failed to write output", outErr)
		}
	} else {
		writeReportText(cmd.OutOrStdout(), report)
	}

	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		// Recorder failure: the verdicts are printed but not all stored.
		logger.Error("sweep recording failed", "error", err)
		return WrapExitError(ExitCommandError, "sweep recording failed", err)
	case report.Failed():
		return NewExitError(ExitFailure, fmt.Sprintf("%s: sweep %s failed", ErrCodeSweepFailed, report.RunID))
	}
	return nil
}

// applyOverrides copies set flags onto m.
func applyOverrides(opts *SweepOptions, cmd *cobra.Command, m *sweep.Matrix) error {
	flags := cmd.Flags()
	if flags.Changed("width") {
		m.DataWidths = opts.Widths
	}
	if flags.Changed("levels") {
		m.PipelineLevels = opts.Levels
	}
	if flags.Changed("masks") {
		masks := make([]uint32, len(opts.Masks))
		for i, v := range opts.Masks {
			if v > math.MaxUint32 {
				return fmt.Errorf("--masks value 0x%X exceeds 32 bits", v)
			}
			masks[i] = uint32(v)
		}
		m.ReflectPipelineMasks = masks
	}
	if flags.Changed("algorithm") {
		m.Algorithms = opts.Algorithms
	}
	if flags.Changed("seed") {
		m.Seed = opts.Seed
	}
	if flags.Changed("deadline") {
		m.Deadline = opts.Deadline
	}
	if flags.Changed("trials") {
		m.TrialsPerSize = opts.Trials
	}
	if flags.Changed("fail-fast") {
		m.FailFast = opts.FailFast
	}
	return nil
}
