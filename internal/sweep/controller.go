package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/crcsweep/internal/crc"
	"github.com/roach88/crcsweep/internal/harness"
)

// Recorder receives sweep progress, typically for persistence.
type Recorder interface {
	BeginRun(ctx context.Context, r *Report) error
	RecordPoint(ctx context.Context, runID string, res PointResult) error
	FinishRun(ctx context.Context, r *Report) error
}

// Controller runs a Matrix point by point.
type Controller struct {
	catalog  crc.Catalog
	builder  Builder
	recorder Recorder
	ids      RunIDGenerator
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder attaches a recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithRunIDGenerator replaces the UUIDv7 run ID source.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *Controller) { c.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a controller resolving algorithms from catalog and
// elaborating circuits with builder.
func NewController(catalog crc.Catalog, builder Builder, opts ...Option) *Controller {
	c := &Controller{
		catalog: catalog,
		builder: builder,
		ids:     UUIDv7Generator{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Run executes every point of m. Point failures are recorded in the report
// and never returned as errors; the returned error is reserved for an
// invalid matrix, a recorder failure or cancellation, in which case the
// partial report is still returned.
func (c *Controller) Run(ctx context.Context, m *Matrix) (*Report, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matrix: %w", err)
	}

	resolver := crc.NewResolver(c.catalog)
	points := Points(m, resolver.Names())

	report := &Report{
		RunID:     c.ids.Generate(),
		Name:      m.Name,
		StartedAt: c.now().UTC(),
		Seed:      m.Seed,
		Planned:   len(points),
	}
	logger := c.logger.With("run_id", report.RunID)
	logger.Info("sweep started", "name", m.Name, "points", len(points))

	if c.recorder != nil {
		if err := c.recorder.BeginRun(ctx, report); err != nil {
			return report, fmt.Errorf("record run start: %w", err)
		}
	}

	runErr := c.runPoints(ctx, m, resolver, points, report, logger)

	report.FinishedAt = c.now().UTC()
	if len(report.Results) < len(points) {
		report.Aborted = true
	}
	if c.recorder != nil {
		// Cancellation must not lose the partial run.
		if err := c.recorder.FinishRun(context.WithoutCancel(ctx), report); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("record run finish: %w", err))
		}
	}

	counts := report.Counts()
	logger.Info("sweep finished",
		"passed", counts[OutcomePass],
		"failed", len(report.Results)-counts[OutcomePass],
		"aborted", report.Aborted,
	)
	return report, runErr
}

func (c *Controller) runPoints(ctx context.Context, m *Matrix, resolver *crc.Resolver, points []Point, report *Report, logger *slog.Logger) error {
	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := c.runPoint(ctx, m, resolver, p, logger.With("point", p.ID()))
		if err := ctx.Err(); err != nil {
			// The point was cut short, not judged.
			return err
		}

		report.Results = append(report.Results, res)
		if c.recorder != nil {
			if err := c.recorder.RecordPoint(ctx, report.RunID, res); err != nil {
				return fmt.Errorf("record point %s: %w", p.ID(), err)
			}
		}

		if !res.Passed() && m.FailFast {
			logger.Warn("fail_fast set, stopping sweep", "point", p.ID(), "outcome", res.Outcome)
			return nil
		}
	}
	return nil
}

func (c *Controller) runPoint(ctx context.Context, m *Matrix, resolver *crc.Resolver, p Point, logger *slog.Logger) PointResult {
	start := time.Now()
	res := PointResult{Point: p}

	finish := func(err error) PointResult {
		res.Outcome = Classify(err)
		if err != nil {
			res.Detail = err.Error()
			logger.Warn("point failed", "outcome", res.Outcome, "error", err)
		} else {
			logger.Info("point passed", "frames", res.Stats.FramesSent, "cycles", res.Stats.Cycles)
		}
		res.Duration = time.Since(start)
		return res
	}

	spec, err := resolver.Resolve(p.Algorithm)
	if err != nil {
		return finish(err)
	}
	cfg := NewCircuitConfig(p, spec)
	res.Params = cfg.Params()

	circuit, err := c.builder.Build(ctx, cfg)
	if err != nil {
		return finish(&BuildError{Point: p.ID(), Err: err})
	}
	defer func() {
		if cerr := circuit.Close(); cerr != nil {
			logger.Warn("closing circuit", "error", cerr)
		}
	}()

	bench := harness.NewBench(spec, harness.Endpoints{
		Input:    circuit.Input(),
		InputTap: circuit.InputTap(),
		Output:   circuit.Output(),
		Clock:    circuit,
	}, harness.Config{
		MaxFrameSize:  p.MaxFrameSize(m.SizeFactor),
		TrialsPerSize: m.TrialsPerSize,
		Seed:          p.Seed(m.Seed),
		Deadline:      m.Deadline,
		CycleBudget:   m.CycleBudget,
		Settle:        m.Settle,
	}, logger)

	res.Stats, err = bench.Run(ctx)
	return finish(err)
}
