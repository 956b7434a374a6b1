package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/crcsweep/internal/crc"
	"github.com/roach88/crcsweep/internal/stream"
)

// CycleCounter reports elapsed circuit clock cycles.
type CycleCounter interface {
	Cycles() int64
}

// Endpoints are the circuit-side handles a Bench drives and observes.
type Endpoints struct {
	// Input accepts stimulus frames.
	Input stream.Sender
	// InputTap reports each frame as its last beat is accepted.
	InputTap stream.Receiver
	// Output yields result frames.
	Output stream.Receiver
	// Clock is optional; without it CycleBudget is ignored.
	Clock CycleCounter
}

// Bench runs the stimulus plan against one circuit instance and checks every
// result.
type Bench struct {
	spec   crc.Spec
	cfg    Config
	clock  CycleCounter
	logger *slog.Logger

	driver  *stream.Driver
	inMon   *stream.Monitor
	outMon  *stream.Monitor
	checker *Checker

	mu      sync.Mutex
	running bool
}

// NewBench wires a driver, two monitors and a checker around ep.
func NewBench(spec crc.Spec, ep Endpoints, cfg Config, logger *slog.Logger) *Bench {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	inMon := stream.NewMonitor("input", ep.InputTap, logger)
	outMon := stream.NewMonitor("output", ep.Output, logger)
	return &Bench{
		spec:    spec,
		cfg:     cfg.withDefaults(),
		clock:   ep.Clock,
		logger:  logger,
		driver:  stream.NewDriver(ep.Input, logger),
		inMon:   inMon,
		outMon:  outMon,
		checker: NewChecker(spec, inMon.Queue(), outMon.Queue(), logger),
	}
}

// Start launches both monitors and then the checker.
func (b *Bench) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return stream.ErrAlreadyStarted
	}
	if err := b.inMon.Start(ctx); err != nil {
		return fmt.Errorf("start input monitor: %w", err)
	}
	if err := b.outMon.Start(ctx); err != nil {
		_ = b.inMon.Stop()
		return fmt.Errorf("start output monitor: %w", err)
	}
	if err := b.checker.Start(ctx); err != nil {
		_ = b.outMon.Stop()
		_ = b.inMon.Stop()
		return fmt.Errorf("start checker: %w", err)
	}
	b.running = true
	return nil
}

// Stop halts the checker and then both monitors. When Stop returns no
// background goroutine touches either queue.
func (b *Bench) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return stream.ErrNotStarted
	}
	b.running = false

	return errors.Join(
		ignoreNotStarted(b.checker.Stop()),
		ignoreNotStarted(b.outMon.Stop()),
		ignoreNotStarted(b.inMon.Stop()),
	)
}

// IsQuiescent reports whether every observed input frame has a matching
// result frame.
func (b *Bench) IsQuiescent() bool {
	return b.inMon.Count() == b.outMon.Count()
}

// Checker exposes the bench's checker.
func (b *Bench) Checker() *Checker {
	return b.checker
}

// Stats samples the run counters.
func (b *Bench) Stats() RunStats {
	s := RunStats{
		FramesSent:     b.driver.Sent(),
		InputObserved:  b.inMon.Count(),
		OutputObserved: b.outMon.Count(),
		PairsChecked:   b.checker.Checked(),
	}
	if b.clock != nil {
		s.Cycles = b.clock.Cycles()
	}
	return s
}

// Run starts the bench, sends the full stimulus plan, waits for quiescence
// and stops. The returned stats are valid on error too.
func (b *Bench) Run(ctx context.Context) (RunStats, error) {
	if b.cfg.MaxFrameSize <= 0 {
		return RunStats{}, fmt.Errorf("max frame size must be positive, got %d", b.cfg.MaxFrameSize)
	}

	start := time.Now()
	if err := b.Start(ctx); err != nil {
		return RunStats{}, err
	}

	err := b.drive(ctx)
	if err == nil {
		err = b.WaitQuiescent(ctx, b.driver.Sent())
	}

	if stopErr := b.Stop(); err == nil {
		err = stopErr
	}

	stats := b.Stats()
	stats.Elapsed = time.Since(start)
	if err != nil {
		b.logger.Warn("run failed", "error", err, "sent", stats.FramesSent, "checked", stats.PairsChecked)
	} else {
		b.logger.Info("run passed", "frames", stats.FramesSent, "cycles", stats.Cycles, "elapsed", stats.Elapsed)
	}
	return stats, err
}

// drive sends the stimulus plan. A checker failure aborts a blocked send.
func (b *Bench) drive(ctx context.Context) error {
	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	checkerDone := b.checker.Done()
	go func() {
		select {
		case <-checkerDone:
			cancel()
		case <-sendCtx.Done():
		}
	}()

	plan := Plan(b.cfg.MaxFrameSize, b.cfg.TrialsPerSize, b.cfg.Seed)
	b.logger.Debug("stimulus planned", "frames", len(plan), "max_size", b.cfg.MaxFrameSize)

	for _, f := range plan {
		if err := b.checker.Err(); err != nil {
			return err
		}
		if err := b.driver.Send(sendCtx, f); err != nil {
			if cerr := b.checker.Err(); cerr != nil {
				return cerr
			}
			return err
		}
	}
	return nil
}

// WaitQuiescent polls until at least expected input frames were observed,
// every one has a result, the checker consumed every pair and nothing moved
// for the settle window. It returns the checker's mismatch as soon as one
// occurs, and a TimeoutError once the deadline or cycle budget is spent.
func (b *Bench) WaitQuiescent(ctx context.Context, expected int64) error {
	start := time.Now()
	var startCycles int64
	if b.clock != nil {
		startCycles = b.clock.Cycles()
	}

	deadline := time.NewTimer(b.cfg.Deadline)
	defer deadline.Stop()
	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	var (
		quietSince      time.Time
		lastIn, lastOut int64
	)
	for {
		if err := b.checker.Err(); err != nil {
			return err
		}
		if err := b.inMon.Err(); err != nil {
			return fmt.Errorf("input monitor: %w", err)
		}
		if err := b.outMon.Err(); err != nil {
			return fmt.Errorf("output monitor: %w", err)
		}

		in, out := b.inMon.Count(), b.outMon.Count()
		if in == out && in >= expected && b.checker.Checked() == out {
			now := time.Now()
			if quietSince.IsZero() || in != lastIn || out != lastOut {
				quietSince = now
			}
			if now.Sub(quietSince) >= b.cfg.Settle {
				return nil
			}
		} else {
			quietSince = time.Time{}
		}
		lastIn, lastOut = in, out

		if b.cfg.CycleBudget > 0 && b.clock != nil && b.clock.Cycles()-startCycles >= b.cfg.CycleBudget {
			if b.checker.Err() == nil && b.drained(expected) {
				return nil
			}
			return b.timeout(start, startCycles)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if b.checker.Err() == nil && b.drained(expected) {
				return nil
			}
			return b.timeout(start, startCycles)
		case <-ticker.C:
		}
	}
}

func (b *Bench) drained(expected int64) bool {
	in, out := b.inMon.Count(), b.outMon.Count()
	return in == out && in >= expected && b.checker.Checked() == out
}

func (b *Bench) timeout(start time.Time, startCycles int64) *TimeoutError {
	e := &TimeoutError{
		Observed: b.outMon.Count(),
		Expected: b.inMon.Count(),
		Sent:     b.driver.Sent(),
		Elapsed:  time.Since(start),
	}
	if b.clock != nil {
		e.Cycles = b.clock.Cycles() - startCycles
	}
	return e
}

func ignoreNotStarted(err error) error {
	if errors.Is(err, stream.ErrNotStarted) {
		return nil
	}
	return err
}
