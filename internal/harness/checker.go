package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/crcsweep/internal/crc"
	"github.com/roach88/crcsweep/internal/stream"
)

// CheckerState is the lifecycle state of a Checker.
type CheckerState int32

const (
	// CheckerIdle means the checker is not consuming pairs.
	CheckerIdle CheckerState = iota
	// CheckerRunning means the checker is waiting for or checking pairs.
	CheckerRunning
	// CheckerFailed means a mismatch was found. Terminal until restarted.
	CheckerFailed
)

func (s CheckerState) String() string {
	switch s {
	case CheckerIdle:
		return "idle"
	case CheckerRunning:
		return "running"
	case CheckerFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Checker pairs input frames with result frames in FIFO order and compares
// each result to the reference CRC of its input.
//
// Both frames of a pair are removed in one step, so stopping the checker
// never strands half a pair.
type Checker struct {
	spec crc.Spec
	in   *stream.Queue
	out  *stream.Queue

	logger *slog.Logger

	state   atomic.Int32
	checked atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewChecker creates an idle checker reading inputs from in and results
// from out.
func NewChecker(spec crc.Spec, in, out *stream.Queue, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Checker{
		spec:   spec,
		in:     in,
		out:    out,
		logger: logger.With("component", "checker", "algorithm", spec.Name),
	}
}

// Start launches the checking goroutine.
func (c *Checker) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return stream.ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.err = nil
	c.state.Store(int32(CheckerRunning))

	go c.run(runCtx, c.done)
	return nil
}

// Stop cancels the checking goroutine and waits for it. A pending wait for a
// pair is abandoned; nothing is removed from either queue.
func (c *Checker) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return stream.ErrNotStarted
	}
	cancel()
	<-done
	return nil
}

// State returns the current lifecycle state.
func (c *Checker) State() CheckerState {
	return CheckerState(c.state.Load())
}

// Checked returns the number of pairs that matched.
func (c *Checker) Checked() int64 {
	return c.checked.Load()
}

// Err returns the mismatch that failed the checker, or nil.
func (c *Checker) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the current checking goroutine exits. Returns nil if
// the checker was never started.
func (c *Checker) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Checker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		input, output, err := stream.PopPair(ctx, c.in, c.out)
		if err != nil {
			if !errors.Is(err, stream.ErrClosed) && ctx.Err() == nil {
				c.logger.Error("checker stopped", "error", err)
			}
			c.state.CompareAndSwap(int32(CheckerRunning), int32(CheckerIdle))
			return
		}

		if mismatch := c.check(input, output); mismatch != nil {
			c.mu.Lock()
			c.err = mismatch
			c.mu.Unlock()
			c.state.Store(int32(CheckerFailed))
			c.logger.Error("checksum mismatch",
				"pair", mismatch.Index,
				"input", input.String(),
				"output", output.String(),
				"expected", mismatch.Expected,
				"actual", mismatch.Actual,
			)
			return
		}
		n := c.checked.Add(1)
		c.logger.Debug("pair checked", "pair", n, "bytes", len(input))
	}
}

// check compares one pair. Returns nil when the result matches.
func (c *Checker) check(input, output stream.Frame) *MismatchError {
	expected := c.spec.Reference(input)
	actual, err := c.spec.Decode(output)
	if err == nil && actual == expected {
		return nil
	}
	return &MismatchError{
		Index:     c.checked.Load() + 1,
		Input:     input,
		Output:    output,
		Expected:  expected,
		Actual:    actual,
		Width:     c.spec.Width,
		DecodeErr: err,
	}
}
