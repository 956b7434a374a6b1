package dut

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/crcsweep/internal/crc"
	"github.com/roach88/crcsweep/internal/stream"
	"github.com/roach88/crcsweep/internal/sweep"
)

// Faults selects deliberate misbehavior. Zero values disable each fault.
type Faults struct {
	// CorruptResult flips bit 0 of the n-th result (1-based).
	CorruptResult int64
	// DropResult discards the n-th result (1-based).
	DropResult int64
	// StallEvery refuses input on every k-th cycle.
	StallEvery int64
}

// Options tune the model.
type Options struct {
	// SkidDepth is the number of beats buffered ahead of the core (default 2).
	SkidDepth int
	// IdleTick is the wall time per cycle while the circuit has nothing in
	// flight (default 10µs).
	IdleTick time.Duration

	Faults Faults
	Logger *slog.Logger
}

const (
	defaultSkidDepth = 2
	defaultIdleTick  = 10 * time.Microsecond
)

type beat struct {
	data []byte
	last bool
}

type result struct {
	due   int64
	frame stream.Frame
}

// Circuit is a running model instance. It implements sweep.Circuit.
type Circuit struct {
	beatBytes int
	latency   int64
	spec      crc.Spec
	core      *core
	faults    Faults
	idleTick  time.Duration
	logger    *slog.Logger

	beats  chan beat
	input  *inputPort
	tap    *stream.Queue
	out    *stream.Queue
	cycles atomic.Int64

	// owned by the clock goroutine
	frame    []byte
	produced int64

	cancel    context.CancelFunc
	done      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// New elaborates a circuit for cfg and starts its clock.
func New(cfg sweep.CircuitConfig, opts Options) (*Circuit, error) {
	p := cfg.Point
	if p.DataWidth <= 0 || p.DataWidth%8 != 0 {
		return nil, fmt.Errorf("data width %d is not a positive multiple of 8", p.DataWidth)
	}
	if p.PipelineLevels < 0 {
		return nil, fmt.Errorf("pipeline levels %d is negative", p.PipelineLevels)
	}
	if cfg.Spec.Width == 0 || cfg.Spec.Width > crc.MaxWidth {
		return nil, fmt.Errorf("checksum width %d outside 1..%d", cfg.Spec.Width, crc.MaxWidth)
	}

	if opts.SkidDepth <= 0 {
		opts.SkidDepth = defaultSkidDepth
	}
	if opts.IdleTick <= 0 {
		opts.IdleTick = defaultIdleTick
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	latency := int64(1 + p.PipelineLevels)
	if p.ReflectPipelineMask != 0 {
		latency++
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Circuit{
		beatBytes: p.DataWidth / 8,
		latency:   latency,
		spec:      cfg.Spec,
		core:      newCore(cfg.Spec),
		faults:    opts.Faults,
		idleTick:  opts.IdleTick,
		logger:    logger.With("component", "dut", "point", p.ID()),
		beats:     make(chan beat, opts.SkidDepth),
		tap:       stream.NewQueue(),
		out:       stream.NewQueue(),
		cancel:    cancel,
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}
	c.input = &inputPort{c: c}

	go c.run(ctx)
	return c, nil
}

// Input returns the stimulus port.
func (c *Circuit) Input() stream.Sender { return c.input }

// InputTap returns frames as their last beat enters the core.
func (c *Circuit) InputTap() stream.Receiver { return c.tap }

// Output returns result frames, little-endian, ceil(width/8) bytes each.
func (c *Circuit) Output() stream.Receiver { return c.out }

// Cycles returns the number of elapsed clock cycles.
func (c *Circuit) Cycles() int64 { return c.cycles.Load() }

// Latency returns the cycles from last-beat acceptance to result.
func (c *Circuit) Latency() int64 { return c.latency }

// Close stops the clock. Pending results are discarded and both output
// streams report stream.ErrClosed once drained.
func (c *Circuit) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		close(c.closed)
		c.tap.Close()
		c.out.Close()
	})
	return nil
}

func (c *Circuit) run(ctx context.Context) {
	defer close(c.done)

	idle := time.NewTicker(c.idleTick)
	defer idle.Stop()

	var (
		held    *beat
		pending []result
	)
	for {
		if held == nil && len(pending) == 0 {
			select {
			case <-ctx.Done():
				return
			case b := <-c.beats:
				held = &b
			case <-idle.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		cycle := c.cycles.Add(1)
		for len(pending) > 0 && pending[0].due <= cycle {
			c.out.Push(pending[0].frame)
			pending = pending[1:]
		}

		if c.faults.StallEvery > 0 && cycle%c.faults.StallEvery == 0 {
			continue
		}
		if held == nil {
			select {
			case b := <-c.beats:
				held = &b
			default:
			}
		}
		if held != nil {
			if r, ok := c.accept(*held, cycle); ok {
				pending = append(pending, r)
			}
			held = nil
		}
	}
}

// accept folds one beat into the core. On the last beat of a frame it
// publishes the frame on the tap and schedules the result.
func (c *Circuit) accept(b beat, cycle int64) (result, bool) {
	c.core.update(b.data)
	c.frame = append(c.frame, b.data...)
	if !b.last {
		return result{}, false
	}

	c.tap.Push(c.frame)
	c.frame = nil

	v := c.core.result()
	c.core.reset()
	c.produced++

	switch c.produced {
	case c.faults.CorruptResult:
		v ^= 1
		c.logger.Debug("corrupting result", "result", c.produced)
	case c.faults.DropResult:
		c.logger.Debug("dropping result", "result", c.produced)
		return result{}, false
	}
	return result{due: cycle + c.latency, frame: c.spec.Encode(v)}, true
}

// inputPort splits frames into beats. A frame abandoned mid-way leaves the
// bus in an undefined state; every later send is a protocol violation.
type inputPort struct {
	c *Circuit

	mu     sync.Mutex
	broken error
}

func (p *inputPort) Send(ctx context.Context, f stream.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.broken != nil {
		return fmt.Errorf("input bus: %w", p.broken)
	}
	if len(f) == 0 {
		return fmt.Errorf("input bus: empty frame: %w", stream.ErrProtocolViolation)
	}
	select {
	case <-p.c.closed:
		return stream.ErrClosed
	default:
	}

	n := p.c.beatBytes
	for off := 0; off < len(f); off += n {
		end := min(off+n, len(f))
		b := beat{data: f[off:end], last: end == len(f)}
		select {
		case p.c.beats <- b:
		case <-ctx.Done():
			if off > 0 {
				p.broken = fmt.Errorf("frame abandoned after %d of %d bytes: %w", off, len(f), stream.ErrProtocolViolation)
			}
			return ctx.Err()
		case <-p.c.closed:
			return stream.ErrClosed
		}
	}
	return nil
}

// Builder elaborates model circuits. It implements sweep.Builder.
type Builder struct {
	Options Options
}

// Build creates and starts a circuit for cfg.
func (b Builder) Build(ctx context.Context, cfg sweep.CircuitConfig) (sweep.Circuit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return New(cfg, b.Options)
}
