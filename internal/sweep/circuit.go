package sweep

import (
	"context"
	"fmt"

	"github.com/roach88/crcsweep/internal/stream"
)

// Circuit is one elaborated circuit instance.
type Circuit interface {
	// Input accepts stimulus frames, applying backpressure.
	Input() stream.Sender
	// InputTap reports frames as their last beat is accepted.
	InputTap() stream.Receiver
	// Output yields result frames.
	Output() stream.Receiver
	// Cycles returns elapsed clock cycles.
	Cycles() int64
	// Close stops the circuit and releases its resources.
	Close() error
}

// Builder turns a circuit configuration into a running Circuit.
type Builder interface {
	Build(ctx context.Context, cfg CircuitConfig) (Circuit, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, cfg CircuitConfig) (Circuit, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, cfg CircuitConfig) (Circuit, error) {
	return f(ctx, cfg)
}

// BuildError wraps a failure to elaborate a point's circuit.
type BuildError struct {
	Point string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Point, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
