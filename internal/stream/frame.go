package stream

import (
	"context"
	"encoding/hex"
	"errors"
)

// Frame is one end-of-frame delimited packet on a stream bus. The byte
// validity mask is implied by its length.
type Frame []byte

// Clone returns a copy of f that does not alias its backing array.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// String renders f as lower-case hex.
func (f Frame) String() string {
	return hex.EncodeToString(f)
}

// Sender is the accepting side of a stream endpoint.
type Sender interface {
	// Send blocks until the endpoint has accepted every beat of f or ctx is
	// done.
	Send(ctx context.Context, f Frame) error
}

// Receiver is an emitting (or passively observed) stream endpoint.
type Receiver interface {
	// Recv blocks until a complete frame is available or ctx is done.
	Recv(ctx context.Context) (Frame, error)
}

var (
	// ErrProtocolViolation is wrapped by endpoints that detect a bus
	// contract violation. It is fatal and never retried.
	ErrProtocolViolation = errors.New("stream protocol violation")

	// ErrClosed is returned by endpoints and queues after Close.
	ErrClosed = errors.New("stream closed")

	// ErrAlreadyStarted is returned by Start on a running component.
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotStarted is returned by Stop on a component that is not running.
	ErrNotStarted = errors.New("never started")
)
