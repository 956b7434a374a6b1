package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// Driver submits stimulus frames to a Sender in order.
//
// A Driver is used from one goroutine; Sent may be read from any.
type Driver struct {
	dst    Sender
	sent   atomic.Int64
	logger *slog.Logger
}

// NewDriver creates a driver for dst.
func NewDriver(dst Sender, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Driver{dst: dst, logger: logger.With("component", "driver")}
}

// Send blocks until the endpoint accepts f. Frames are never reordered or
// dropped; an endpoint error is returned as-is (wrapped) and not retried.
// An empty frame cannot be expressed on the bus and is rejected with
// ErrProtocolViolation.
func (d *Driver) Send(ctx context.Context, f Frame) error {
	seq := d.sent.Load() + 1
	if len(f) == 0 {
		return fmt.Errorf("send frame %d: empty frame: %w", seq, ErrProtocolViolation)
	}

	// The endpoint may hold on to the frame; the caller may reuse its buffer.
	if err := d.dst.Send(ctx, f.Clone()); err != nil {
		return fmt.Errorf("send frame %d: %w", seq, err)
	}
	d.sent.Add(1)

	d.logger.Debug("frame sent", "seq", seq, "bytes", len(f))
	return nil
}

// Sent returns the number of frames the endpoint has accepted.
func (d *Driver) Sent() int64 {
	return d.sent.Load()
}
