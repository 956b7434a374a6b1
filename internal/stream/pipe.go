package stream

import (
	"context"
	"sync"
)

// Pipe is an in-memory endpoint: frames sent on it are received in order.
// With capacity 0 every Send rendezvous with a Recv, which is the strongest
// form of backpressure.
type Pipe struct {
	ch   chan Frame
	done chan struct{}
	once sync.Once
}

// NewPipe creates a pipe buffering up to capacity frames.
func NewPipe(capacity int) *Pipe {
	return &Pipe{
		ch:   make(chan Frame, capacity),
		done: make(chan struct{}),
	}
}

// Send implements Sender.
func (p *Pipe) Send(ctx context.Context, f Frame) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case p.ch <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrClosed
	}
}

// Recv implements Receiver.
func (p *Pipe) Recv(ctx context.Context) (Frame, error) {
	select {
	case f := <-p.ch:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrClosed
	}
}

// Close unblocks every pending Send and Recv with ErrClosed.
func (p *Pipe) Close() {
	p.once.Do(func() { close(p.done) })
}
