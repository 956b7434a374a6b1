package stream

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of frames.
//
// The queue is unbounded so a monitor never applies backpressure to the bus
// it observes. Push may be called from any goroutine; Pop is intended for a
// single consumer.
//
// The queue uses a channel for signaling to enable context-aware waiting
// (prevents goroutine hangs on context cancellation).
type Queue struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
	signal chan struct{} // Signals frame availability (buffered, size 1)
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		frames: make([]Frame, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Push appends f to the back of the queue.
// Returns false if the queue is closed.
func (q *Queue) Push(f Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.frames = append(q.frames, f)

	// Non-blocking: the 1-slot buffer coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryPop removes and returns the front frame without blocking.
// Returns (nil, false) if the queue is empty.
func (q *Queue) TryPop() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *Queue) popLocked() (Frame, bool) {
	if len(q.frames) == 0 {
		return nil, false
	}

	f := q.frames[0]

	// Nil out the slot so the backing array does not pin the frame.
	q.frames[0] = nil

	if len(q.frames) == 1 {
		q.frames = q.frames[:0]
	} else {
		q.frames = q.frames[1:]
	}

	return f, true
}

// Pop removes and returns the front frame, blocking until one is available.
// Returns ctx.Err() if ctx is done first and ErrClosed once the queue is
// closed and drained.
func (q *Queue) Pop(ctx context.Context) (Frame, error) {
	for {
		q.mu.Lock()
		f, ok := q.popLocked()
		closed := q.closed
		q.mu.Unlock()

		if ok {
			return f, nil
		}
		if closed {
			return nil, ErrClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.signal:
		}
	}
}

// Recv makes a Queue usable as a Receiver.
func (q *Queue) Recv(ctx context.Context) (Frame, error) {
	return q.Pop(ctx)
}

// Wait returns a channel that signals when frames may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryPop
//	}
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Close signals that no more frames will be pushed.
// Wakes any blocked waiters by closing the signal channel.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// PopPair removes the front frame of both a and b in one step, blocking until
// both are non-empty. Either both frames are returned or neither is removed.
func PopPair(ctx context.Context, a, b *Queue) (Frame, Frame, error) {
	for {
		if fa, fb, ok := tryPopPair(a, b); ok {
			return fa, fb, nil
		}
		if a.isDrainedClosed() || b.isDrainedClosed() {
			return nil, nil, ErrClosed
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-a.openSignal():
		case <-b.openSignal():
		}
	}
}

// openSignal is the signal channel, or nil once closed (a closed channel
// would spin the select while the other queue is still empty).
func (q *Queue) openSignal() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	return q.signal
}

func tryPopPair(a, b *Queue) (Frame, Frame, bool) {
	// Each queue has a single consumer, so non-empty stays non-empty between
	// the length check and the pops.
	if a.Len() == 0 || b.Len() == 0 {
		return nil, nil, false
	}
	fa, _ := a.TryPop()
	fb, _ := b.TryPop()
	return fa, fb, true
}

func (q *Queue) isDrainedClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.frames) == 0
}
