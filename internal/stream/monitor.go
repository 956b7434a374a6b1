package stream

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Monitor passively observes a Receiver and queues every completed frame in
// arrival order.
//
// Thread-safety model:
//   - Start/Stop: serialized by an internal mutex
//   - Count: safe from any goroutine, never blocks
//   - Next: single consumer
type Monitor struct {
	name  string
	src   Receiver
	queue *Queue
	count atomic.Int64

	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewMonitor creates a stopped monitor over src. name labels log records.
func NewMonitor(name string, src Receiver, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		name:   name,
		src:    src,
		queue:  NewQueue(),
		logger: logger.With("monitor", name),
	}
}

// Name returns the monitor label.
func (m *Monitor) Name() string {
	return m.name
}

// Start launches the observation goroutine.
// Returns ErrAlreadyStarted if the monitor is running.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.err = nil

	go m.run(runCtx, m.done)
	return nil
}

// Stop cancels the observation goroutine and waits for it to exit. The queue
// and count survive, so a stopped monitor can be drained and restarted.
// Returns ErrNotStarted if the monitor is not running.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	<-done
	return nil
}

// Count returns the number of complete frames observed so far.
func (m *Monitor) Count() int64 {
	return m.count.Load()
}

// Queue exposes the ordered frame queue to the checker.
func (m *Monitor) Queue() *Queue {
	return m.queue
}

// Next pops the oldest observed frame, blocking until one is available.
func (m *Monitor) Next(ctx context.Context) (Frame, error) {
	return m.queue.Pop(ctx)
}

// Err returns the receive error that ended the last observation run, if any.
// Cancellation through Stop is not an error.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		f, err := m.src.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.mu.Lock()
			m.err = err
			m.mu.Unlock()
			m.logger.Error("monitor stopped on receive error", "error", err, "observed", m.count.Load())
			return
		}

		// Enqueue before counting: Count never runs ahead of the queue.
		m.queue.Push(f)
		n := m.count.Add(1)

		m.logger.Debug("frame observed", "seq", n, "bytes", len(f))
	}
}
