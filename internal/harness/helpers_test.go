package harness

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crcsweep/internal/crc"
	"github.com/roach88/crcsweep/internal/stream"
)

// loopback is a zero-latency stand-in circuit: every accepted frame is
// published on the tap and answered with its reference CRC.
type loopback struct {
	spec crc.Spec
	in   *stream.Pipe
	tap  *stream.Queue
	out  *stream.Queue

	// 1-based frame numbers to fault; 0 disables.
	corruptAt int64
	dropAt    int64
	swapAt    int64

	cycles atomic.Int64
}

func newLoopback(t *testing.T, spec crc.Spec, configure func(*loopback)) *loopback {
	t.Helper()
	lb := &loopback{
		spec: spec,
		in:   stream.NewPipe(0),
		tap:  stream.NewQueue(),
		out:  stream.NewQueue(),
	}
	if configure != nil {
		configure(lb)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		lb.run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return lb
}

func (lb *loopback) run(ctx context.Context) {
	var n int64
	var held stream.Frame
	for {
		f, err := lb.in.Recv(ctx)
		if err != nil {
			return
		}
		n++
		lb.cycles.Add(int64(len(f)))
		lb.tap.Push(f)

		v := lb.spec.Reference(f)
		if n == lb.corruptAt {
			v ^= 1
		}
		result := stream.Frame(lb.spec.Encode(v))
		switch {
		case n == lb.dropAt:
		case n == lb.swapAt:
			held = result
		case held != nil:
			lb.out.Push(result)
			lb.out.Push(held)
			held = nil
		default:
			lb.out.Push(result)
		}
	}
}

func (lb *loopback) Cycles() int64 {
	return lb.cycles.Load()
}

func (lb *loopback) endpoints() Endpoints {
	return Endpoints{Input: lb.in, InputTap: lb.tap, Output: lb.out, Clock: lb}
}

func resolve(t *testing.T, name string) crc.Spec {
	t.Helper()
	cat, err := crc.DefaultCatalog()
	require.NoError(t, err)
	spec, err := crc.NewResolver(cat).Resolve(name)
	require.NoError(t, err)
	return spec
}
