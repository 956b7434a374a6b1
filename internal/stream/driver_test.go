package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type violatingSender struct{}

func (violatingSender) Send(ctx context.Context, f Frame) error {
	return fmt.Errorf("tvalid dropped mid-frame: %w", ErrProtocolViolation)
}

func TestDriver_PreservesOrder(t *testing.T) {
	p := NewPipe(4)
	d := NewDriver(p, nil)
	ctx := context.Background()

	go func() {
		for i := byte(0); i < 20; i++ {
			_ = d.Send(ctx, Frame{i})
		}
	}()

	for i := byte(0); i < 20; i++ {
		f, err := p.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, Frame{i}, f)
	}
	require.Eventually(t, func() bool { return d.Sent() == 20 }, time.Second, time.Millisecond)
}

func TestDriver_BlocksOnBackpressure(t *testing.T) {
	p := NewPipe(0)
	d := NewDriver(p, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Send(ctx, Frame{1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(0), d.Sent())
}

func TestDriver_CopiesFrame(t *testing.T) {
	p := NewPipe(1)
	d := NewDriver(p, nil)

	buf := Frame{1, 2, 3}
	require.NoError(t, d.Send(context.Background(), buf))
	buf[0] = 0xFF

	f, err := p.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Frame{1, 2, 3}, f)
}

func TestDriver_RejectsEmptyFrame(t *testing.T) {
	d := NewDriver(NewPipe(1), nil)

	err := d.Send(context.Background(), Frame{})
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestDriver_PropagatesProtocolViolation(t *testing.T) {
	d := NewDriver(violatingSender{}, nil)

	err := d.Send(context.Background(), Frame{1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocolViolation))
	assert.Contains(t, err.Error(), "send frame 1")
	assert.Equal(t, int64(0), d.Sent())
}

func TestPipe_Close(t *testing.T) {
	p := NewPipe(0)
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Send(context.Background(), Frame{1}), ErrClosed)
	_, err := p.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFrame_CloneAndString(t *testing.T) {
	f := Frame{0xDE, 0xAD}
	c := f.Clone()
	c[0] = 0
	assert.Equal(t, "dead", f.String())
	assert.Nil(t, Frame(nil).Clone())
}
