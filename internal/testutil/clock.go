package testutil

import (
	"sync"
	"time"
)

// ManualCycleClock is a cycle counter advanced explicitly by the test.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualCycleClock struct {
	mu     sync.Mutex
	cycles int64
}

// NewManualCycleClock creates a clock at cycle 0.
func NewManualCycleClock() *ManualCycleClock {
	return &ManualCycleClock{}
}

// Advance moves the clock forward by n cycles and returns the new count.
func (c *ManualCycleClock) Advance(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles += n
	return c.cycles
}

// Cycles returns the current cycle count.
func (c *ManualCycleClock) Cycles() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

// Reset resets the clock to 0.
func (c *ManualCycleClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles = 0
}

// FixedTime returns a time source that always reports t, for reproducible
// report timestamps.
func FixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
