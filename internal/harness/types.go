package harness

import "time"

// Config controls one Bench run.
type Config struct {
	// MaxFrameSize is the largest stimulus frame in bytes. Required.
	MaxFrameSize int

	// TrialsPerSize is the number of random frames per size (default 3).
	TrialsPerSize int

	// Seed selects the payload sequence.
	Seed uint64

	// Deadline bounds the wait for quiescence after the last frame is
	// accepted (default 10s).
	Deadline time.Duration

	// CycleBudget bounds the same wait in circuit cycles. Zero disables it.
	CycleBudget int64

	// PollInterval is how often quiescence is sampled (default 1ms).
	PollInterval time.Duration

	// Settle is how long counts must stay unchanged once everything is
	// paired (default 2ms).
	Settle time.Duration
}

// Default values applied by withDefaults.
const (
	DefaultTrialsPerSize = 3
	DefaultDeadline      = 10 * time.Second
	DefaultPollInterval  = time.Millisecond
	DefaultSettle        = 2 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.TrialsPerSize <= 0 {
		c.TrialsPerSize = DefaultTrialsPerSize
	}
	if c.Deadline <= 0 {
		c.Deadline = DefaultDeadline
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Settle < 0 {
		c.Settle = 0
	} else if c.Settle == 0 {
		c.Settle = DefaultSettle
	}
	return c
}

// RunStats summarizes a finished (or failed) run.
type RunStats struct {
	FramesSent     int64         `json:"frames_sent"`
	InputObserved  int64         `json:"input_observed"`
	OutputObserved int64         `json:"output_observed"`
	PairsChecked   int64         `json:"pairs_checked"`
	Cycles         int64         `json:"cycles"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}
