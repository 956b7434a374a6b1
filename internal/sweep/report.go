package sweep

import (
	"time"

	"github.com/roach88/crcsweep/internal/harness"
)

// PointResult is the verdict for one matrix point.
type PointResult struct {
	Point   Point            `json:"point"`
	Outcome Outcome          `json:"outcome"`
	Detail  string           `json:"detail,omitempty"`
	Stats   harness.RunStats `json:"stats"`

	// Params are the circuit build parameters; nil when the algorithm did
	// not resolve.
	Params map[string]any `json:"params,omitempty"`

	Duration time.Duration `json:"duration_ns"`
}

// Passed reports whether the point passed.
func (r PointResult) Passed() bool {
	return r.Outcome == OutcomePass
}

// Report is the result of one sweep run.
type Report struct {
	RunID      string        `json:"run_id"`
	Name       string        `json:"name"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Seed       uint64        `json:"seed"`
	Planned    int           `json:"planned"`
	Results    []PointResult `json:"results"`

	// Aborted is set when the sweep stopped before every planned point ran,
	// through fail_fast or cancellation.
	Aborted bool `json:"aborted,omitempty"`
}

// Failed reports whether any point did not pass. An aborted sweep with no
// failing point (cancellation) also counts as failed.
func (r *Report) Failed() bool {
	if r.Aborted {
		return true
	}
	for _, res := range r.Results {
		if !res.Passed() {
			return true
		}
	}
	return false
}

// Counts tallies results by outcome.
func (r *Report) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, len(Outcomes))
	for _, res := range r.Results {
		counts[res.Outcome]++
	}
	return counts
}

// Failures returns the non-passing results in run order.
func (r *Report) Failures() []PointResult {
	var out []PointResult
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}
