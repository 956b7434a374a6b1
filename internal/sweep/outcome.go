package sweep

import (
	"errors"
	"fmt"

	"github.com/roach88/crcsweep/internal/crc"
	"github.com/roach88/crcsweep/internal/harness"
	"github.com/roach88/crcsweep/internal/stream"
)

// Outcome classifies one point's result.
type Outcome string

const (
	OutcomePass              Outcome = "pass"
	OutcomeChecksumMismatch  Outcome = "checksum_mismatch"
	OutcomeTimeout           Outcome = "timeout"
	OutcomeUnknownAlgorithm  Outcome = "unknown_algorithm"
	OutcomeProtocolViolation Outcome = "protocol_violation"
	OutcomeBuildError        Outcome = "build_error"
	// OutcomeError covers anything else, such as an invalid catalog entry
	// or a monitor receive failure.
	OutcomeError Outcome = "error"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{
	OutcomePass,
	OutcomeChecksumMismatch,
	OutcomeTimeout,
	OutcomeUnknownAlgorithm,
	OutcomeProtocolViolation,
	OutcomeBuildError,
	OutcomeError,
}

// ParseOutcome converts a stored outcome string back to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	for _, o := range Outcomes {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// Classify maps a point error to its Outcome. A nil error is a pass.
//
// Order matters: a build step can fail with a protocol violation inside,
// and a build failure is reported as such.
func Classify(err error) Outcome {
	var be *BuildError
	switch {
	case err == nil:
		return OutcomePass
	case errors.As(err, &be):
		return OutcomeBuildError
	case harness.IsMismatch(err):
		return OutcomeChecksumMismatch
	case harness.IsTimeout(err):
		return OutcomeTimeout
	case crc.IsUnknownAlgorithm(err):
		return OutcomeUnknownAlgorithm
	case errors.Is(err, stream.ErrProtocolViolation):
		return OutcomeProtocolViolation
	default:
		return OutcomeError
	}
}
