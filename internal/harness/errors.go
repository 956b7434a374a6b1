package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/crcsweep/internal/stream"
)

// MismatchError reports a result frame that disagrees with the reference.
// Input and Output are the evidence verbatim.
type MismatchError struct {
	// Index is the 1-based pair number within the run.
	Index int64

	Input  stream.Frame
	Output stream.Frame

	Expected uint64
	Actual   uint64

	// Width is the CRC width in bits, used for hex formatting.
	Width uint

	// DecodeErr is set when Output could not be decoded at all (wrong
	// length); Actual is then meaningless.
	DecodeErr error
}

func (e *MismatchError) Error() string {
	digits := int(e.Width+3) / 4
	if e.DecodeErr != nil {
		return fmt.Sprintf("CRC output mismatch at pair %d: input=%s output=%s expected=0x%0*X: %v",
			e.Index, e.Input, e.Output, digits, e.Expected, e.DecodeErr)
	}
	return fmt.Sprintf("CRC output mismatch at pair %d: input=%s output=%s expected=0x%0*X actual=0x%0*X",
		e.Index, e.Input, e.Output, digits, e.Expected, digits, e.Actual)
}

// TimeoutError reports that the circuit did not produce a result for every
// frame before the deadline.
type TimeoutError struct {
	// Observed is the number of result frames seen.
	Observed int64
	// Expected is the number of input frames seen on the input bus.
	Expected int64
	// Sent is the number of frames the driver submitted.
	Sent int64

	Elapsed time.Duration
	Cycles  int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for quiescence: %d of %d results observed (%d sent) after %v, %d cycles",
		e.Observed, e.Expected, e.Sent, e.Elapsed.Round(time.Microsecond), e.Cycles)
}

// IsMismatch returns true if err is a MismatchError.
// Uses errors.As to handle wrapped errors.
func IsMismatch(err error) bool {
	var me *MismatchError
	return errors.As(err, &me)
}

// IsTimeout returns true if err is a TimeoutError.
// Uses errors.As to handle wrapped errors.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
