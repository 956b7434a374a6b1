// Package harness checks a streaming CRC circuit against a software
// reference.
//
// A Bench owns one run against one circuit instance:
//
//   - a stream.Driver pushes the stimulus plan into the circuit input
//   - an input Monitor observes frames completing on the input bus
//   - an output Monitor observes result frames
//   - a Checker pairs the i-th input frame with the i-th result frame and
//     compares the result to crc.Spec.Reference
//
// # Stimulus
//
// For every frame size from 1 byte through Config.MaxFrameSize the bench
// sends Config.TrialsPerSize random frames, in increasing size order. Payloads
// come from a seeded PCG source so a failing run can be replayed.
//
// # Completion
//
// The circuit's latency is unknown, so after the last frame is accepted the
// bench polls until both monitors have seen every frame, the checker has
// consumed every pair and nothing changed for Config.Settle. Config.Deadline
// (wall clock) and Config.CycleBudget (circuit cycles) bound that wait; running
// out yields a TimeoutError, which is distinct from a MismatchError.
//
// # Errors
//
// A mismatch stops the checker: once one pair is wrong, alignment of every
// later pair is unverifiable. Nothing is retried.
package harness
