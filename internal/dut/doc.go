// Package dut is a behavioral model of the streaming CRC circuit.
//
// The model is cycle-based. Frames are split into bus beats of DataWidth/8
// bytes; one beat is accepted per cycle through a small skid buffer, so a
// slow core backpressures the sender. Each accepted beat is folded into a
// bit-serial CRC register that holds the post-XOR value and starts from the
// normalized init parameter. A frame's result appears 1 + PipelineLevels
// cycles after its last beat, one more when any reflection pipeline stage is
// enabled.
//
// Faults can be injected to exercise the harness: corrupt a result, drop a
// result, or stall the input periodically.
package dut
