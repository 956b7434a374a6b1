// Package stream carries byte frames between the harness and a circuit's
// stream endpoints.
//
// A Driver pushes stimulus frames into a Sender, suspending while the
// endpoint applies backpressure. A Monitor passively receives completed
// frames from a Receiver and appends them, in arrival order, to its unbounded
// Queue while keeping a running frame count.
//
// # Ordering
//
// Monitors enqueue a frame before bumping their count, so a reader of Count
// never sees a frame that is not yet poppable. Each Queue has exactly one
// producer (its Monitor) and one consumer (the checker).
package stream
