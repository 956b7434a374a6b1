// Package store provides SQLite-backed durable storage for sweep reports.
//
// Two tables:
//   - runs: one row per sweep, keyed by UUIDv7 run ID
//   - points: one row per finished matrix point, keyed by (run_id, idx)
//
// Store implements sweep.Recorder, so a Controller can persist each point as
// soon as it finishes; a crashed or cancelled sweep leaves every completed
// point on disk.
//
// # Ordering
//
// Points are always read back ORDER BY idx ASC, which is matrix enumeration
// order. Runs list newest first; UUIDv7 IDs sort by creation time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
