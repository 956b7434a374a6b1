// Package sweep runs the conformance bench across a matrix of circuit
// configurations and collects one outcome per point.
//
// A Matrix (YAML) names the axes: bus data widths, pipeline levels,
// reflection pipeline masks and algorithms. Points enumerates their Cartesian
// product; for each point the Controller resolves the algorithm, asks a
// Builder for a fresh Circuit, runs a harness.Bench against it and classifies
// the result. A failing point is recorded and the sweep moves on, unless the
// matrix sets fail_fast.
package sweep
