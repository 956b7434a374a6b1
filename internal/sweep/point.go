package sweep

import (
	"fmt"
	"hash/fnv"

	"github.com/roach88/crcsweep/internal/crc"
	"github.com/roach88/crcsweep/internal/harness"
)

// Point is one cell of the sweep matrix.
type Point struct {
	Index               int    `json:"index"`
	DataWidth           int    `json:"data_width"`
	PipelineLevels      int    `json:"pipeline_levels"`
	ReflectPipelineMask uint32 `json:"reflect_pipeline_mask"`
	Algorithm           string `json:"algorithm"`
}

// ID names the point the way build directories are named:
// <algorithm>_<width>_<levels>_<mask>.
func (p Point) ID() string {
	return fmt.Sprintf("%s_%d_%d_%d", p.Algorithm, p.DataWidth, p.PipelineLevels, p.ReflectPipelineMask)
}

// MaxFrameSize returns the largest stimulus frame for this point.
func (p Point) MaxFrameSize(factor float64) int {
	return harness.MaxFrameSize(p.DataWidth, factor)
}

// Seed derives a per-point payload seed from the sweep seed so every point
// gets distinct, reproducible payloads.
func (p Point) Seed(base uint64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(p.ID()))
	return base ^ h.Sum64()
}

// Points enumerates the Cartesian product of the matrix axes in nested order:
// data width, pipeline levels, reflect mask, algorithm. algorithms is used
// when the matrix names none.
func Points(m *Matrix, algorithms []string) []Point {
	names := m.Algorithms
	if len(names) == 0 {
		names = algorithms
	}

	points := make([]Point, 0, len(m.DataWidths)*len(m.PipelineLevels)*len(m.ReflectPipelineMasks)*len(names))
	for _, w := range m.DataWidths {
		for _, l := range m.PipelineLevels {
			for _, mask := range m.ReflectPipelineMasks {
				for _, name := range names {
					points = append(points, Point{
						Index:               len(points),
						DataWidth:           w,
						PipelineLevels:      l,
						ReflectPipelineMask: mask,
						Algorithm:           name,
					})
				}
			}
		}
	}
	return points
}

// CircuitConfig is everything build tooling needs to elaborate one circuit.
type CircuitConfig struct {
	Point Point
	Spec  crc.Spec
}

// NewCircuitConfig pairs a point with its resolved checksum parameters.
func NewCircuitConfig(p Point, spec crc.Spec) CircuitConfig {
	return CircuitConfig{Point: p, Spec: spec}
}

// Params returns the build parameters keyed by name. Init is the normalized
// value (raw init XOR xor_out).
func (c CircuitConfig) Params() map[string]any {
	return map[string]any{
		"data_width":            c.Point.DataWidth,
		"pipeline_levels":       c.Point.PipelineLevels,
		"reflect_pipeline_mask": c.Point.ReflectPipelineMask,
		"algorithm_name":        c.Spec.Name,
		"checksum_width":        c.Spec.Width,
		"polynomial":            c.Spec.Poly,
		"init":                  c.Spec.Init,
		"xor_out":               c.Spec.XorOut,
		"reflect_input":         c.Spec.ReflectIn,
		"reflect_output":        c.Spec.ReflectOut,
	}
}
