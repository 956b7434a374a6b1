package sweep

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Matrix defines a sweep over circuit configurations.
type Matrix struct {
	// Name labels the sweep in reports.
	Name string `yaml:"name"`

	// Catalog optionally points at a CUE catalog file or directory used
	// instead of the embedded one. Relative to the working directory.
	Catalog string `yaml:"catalog,omitempty"`

	// DataWidths are bus widths in bits. Each must be a positive multiple of 8.
	DataWidths []int `yaml:"data_widths"`

	// PipelineLevels are register stage counts, each >= 0.
	PipelineLevels []int `yaml:"pipeline_levels"`

	// ReflectPipelineMasks are one-hot enables for the reflection pipeline.
	ReflectPipelineMasks []uint32 `yaml:"reflect_pipeline_masks"`

	// Algorithms lists catalog names. Empty means every catalog entry.
	Algorithms []string `yaml:"algorithms,omitempty"`

	// TrialsPerSize is the number of frames per size (default 3).
	TrialsPerSize int `yaml:"trials_per_size,omitempty"`

	// SizeFactor is the largest frame in bus beats (default 4.5).
	SizeFactor float64 `yaml:"size_factor,omitempty"`

	// Deadline bounds each point's quiescence wait.
	Deadline time.Duration `yaml:"deadline,omitempty"`

	// CycleBudget bounds the same wait in circuit cycles; 0 disables it.
	CycleBudget int64 `yaml:"cycle_budget,omitempty"`

	// Settle is the quiet window required after the last result.
	Settle time.Duration `yaml:"settle,omitempty"`

	// Seed is the base payload seed; each point derives its own.
	Seed uint64 `yaml:"seed,omitempty"`

	// FailFast stops the sweep at the first failing point.
	FailFast bool `yaml:"fail_fast,omitempty"`
}

// DefaultMatrix returns the full regression sweep: four bus widths, with and
// without pipelining, reflection pipeline off and fully on, every algorithm.
func DefaultMatrix() *Matrix {
	return &Matrix{
		Name:                 "regression",
		DataWidths:           []int{32, 128, 512, 768},
		PipelineLevels:       []int{0, 1},
		ReflectPipelineMasks: []uint32{0, 0xFFFFFFFF},
	}
}

// LoadMatrix reads and parses a matrix YAML file.
// Unknown fields are rejected.
func LoadMatrix(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix file: %w", err)
	}
	return ParseMatrix(data)
}

// ParseMatrix decodes and validates matrix YAML.
func ParseMatrix(data []byte) (*Matrix, error) {
	var m Matrix
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matrix: %w", err)
	}
	return &m, nil
}

// Validate checks that every axis is non-empty and in range.
func (m *Matrix) Validate() error {
	var errs []error

	if m.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}

	if len(m.DataWidths) == 0 {
		errs = append(errs, errors.New("data_widths must be non-empty"))
	}
	for _, w := range m.DataWidths {
		if w <= 0 || w%8 != 0 {
			errs = append(errs, fmt.Errorf("data width %d is not a positive multiple of 8", w))
		}
	}

	if len(m.PipelineLevels) == 0 {
		errs = append(errs, errors.New("pipeline_levels must be non-empty"))
	}
	for _, l := range m.PipelineLevels {
		if l < 0 {
			errs = append(errs, fmt.Errorf("pipeline level %d is negative", l))
		}
	}

	if len(m.ReflectPipelineMasks) == 0 {
		errs = append(errs, errors.New("reflect_pipeline_masks must be non-empty"))
	}

	for i, name := range m.Algorithms {
		if name == "" {
			errs = append(errs, fmt.Errorf("algorithms[%d] is empty", i))
		}
	}

	if m.TrialsPerSize < 0 {
		errs = append(errs, fmt.Errorf("trials_per_size %d is negative", m.TrialsPerSize))
	}
	if m.SizeFactor < 0 {
		errs = append(errs, fmt.Errorf("size_factor %v is negative", m.SizeFactor))
	}
	if m.Deadline < 0 {
		errs = append(errs, fmt.Errorf("deadline %v is negative", m.Deadline))
	}
	if m.CycleBudget < 0 {
		errs = append(errs, fmt.Errorf("cycle_budget %d is negative", m.CycleBudget))
	}

	return errors.Join(errs...)
}
