package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/crcsweep/internal/harness"
	"github.com/roach88/crcsweep/internal/sweep"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// createTestReport creates a report header with no results.
func createTestReport(id string, planned int) *sweep.Report {
	return &sweep.Report{
		RunID:     id,
		Name:      "test",
		StartedAt: testStart,
		Seed:      42,
		Planned:   planned,
	}
}

// createTestResult creates a point result with minimal required fields.
func createTestResult(idx int, algorithm string, outcome sweep.Outcome) sweep.PointResult {
	return sweep.PointResult{
		Point: sweep.Point{
			Index:     idx,
			DataWidth: 32,
			Algorithm: algorithm,
		},
		Outcome: outcome,
		Stats: harness.RunStats{
			FramesSent:     54,
			InputObserved:  54,
			OutputObserved: 54,
			PairsChecked:   54,
			Cycles:         1200,
			Elapsed:        3 * time.Millisecond,
		},
		Duration: 4 * time.Millisecond,
	}
}
