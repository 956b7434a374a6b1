package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crcsweep/internal/sweep"
)

func TestLoadReport_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := createTestReport("run-1", 3)
	require.NoError(t, s.BeginRun(ctx, r))

	pass := createTestResult(0, "crc-64-jones", sweep.OutcomePass)
	pass.Point.ReflectPipelineMask = 0xFFFFFFFF
	pass.Params = map[string]any{
		"algorithm_name": "crc-64-jones",
		"polynomial":     uint64(0xAD93D23594C935A9),
		"reflect_input":  true,
	}
	mismatch := createTestResult(1, "crc-32", sweep.OutcomeChecksumMismatch)
	mismatch.Detail = "CRC output mismatch at pair 5"
	unknown := createTestResult(2, "crc-99", sweep.OutcomeUnknownAlgorithm)

	// Written out of order; read back in matrix order.
	for _, res := range []sweep.PointResult{unknown, pass, mismatch} {
		require.NoError(t, s.RecordPoint(ctx, r.RunID, res))
	}
	r.FinishedAt = testStart.Add(2 * time.Second)
	require.NoError(t, s.FinishRun(ctx, r))

	got, err := s.LoadReport(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "test", got.Name)
	assert.Equal(t, uint64(42), got.Seed)
	assert.Equal(t, 3, got.Planned)
	assert.Equal(t, testStart, got.StartedAt)
	assert.Equal(t, r.FinishedAt, got.FinishedAt)
	assert.False(t, got.Aborted)

	require.Len(t, got.Results, 3)
	assert.Equal(t, "crc-64-jones", got.Results[0].Point.Algorithm)
	assert.Equal(t, uint32(0xFFFFFFFF), got.Results[0].Point.ReflectPipelineMask)
	assert.Equal(t, pass.Stats, got.Results[0].Stats)
	assert.Equal(t, pass.Duration, got.Results[0].Duration)
	assert.Equal(t, json.Number("12507571717709313449"), got.Results[0].Params["polynomial"],
		"64-bit values survive storage exactly")
	assert.Equal(t, true, got.Results[0].Params["reflect_input"])

	assert.Equal(t, mismatch.Detail, got.Results[1].Detail)
	assert.Nil(t, got.Results[2].Params)
	assert.True(t, got.Failed())
}

func TestLoadReport_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.LoadReport(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestLoadReport_UnfinishedRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, createTestReport("run-1", 4)))

	got, err := s.LoadReport(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, got.FinishedAt.IsZero())
	assert.Empty(t, got.Results)
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs)

	_, err = s.LatestRunID(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	older := createTestReport("run-a", 2)
	newer := createTestReport("run-b", 2)
	newer.StartedAt = testStart.Add(time.Hour)
	require.NoError(t, s.BeginRun(ctx, older))
	require.NoError(t, s.BeginRun(ctx, newer))

	require.NoError(t, s.RecordPoint(ctx, "run-a", createTestResult(0, "crc-32", sweep.OutcomePass)))
	require.NoError(t, s.RecordPoint(ctx, "run-a", createTestResult(1, "crc-16", sweep.OutcomePass)))
	older.FinishedAt = testStart.Add(time.Minute)
	require.NoError(t, s.FinishRun(ctx, older))

	require.NoError(t, s.RecordPoint(ctx, "run-b", createTestResult(0, "crc-32", sweep.OutcomeTimeout)))
	newer.Aborted = true
	newer.FinishedAt = newer.StartedAt.Add(time.Minute)
	require.NoError(t, s.FinishRun(ctx, newer))

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, 1, runs[0].Recorded)
	assert.Equal(t, 0, runs[0].Passed)
	assert.True(t, runs[0].Aborted)
	assert.True(t, runs[0].Failed())

	assert.Equal(t, "run-a", runs[1].ID)
	assert.Equal(t, 2, runs[1].Passed)
	assert.True(t, runs[1].Finished)
	assert.False(t, runs[1].Failed())

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	latest, err := s.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-b", latest)
}

func TestStore_RecordsControllerRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := createTestReport("run-1", 1)
	require.NoError(t, s.BeginRun(ctx, r))
	res := createTestResult(0, "crc-32", sweep.OutcomePass)
	require.NoError(t, s.RecordPoint(ctx, r.RunID, res))
	r.Results = append(r.Results, res)
	r.FinishedAt = testStart.Add(time.Second)
	require.NoError(t, s.FinishRun(ctx, r))

	got, err := s.LoadReport(ctx, r.RunID)
	require.NoError(t, err)
	assert.False(t, got.Failed())
	assert.Equal(t, r.Counts(), got.Counts())
}
