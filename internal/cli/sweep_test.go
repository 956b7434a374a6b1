package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crcsweep/internal/store"
	"github.com/roach88/crcsweep/internal/sweep"
	"github.com/roach88/crcsweep/internal/testutil"
)

var sweepStart = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newTestSweep(format string, catalog string) *SweepOptions {
	return &SweepOptions{
		RootOptions: &RootOptions{Format: format, Catalog: catalog},
		RunIDs:      testutil.NewFixedRunIDGenerator("run-cli"),
		Now:         testutil.FixedTime(sweepStart),
	}
}

func TestSweepPassesAndStores(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sweeps.db")

	out, _, err := execute(t, newSweepCommand(newTestSweep("text", "")), "testdata/smoke.yaml", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run run-cli (cli-smoke)\n")
	assert.Contains(t, out, "started 2026-10-18T09:00:00Z, 4 of 4 points run\n")
	assert.Contains(t, out, "  kermit_32_1_0")
	assert.Contains(t, out, "4 passed, 0 failed\n")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	report, err := st.LoadReport(context.Background(), "run-cli")
	require.NoError(t, err)
	assert.False(t, report.Failed())
	require.Len(t, report.Results, 4)
	for _, res := range report.Results {
		// size_factor 2 at 32 bits: sizes 1..8, two frames each.
		assert.Equal(t, int64(16), res.Stats.PairsChecked, res.Point.ID())
	}
	assert.Equal(t, "cli-smoke", report.Name)
	assert.Equal(t, uint64(7), report.Seed)
}

func TestSweepJSON(t *testing.T) {
	out, _, err := execute(t, newSweepCommand(newTestSweep("json", "")), "testdata/smoke.yaml", "--width", "64")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   sweep.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-cli", resp.Data.RunID)
	require.Len(t, resp.Data.Results, 4)
	for _, res := range resp.Data.Results {
		assert.Equal(t, 64, res.Point.DataWidth)
		assert.Equal(t, sweep.OutcomePass, res.Outcome)
	}
}

func TestSweepFailures(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantOut    []string
		wantPoints string
	}{
		{
			name: "corrupted result",
			args: []string{"testdata/smoke.yaml", "--algorithm", "crc-32", "--levels", "0", "--corrupt-result", "3"},
			wantOut: []string{
				"checksum_mismatch",
				"CRC output mismatch at pair 3",
			},
			wantPoints: "1 of 1 points run",
		},
		{
			name: "dropped result",
			args: []string{"testdata/smoke.yaml", "--algorithm", "kermit", "--levels", "0", "--drop-result", "16", "--deadline", "100ms"},
			wantOut: []string{
				"timeout",
				"15 of 16 results observed (16 sent)",
			},
			wantPoints: "1 of 1 points run",
		},
		{
			name: "unknown algorithm",
			args: []string{"testdata/unknown.yaml"},
			wantOut: []string{
				"crc-99_32_0_0",
				"unknown_algorithm",
				`unknown CRC algorithm "crc-99"`,
				"1 passed, 1 failed\n",
			},
			wantPoints: "2 of 2 points run",
		},
		{
			name: "fail fast",
			args: []string{"testdata/unknown.yaml", "--algorithm", "crc-99", "--algorithm", "crc-32", "--fail-fast"},
			wantOut: []string{
				"0 passed, 1 failed, aborted\n",
			},
			wantPoints: "1 of 2 points run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, newSweepCommand(newTestSweep("text", "")), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, err.Error(), "E301")
			assert.Contains(t, out, tt.wantPoints)
			for _, want := range tt.wantOut {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestSweepCustomCatalog(t *testing.T) {
	out, _, err := execute(t, newSweepCommand(newTestSweep("text", "testdata/catalog.cue")),
		"testdata/smoke.yaml", "--algorithm", "crc-16-split", "--algorithm", "crc-8", "--levels", "1", "--masks", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "crc-16-split_32_1_1")
	assert.Contains(t, out, "crc-8_32_1_1")
	assert.Contains(t, out, "2 passed, 0 failed\n")
}

func TestSweepCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"missing matrix", []string{"testdata/nope.yaml"}, "E005"},
		{"unknown field", []string{"../sweep/testdata/typo.yaml"}, "E004"},
		{"invalid override", []string{"testdata/smoke.yaml", "--width", "12"}, "E004"},
		{"mask wider than 32 bits", []string{"testdata/smoke.yaml", "--masks", "4294967296"}, "E004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, newSweepCommand(newTestSweep("json", "")), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestSweepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := newSweepCommand(newTestSweep("text", ""))
	cmd.SetContext(ctx)
	out, _, err := execute(t, cmd, "testdata/smoke.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "0 of 4 points run")
	assert.Contains(t, out, "aborted")
}

func TestSweepMaskAtLimit(t *testing.T) {
	out, _, err := execute(t, newSweepCommand(newTestSweep("json", "")),
		"testdata/smoke.yaml", "--algorithm", "crc-32", "--levels", "0", "--masks", "4294967295")
	require.NoError(t, err)

	var resp struct {
		Data sweep.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, uint32(0xFFFFFFFF), resp.Data.Results[0].Point.ReflectPipelineMask)
}
