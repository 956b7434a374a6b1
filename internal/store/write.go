package store

import (
	"context"
	"fmt"

	"github.com/roach88/crcsweep/internal/sweep"
)

// BeginRun inserts the run header. Uses ON CONFLICT(id) DO NOTHING, so a
// repeated call for the same run ID is a no-op.
func (s *Store) BeginRun(ctx context.Context, r *sweep.Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, seed, planned, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.RunID,
		r.Name,
		int64(r.Seed),
		r.Planned,
		formatTime(r.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordPoint inserts one point result. The run must exist (foreign key).
// Duplicate (run, index) writes are silently ignored.
func (s *Store) RecordPoint(ctx context.Context, runID string, res sweep.PointResult) error {
	params, err := marshalParams(res.Params)
	if err != nil {
		return fmt.Errorf("record point: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO points
		(run_id, idx, algorithm, data_width, pipeline_levels, reflect_pipeline_mask,
		 outcome, detail, params,
		 frames_sent, input_observed, output_observed, pairs_checked, cycles, elapsed_ns, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, idx) DO NOTHING
	`,
		runID,
		res.Point.Index,
		res.Point.Algorithm,
		res.Point.DataWidth,
		res.Point.PipelineLevels,
		int64(res.Point.ReflectPipelineMask),
		string(res.Outcome),
		res.Detail,
		params,
		res.Stats.FramesSent,
		res.Stats.InputObserved,
		res.Stats.OutputObserved,
		res.Stats.PairsChecked,
		res.Stats.Cycles,
		int64(res.Stats.Elapsed),
		int64(res.Duration),
	)
	if err != nil {
		return fmt.Errorf("record point: %w", err)
	}
	return nil
}

// FinishRun stamps the finish time and abort flag.
func (s *Store) FinishRun(ctx context.Context, r *sweep.Report) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, aborted = ? WHERE id = ?
	`,
		formatTime(r.FinishedAt),
		r.Aborted,
		r.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", r.RunID, ErrRunNotFound)
	}
	return nil
}

var _ sweep.Recorder = (*Store)(nil)
