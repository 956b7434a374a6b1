package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/crcsweep/internal/harness"
	"github.com/roach88/crcsweep/internal/sweep"
)

// ErrRunNotFound is returned when a run ID has no stored row.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of ListRuns.
type RunSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
	Finished  bool      `json:"finished"`
	Aborted   bool      `json:"aborted"`
	Planned   int       `json:"planned"`
	Recorded  int       `json:"recorded"`
	Passed    int       `json:"passed"`
}

// Failed reports whether the run has any non-passing or missing point.
func (r RunSummary) Failed() bool {
	return r.Aborted || r.Passed < r.Recorded || (r.Finished && r.Recorded < r.Planned)
}

// ListRuns returns run summaries, newest first.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.started_at, r.finished_at IS NOT NULL, r.aborted, r.planned,
		       COUNT(p.idx),
		       COALESCE(SUM(CASE WHEN p.outcome = ? THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN points p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id COLLATE BINARY DESC
		LIMIT ?
	`, string(sweep.OutcomePass), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			r       RunSummary
			started string
		)
		if err := rows.Scan(&r.ID, &r.Name, &started, &r.Finished, &r.Aborted, &r.Planned, &r.Recorded, &r.Passed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRunID returns the most recently started run.
// Returns ErrRunNotFound if the store is empty.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM runs ORDER BY started_at DESC, id COLLATE BINARY DESC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}

// LoadReport rebuilds a sweep report with its points in matrix order.
// Returns ErrRunNotFound (wrapped) for an unknown run ID.
func (s *Store) LoadReport(ctx context.Context, runID string) (*sweep.Report, error) {
	var (
		r        sweep.Report
		seed     int64
		started  string
		finished sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, seed, planned, started_at, finished_at, aborted
		FROM runs WHERE id = ?
	`, runID).Scan(&r.RunID, &r.Name, &seed, &r.Planned, &started, &finished, &r.Aborted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load report %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}
	r.Seed = uint64(seed)
	if r.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if finished.Valid {
		if r.FinishedAt, err = parseTime(finished.String); err != nil {
			return nil, err
		}
	}

	if r.Results, err = s.readPoints(ctx, runID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) readPoints(ctx context.Context, runID string) ([]sweep.PointResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, algorithm, data_width, pipeline_levels, reflect_pipeline_mask,
		       outcome, detail, params,
		       frames_sent, input_observed, output_observed, pairs_checked, cycles, elapsed_ns, duration_ns
		FROM points
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	results := []sweep.PointResult{}
	for rows.Next() {
		res, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points: %w", err)
	}
	return results, nil
}

func scanPoint(rows *sql.Rows) (sweep.PointResult, error) {
	var (
		res               sweep.PointResult
		mask              int64
		outcome, params   string
		elapsed, duration int64
		stats             harness.RunStats
	)
	err := rows.Scan(
		&res.Point.Index,
		&res.Point.Algorithm,
		&res.Point.DataWidth,
		&res.Point.PipelineLevels,
		&mask,
		&outcome,
		&res.Detail,
		&params,
		&stats.FramesSent,
		&stats.InputObserved,
		&stats.OutputObserved,
		&stats.PairsChecked,
		&stats.Cycles,
		&elapsed,
		&duration,
	)
	if err != nil {
		return sweep.PointResult{}, fmt.Errorf("scan point: %w", err)
	}

	res.Point.ReflectPipelineMask = uint32(mask)
	if res.Outcome, err = sweep.ParseOutcome(outcome); err != nil {
		return sweep.PointResult{}, fmt.Errorf("scan point %d: %w", res.Point.Index, err)
	}
	if res.Params, err = unmarshalParams(params); err != nil {
		return sweep.PointResult{}, fmt.Errorf("scan point %d: %w", res.Point.Index, err)
	}
	stats.Elapsed = time.Duration(elapsed)
	res.Stats = stats
	res.Duration = time.Duration(duration)
	return res, nil
}
