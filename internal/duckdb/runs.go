package duckdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/covercalc/covercalc/internal/coverage"
)

// Run records the parameters and inputs of one coverage run.
type Run struct {
	ID        string
	StartedAt time.Time
	Threshold int
	Padding   int
	Targets   FileFingerprint
	Depth     FileFingerprint
}

// NewRun creates a run with a fresh random identifier.
func NewRun(threshold, padding int, targets, depth FileFingerprint) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Threshold: threshold,
		Padding:   padding,
		Targets:   targets,
		Depth:     depth,
	}
}

// WriteRun inserts a run row.
func (s *Store) WriteRun(r Run) error {
	tPath, tSize, tMtime := r.Targets.columns()
	dPath, dSize, dMtime := r.Depth.columns()
	_, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt, r.Threshold, r.Padding,
		tPath, tSize, tMtime,
		dPath, dSize, dMtime)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Record stores a run together with its results. When the results cannot
// be written the run is deleted again, so no run is left without results.
func (s *Store) Record(r Run, summary *coverage.Summary) error {
	if err := s.WriteRun(r); err != nil {
		return err
	}
	if err := s.WriteResults(r.ID, summary); err != nil {
		return multierr.Append(
			fmt.Errorf("store results: %w", err),
			s.DeleteRun(r.ID))
	}
	return nil
}

// Runs returns all recorded runs, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT
		run_id, started_at, threshold, padding,
		target_path, target_size, target_mtime,
		depth_path, depth_size, depth_mtime
		FROM runs
		ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r              Run
			tPath, dPath   string
			tSize, dSize   sql.NullInt64
			tMtime, dMtime sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Threshold, &r.Padding,
			&tPath, &tSize, &tMtime,
			&dPath, &dSize, &dMtime); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Targets = scanFingerprint(tPath, tSize, tMtime)
		r.Depth = scanFingerprint(dPath, dSize, dMtime)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and all of its results.
func (s *Store) DeleteRun(runID string) error {
	for _, table := range []string{"gap_regions", "coverage_results", "runs"} {
		if _, err := s.db.Exec("DELETE FROM "+table+" WHERE run_id=?", runID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}
