package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/covercalc/covercalc/internal/coverage"
	"github.com/covercalc/covercalc/internal/genomic"
)

// CoverageRow is one stored (sample, group) result. Percentage is nil for
// empty groups.
type CoverageRow struct {
	RunID      string
	Sample     string
	Group      string
	Targets    int64
	Passed     int64
	Percentage *float64
}

// WriteResults batch-inserts every result of a summary, and its gap
// regions, using the Appender API.
func (s *Store) WriteResults(runID string, summary *coverage.Summary) error {
	if len(summary.Results) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	err = withAppender(conn, "coverage_results", func(a *goduckdb.Appender) error {
		for _, r := range summary.Results {
			var pct any
			if p, err := r.Percentage(); err == nil {
				pct = p
			}
			if err := a.AppendRow(runID, r.Sample, r.Group,
				int64(r.Targets), int64(r.Passed), pct); err != nil {
				return fmt.Errorf("append coverage result: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return withAppender(conn, "gap_regions", func(a *goduckdb.Appender) error {
		for _, r := range summary.Results {
			for _, g := range r.Gaps {
				if err := a.AppendRow(runID, r.Sample, r.Group,
					g.Contig, g.Start, g.End); err != nil {
					return fmt.Errorf("append gap region: %w", err)
				}
			}
		}
		return nil
	})
}

func withAppender(conn *sql.Conn, table string, fn func(*goduckdb.Appender) error) error {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create %s appender: %w", table, err)
	}
	defer appender.Close()

	if err := fn(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// ResultsBySample returns a run's results for one sample, ordered by group.
func (s *Store) ResultsBySample(runID, sample string) ([]CoverageRow, error) {
	rows, err := s.db.Query(`SELECT
		run_id, sample, group_id, targets, passed, percentage
		FROM coverage_results
		WHERE run_id=? AND sample=?
		ORDER BY group_id`, runID, sample)
	if err != nil {
		return nil, fmt.Errorf("query by sample: %w", err)
	}
	defer rows.Close()

	return scanCoverageRows(rows)
}

// ResultsByGroup returns a run's results for one group, ordered by sample.
func (s *Store) ResultsByGroup(runID, group string) ([]CoverageRow, error) {
	rows, err := s.db.Query(`SELECT
		run_id, sample, group_id, targets, passed, percentage
		FROM coverage_results
		WHERE run_id=? AND group_id=?
		ORDER BY sample`, runID, group)
	if err != nil {
		return nil, fmt.Errorf("query by group: %w", err)
	}
	defer rows.Close()

	return scanCoverageRows(rows)
}

// Gaps returns the stored gap regions of one (sample, group) result.
func (s *Store) Gaps(runID, sample, group string) ([]genomic.Region, error) {
	rows, err := s.db.Query(`SELECT chrom, start_pos, end_pos
		FROM gap_regions
		WHERE run_id=? AND sample=? AND group_id=?
		ORDER BY chrom, start_pos`, runID, sample, group)
	if err != nil {
		return nil, fmt.Errorf("query gaps: %w", err)
	}
	defer rows.Close()

	var gaps []genomic.Region
	for rows.Next() {
		var r genomic.Region
		if err := rows.Scan(&r.Contig, &r.Start, &r.End); err != nil {
			return nil, fmt.Errorf("scan gap: %w", err)
		}
		gaps = append(gaps, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gaps: %w", err)
	}
	return gaps, nil
}

// scanCoverageRows scans rows into CoverageRow slices.
func scanCoverageRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]CoverageRow, error) {
	var results []CoverageRow
	for rows.Next() {
		var (
			r   CoverageRow
			pct sql.NullFloat64
		)
		if err := rows.Scan(&r.RunID, &r.Sample, &r.Group, &r.Targets, &r.Passed, &pct); err != nil {
			return nil, fmt.Errorf("scan coverage result: %w", err)
		}
		if pct.Valid {
			p := pct.Float64
			r.Percentage = &p
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage results: %w", err)
	}
	return results, nil
}
