package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/covercalc/covercalc/internal/duckdb"
)

// ResultsWriter writes stored coverage rows as a tab-separated table.
type ResultsWriter struct {
	w *bufio.Writer
}

// NewResultsWriter creates a stored results writer.
func NewResultsWriter(w io.Writer) *ResultsWriter {
	return &ResultsWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (rw *ResultsWriter) WriteHeader() error {
	_, err := rw.w.WriteString("SampleId\tGroup\tTargets\tPassed\tPercentage\n")
	return err
}

// Write writes one line per row. Rows without a percentage (empty groups)
// render as NA.
func (rw *ResultsWriter) Write(rows []duckdb.CoverageRow) error {
	for _, r := range rows {
		pct := "NA"
		if r.Percentage != nil {
			pct = fmt.Sprintf("%.2f", *r.Percentage*100)
		}
		line := strings.Join([]string{
			r.Sample,
			r.Group,
			strconv.FormatInt(r.Targets, 10),
			strconv.FormatInt(r.Passed, 10),
			pct,
		}, "\t")
		if _, err := rw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (rw *ResultsWriter) Flush() error {
	return rw.w.Flush()
}

// RunsWriter lists stored runs, one per line.
type RunsWriter struct {
	w *bufio.Writer
}

// NewRunsWriter creates a run list writer.
func NewRunsWriter(w io.Writer) *RunsWriter {
	return &RunsWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (rw *RunsWriter) WriteHeader() error {
	_, err := rw.w.WriteString("RunId\tStartedAt\tMinDepth\tPadding\tTargets\tDepth\n")
	return err
}

// Write writes one line per run.
func (rw *RunsWriter) Write(runs []duckdb.Run) error {
	for _, r := range runs {
		line := strings.Join([]string{
			r.ID,
			r.StartedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(r.Threshold),
			strconv.Itoa(r.Padding),
			r.Targets.Path,
			r.Depth.Path,
		}, "\t")
		if _, err := rw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (rw *RunsWriter) Flush() error {
	return rw.w.Flush()
}
