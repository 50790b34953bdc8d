// Package report writes coverage results: per-sample gap BED files and the
// percentage coverage table.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/covercalc/covercalc/internal/coverage"
	"github.com/covercalc/covercalc/internal/genomic"
)

// GapWriter writes gap regions as BED lines (0-based start, 1-based end).
type GapWriter struct {
	w *bufio.Writer
}

// NewGapWriter creates a new BED gap writer.
func NewGapWriter(w io.Writer) *GapWriter {
	return &GapWriter{w: bufio.NewWriter(w)}
}

// Write writes one line per region.
func (gw *GapWriter) Write(regions []genomic.Region) error {
	for _, r := range regions {
		if _, err := gw.w.WriteString(r.BED() + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (gw *GapWriter) Flush() error {
	return gw.w.Flush()
}

// PercentageWriter writes the sample x group coverage table.
type PercentageWriter struct {
	w      *bufio.Writer
	groups []string
	logger *zap.Logger
}

// NewPercentageWriter creates a table writer with one column per group.
func NewPercentageWriter(w io.Writer, groups []string) *PercentageWriter {
	return &PercentageWriter{
		w:      bufio.NewWriter(w),
		groups: groups,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for diagnostics.
func (pw *PercentageWriter) SetLogger(l *zap.Logger) {
	pw.logger = l
}

// WriteHeader writes the header line.
func (pw *PercentageWriter) WriteHeader() error {
	cols := append([]string{"SampleId"}, pw.groups...)
	_, err := pw.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

// Write writes the row for one sample.
func (pw *PercentageWriter) Write(summary *coverage.Summary, sample string) error {
	values := make([]string, 0, len(pw.groups)+1)
	values = append(values, sample)
	for _, g := range pw.groups {
		values = append(values, pw.format(summary.Get(sample, g), sample, g))
	}
	_, err := pw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// format renders a percentage with two decimals. Undefined percentages
// (empty groups) render as 0.00.
func (pw *PercentageWriter) format(r *coverage.Result, sample, group string) string {
	if r == nil {
		return "0.00"
	}
	pct, err := r.Percentage()
	if errors.Is(err, coverage.ErrDivisionUndefined) {
		pw.logger.Debug("coverage undefined for empty target set",
			zap.String("sample", sample),
			zap.String("group", group))
		return "0.00"
	}
	return fmt.Sprintf("%.2f", pct*100)
}

// Flush flushes any buffered data to the underlying writer.
func (pw *PercentageWriter) Flush() error {
	return pw.w.Flush()
}
