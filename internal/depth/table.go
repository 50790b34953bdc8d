package depth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/covercalc/covercalc/internal/genomic"
)

// firstSampleColumn is the index of the first per-sample depth column.
// Columns 1 and 2 hold the total and average depth across samples.
const firstSampleColumn = 3

// TableClassifier reads a tab-separated per-base depth table such as the one
// written by GATK DepthOfCoverage:
//
//	Locus	Total_Depth	Average_Depth_sample	Depth_for_S1	Depth_for_S2
//	chr1:100	57	28.50	30	27
type TableClassifier struct {
	r      io.Reader
	logger *zap.Logger
}

// NewTableClassifier creates a classifier over a depth table.
func NewTableClassifier(r io.Reader) *TableClassifier {
	return &TableClassifier{r: r, logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped rows and cells.
func (c *TableClassifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

// SampleID derives a sample ID from a depth column header: the text after the
// second underscore ("Depth_for_S1" -> "S1").
func SampleID(column string) (string, bool) {
	parts := strings.SplitN(column, "_", 3)
	if len(parts) < 3 || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

// Classify reads the whole table. A header that does not yield the full
// sample list is fatal; malformed rows and cells are skipped.
func (c *TableClassifier) Classify(ctx context.Context, threshold int) (*PassSets, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(c.r)
	// Increase buffer size for wide multi-sample rows
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	lineNum := 0
	var ps *PassSets
	var columns int
	skippedRows, skippedCells := 0, 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		if lineNum%65536 == 1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fields := strings.Split(line, "\t")

		if ps == nil {
			samples, err := parseHeader(fields, lineNum)
			if err != nil {
				return nil, err
			}
			ps = newPassSets(samples)
			columns = len(fields)
			continue
		}

		if len(fields) != columns {
			skippedRows++
			c.logger.Warn("skipping depth row",
				zap.Int("line", lineNum),
				zap.String("reason", fmt.Sprintf("expected %d columns, found %d", columns, len(fields))))
			continue
		}

		loc, err := genomic.ParseLocation(fields[0])
		if err != nil {
			skippedRows++
			c.logger.Warn("skipping depth row", zap.Int("line", lineNum), zap.Error(err))
			continue
		}

		for i, sample := range ps.Samples {
			raw := fields[firstSampleColumn+i]
			depth, err := strconv.Atoi(raw)
			if err != nil {
				skippedCells++
				c.logger.Warn("skipping depth value",
					zap.Int("line", lineNum),
					zap.String("sample", sample),
					zap.String("value", raw))
				continue
			}
			if depth >= threshold {
				ps.Sets[sample].Add(loc)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan depth table: %w", err)
	}
	if ps == nil {
		return nil, fmt.Errorf("read depth table header: %w", ErrNoSamples)
	}

	c.logger.Info("classified depth table",
		zap.Int("samples", len(ps.Samples)),
		zap.Int("lines", lineNum),
		zap.Int("skipped_rows", skippedRows),
		zap.Int("skipped_values", skippedCells))

	return ps, nil
}

// parseHeader extracts sample IDs from the header row.
func parseHeader(fields []string, lineNum int) ([]string, error) {
	if len(fields) <= firstSampleColumn {
		return nil, fmt.Errorf("depth table header has %d columns: %w", len(fields), ErrNoSamples)
	}

	seen := make(map[string]bool)
	samples := make([]string, 0, len(fields)-firstSampleColumn)
	for _, col := range fields[firstSampleColumn:] {
		id, ok := SampleID(col)
		if !ok {
			return nil, &ParseError{
				Line:    lineNum,
				Message: fmt.Sprintf("cannot derive sample ID from column %q", col),
			}
		}
		if seen[id] {
			return nil, &ParseError{
				Line:    lineNum,
				Message: fmt.Sprintf("duplicate sample ID %q", id),
			}
		}
		seen[id] = true
		samples = append(samples, id)
	}
	return samples, nil
}
