// Package depth classifies per-sample depth or genotype-quality measurements
// into pass sets: the target bases known to meet a minimum threshold.
package depth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/covercalc/covercalc/internal/genomic"
)

// ErrNoSamples is returned when an input does not establish any sample.
var ErrNoSamples = errors.New("no samples found in depth input")

// PassSet holds the locations where a sample meets the threshold. A location
// that is absent failed or was never measured; the two are not distinguished.
type PassSet = genomic.LocationSet

// PassSets holds one PassSet per sample. It is read-only once returned by a
// Classifier and safe for concurrent use.
type PassSets struct {
	Samples []string // sample IDs in input order
	Sets    map[string]PassSet
}

func newPassSets(samples []string) *PassSets {
	ps := &PassSets{
		Samples: samples,
		Sets:    make(map[string]PassSet, len(samples)),
	}
	for _, s := range samples {
		ps.Sets[s] = make(PassSet)
	}
	return ps
}

// Get returns the pass set for sample, or nil if the sample is unknown.
func (ps *PassSets) Get(sample string) PassSet {
	return ps.Sets[sample]
}

// Classifier converts a depth or quality source into per-sample pass sets.
// Comparison against the threshold is inclusive (value >= threshold).
type Classifier interface {
	Classify(ctx context.Context, threshold int) (*PassSets, error)
}

// Format selects a Classifier implementation.
type Format string

// Supported depth input formats.
const (
	FormatTable Format = "table" // per-base depth table (GATK DepthOfCoverage)
	FormatVCF   Format = "vcf"   // per-sample genotype quality (VCF/gVCF)
)

// ParseFormat maps a user-supplied format hint to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table", "depth", "gatk":
		return FormatTable, nil
	case "vcf", "gvcf":
		return FormatVCF, nil
	}
	return "", fmt.Errorf("unknown depth format %q (want table or vcf)", s)
}

// NewClassifier returns the classifier for format reading from r.
// The format is an external hint; r is not sniffed.
func NewClassifier(format Format, r io.Reader, logger *zap.Logger) (Classifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch format {
	case FormatTable:
		c := NewTableClassifier(r)
		c.SetLogger(logger)
		return c, nil
	case FormatVCF:
		c := NewVCFClassifier(r)
		c.SetLogger(logger)
		return c, nil
	}
	return nil, fmt.Errorf("unsupported depth format %q", format)
}

// ParseError represents a malformed depth table line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("depth parse error at line %d: %s", e.Line, e.Message)
}

func checkThreshold(threshold int) error {
	if threshold < 0 {
		return fmt.Errorf("threshold must be >= 0, got %d", threshold)
	}
	return nil
}
