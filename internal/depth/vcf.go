package depth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/covercalc/covercalc/internal/genomic"
	"github.com/covercalc/covercalc/internal/vcf"
)

// Genotype quality FORMAT keys, in order of preference.
const (
	KeyRGQ = "RGQ" // reference genotype quality (GATK all-sites output)
	KeyGQ  = "GQ"
)

// VCFClassifier derives pass sets from per-sample genotype quality in a VCF
// or gVCF. A record with INFO END covers every position from POS to END.
// Positions without any record fail for every sample.
type VCFClassifier struct {
	r      io.Reader
	logger *zap.Logger
}

// NewVCFClassifier creates a classifier over a VCF stream.
func NewVCFClassifier(r io.Reader) *VCFClassifier {
	return &VCFClassifier{r: r, logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped records.
func (c *VCFClassifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Quality returns the genotype quality of sample i, preferring RGQ over GQ.
// It reports false when neither is present and numeric.
func Quality(v *vcf.Variant, i int) (float64, bool) {
	for _, key := range []string{KeyRGQ, KeyGQ} {
		raw, ok := v.SampleValue(i, key)
		if !ok {
			continue
		}
		q, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		return q, true
	}
	return 0, false
}

// Classify reads every record. A VCF without sample columns is fatal;
// malformed records are skipped.
func (c *VCFClassifier) Classify(ctx context.Context, threshold int) (*PassSets, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}

	parser, err := vcf.NewParserFromReader(c.r)
	if err != nil {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	defer parser.Close()

	samples := parser.SampleNames()
	if len(samples) == 0 {
		return nil, fmt.Errorf("vcf has no sample columns: %w", ErrNoSamples)
	}
	seen := make(map[string]bool, len(samples))
	for _, s := range samples {
		if seen[s] {
			return nil, fmt.Errorf("duplicate sample %q in vcf header", s)
		}
		seen[s] = true
	}

	ps := newPassSets(append([]string(nil), samples...))
	minQuality := float64(threshold)
	records, skipped := 0, 0

	for {
		if records%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		v, err := parser.Next()
		if err != nil {
			var perr *vcf.ParseError
			if errors.As(err, &perr) {
				skipped++
				c.logger.Warn("skipping vcf record",
					zap.Int("line", perr.Line),
					zap.String("reason", perr.Message))
				continue
			}
			return nil, fmt.Errorf("read vcf record: %w", err)
		}
		if v == nil {
			break
		}
		records++

		end := v.End()
		for i, sample := range ps.Samples {
			q, ok := Quality(v, i)
			if !ok || q < minQuality {
				continue
			}
			set := ps.Sets[sample]
			for pos := v.Pos; pos <= end; pos++ {
				set.Add(genomic.Location{Contig: v.Chrom, Pos: pos})
			}
		}
	}

	c.logger.Info("classified vcf",
		zap.Int("samples", len(ps.Samples)),
		zap.Int("records", records),
		zap.Int("skipped", skipped))

	return ps, nil
}
