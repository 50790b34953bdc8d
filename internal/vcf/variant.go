// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"strconv"
	"strings"
)

// MissingValue is the VCF placeholder for an absent value.
const MissingValue = "."

// Variant represents a single record from a VCF or gVCF file.
type Variant struct {
	Chrom   string                 // Chromosome name (e.g., "12", "chr12")
	Pos     int64                  // 1-based genomic position
	ID      string                 // Variant identifier (e.g., rs ID)
	Ref     string                 // Reference allele
	Alt     string                 // Alternate allele(s), comma separated
	Qual    float64                // Quality score
	Filter  string                 // Filter status (PASS or filter name)
	Info    map[string]interface{} // INFO field key-value pairs
	Format  []string               // FORMAT keys (e.g., GT, DP, GQ, RGQ)
	Samples []string               // Raw per-sample columns, in header order
}

// End returns the last position covered by the record. gVCF reference
// blocks carry it in INFO END; other records cover only Pos.
func (v *Variant) End() int64 {
	if raw, ok := v.Info["END"].(string); ok {
		if end, err := strconv.ParseInt(raw, 10, 64); err == nil && end >= v.Pos {
			return end
		}
	}
	return v.Pos
}

// FormatIndex returns the index of key in the FORMAT column, or -1.
func (v *Variant) FormatIndex(key string) int {
	for i, k := range v.Format {
		if k == key {
			return i
		}
	}
	return -1
}

// SampleValue returns the value of FORMAT key for sample i.
// It reports false when the key is absent, the sample column is truncated
// (trailing fields may be dropped), or the value is missing (".").
func (v *Variant) SampleValue(i int, key string) (string, bool) {
	idx := v.FormatIndex(key)
	if idx < 0 || i < 0 || i >= len(v.Samples) {
		return "", false
	}

	values := strings.Split(v.Samples[i], ":")
	if idx >= len(values) {
		return "", false
	}

	val := values[idx]
	if val == "" || val == MissingValue {
		return "", false
	}
	return val, true
}
