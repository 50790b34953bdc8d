package depth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/covercalc/covercalc/internal/genomic"
	"github.com/covercalc/covercalc/internal/vcf"
)

const allSitesVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2
chr1	1	.	A	.	.	.	.	GT:RGQ:GQ	0/0:20:5	0/0:19:99
chr1	2	.	C	T	.	.	.	GT:GQ	0/1:20	0/1:.
chr1	3	.	G	<NON_REF>	.	.	END=6	GT:GQ	0/0:40	0/0:10
chr1	bad	.	G	A	.	.	.	GT:GQ	0/1:99	0/1:99
chr2	7	.	T	.	.	.	.	GT	0/0	0/0
`

func TestVCFClassifier(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := NewVCFClassifier(strings.NewReader(allSitesVCF))
	c.SetLogger(zap.New(core))

	ps, err := c.Classify(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2"}, ps.Samples)
	// S1: RGQ 20 at 1 (preferred over GQ 5), GQ 20 at 2, block 3-6 at GQ 40.
	assert.Equal(t, []genomic.Region{{Contig: "chr1", Start: 1, End: 6}}, genomic.Merge(ps.Get("S1")))
	// S2: RGQ 19 at 1 fails even though GQ is 99; missing GQ at 2; block at GQ 10.
	assert.Equal(t, 0, ps.Get("S2").Len())

	assert.Equal(t, 1, logs.FilterMessage("skipping vcf record").Len())
}

func TestVCFClassifier_NoSamples(t *testing.T) {
	content := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"
	_, err := NewVCFClassifier(strings.NewReader(content)).Classify(context.Background(), 20)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestVCFClassifier_MissingHeader(t *testing.T) {
	_, err := NewVCFClassifier(strings.NewReader("chr1\t1\t.\tA\tC\t.\t.\t.\n")).Classify(context.Background(), 20)
	var perr *vcf.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestVCFClassifier_NonPositivePosition(t *testing.T) {
	content := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\n" +
		"chr1\t0\t.\tA\t.\t.\t.\t.\tGQ\t99\n" +
		"chr1\t-3\t.\tA\t.\t.\t.\tEND=2\tGQ\t99\n" +
		"chr1\t5\t.\tA\t.\t.\t.\t.\tGQ\t99\n"
	core, logs := observer.New(zap.WarnLevel)
	c := NewVCFClassifier(strings.NewReader(content))
	c.SetLogger(zap.New(core))

	ps, err := c.Classify(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, []genomic.Region{{Contig: "chr1", Start: 5, End: 5}}, genomic.Merge(ps.Get("S1")))
	assert.Equal(t, 2, logs.FilterMessage("skipping vcf record").Len())
}

func TestQuality(t *testing.T) {
	tests := []struct {
		name   string
		format []string
		sample string
		want   float64
		ok     bool
	}{
		{"RGQ preferred", []string{"GT", "GQ", "RGQ"}, "0/0:10:30", 30, true},
		{"GQ fallback", []string{"GT", "GQ"}, "0/1:45", 45, true},
		{"missing RGQ falls back", []string{"GT", "RGQ", "GQ"}, "0/0:.:12", 12, true},
		{"float GQ", []string{"GQ"}, "17.5", 17.5, true},
		{"none", []string{"GT", "DP"}, "0/0:30", 0, false},
		{"non-numeric", []string{"GQ"}, "high", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &vcf.Variant{Format: tt.format, Samples: []string{tt.sample}}
			q, ok := Quality(v, 0)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, q)
		})
	}
}
