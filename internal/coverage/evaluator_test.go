package coverage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/covercalc/covercalc/internal/depth"
	"github.com/covercalc/covercalc/internal/genomic"
	"github.com/covercalc/covercalc/internal/target"
)

func group(id, contig string, start, end int64) target.Group {
	set := make(genomic.LocationSet)
	set.AddRange(contig, start, end)
	return target.Group{ID: id, Locations: set}
}

func TestEvaluate_EndToEnd(t *testing.T) {
	g := group("GENE1", "chr1", 1, 10)
	pass := make(depth.PassSet)
	pass.AddRange("chr1", 1, 3)
	pass.AddRange("chr1", 7, 10)

	r := Evaluate("S1", g, pass)

	assert.Equal(t, "S1", r.Sample)
	assert.Equal(t, "GENE1", r.Group)
	assert.Equal(t, 10, r.Targets)
	assert.Equal(t, 7, r.Passed)
	assert.Equal(t, []genomic.Location{
		{Contig: "chr1", Pos: 4}, {Contig: "chr1", Pos: 5}, {Contig: "chr1", Pos: 6},
	}, r.Missing.Sorted())
	require.Len(t, r.Gaps, 1)
	assert.Equal(t, genomic.Region{Contig: "chr1", Start: 4, End: 6}, r.Gaps[0])
	assert.Equal(t, "chr1\t3\t6", r.Gaps[0].BED())

	pct, err := r.Percentage()
	require.NoError(t, err)
	assert.InDelta(t, 0.70, pct, 1e-9)
}

func TestEvaluate_PassOutsideTargetIgnored(t *testing.T) {
	g := group("G", "chr1", 100, 104)
	pass := make(depth.PassSet)
	pass.AddRange("chr1", 1, 99)
	pass.AddRange("chr2", 100, 104)

	r := Evaluate("S1", g, pass)
	assert.Equal(t, 0, r.Passed)
	assert.Equal(t, []genomic.Region{{Contig: "chr1", Start: 100, End: 104}}, r.Gaps)
}

func TestEvaluate_FullCoverage(t *testing.T) {
	g := group("G", "chr1", 1, 5)
	pass := make(depth.PassSet)
	pass.AddRange("chr1", 1, 5)

	r := Evaluate("S1", g, pass)
	assert.Equal(t, 0, r.Missing.Len())
	assert.Empty(t, r.Gaps)

	pct, err := r.Percentage()
	require.NoError(t, err)
	assert.Equal(t, 1.0, pct)
}

func TestEvaluate_NilPassSet(t *testing.T) {
	r := Evaluate("S1", group("G", "chr1", 1, 3), nil)
	assert.Equal(t, 0, r.Passed)
	assert.Equal(t, 3, r.Missing.Len())
}

func TestResult_PercentageEmptyGroup(t *testing.T) {
	r := Evaluate("S1", target.Group{ID: "EMPTY", Locations: make(genomic.LocationSet)}, make(depth.PassSet))
	assert.Equal(t, 0, r.Targets)
	assert.Empty(t, r.Gaps)

	_, err := r.Percentage()
	assert.ErrorIs(t, err, ErrDivisionUndefined)
}

func buildCatalog(t *testing.T, features ...target.Feature) *target.Catalog {
	t.Helper()
	b := target.NewBuilder(0)
	for _, f := range features {
		require.NoError(t, b.Add(f))
	}
	return b.Build()
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	catalog := buildCatalog(t,
		target.Feature{Contig: "chr1", Start: 1, End: 10, GroupID: "B"},
		target.Feature{Contig: "chr2", Start: 1, End: 4, GroupID: "A"},
	)

	s1 := make(depth.PassSet)
	s1.AddRange("chr1", 1, 10)
	s2 := make(depth.PassSet)
	s2.AddRange("chr2", 1, 2)
	passSets := &depth.PassSets{
		Samples: []string{"S2", "S1"},
		Sets:    map[string]depth.PassSet{"S1": s1, "S2": s2},
	}

	core, logs := observer.New(zap.InfoLevel)
	e := NewEvaluator()
	e.SetWorkers(3)
	e.SetLogger(zap.New(core))

	summary, err := e.EvaluateAll(context.Background(), catalog, passSets)
	require.NoError(t, err)

	assert.Equal(t, []string{"S2", "S1"}, summary.Samples)
	assert.Equal(t, []string{"A", "B"}, summary.Groups)
	require.Len(t, summary.Results, 6)

	var order []string
	for _, r := range summary.Results {
		order = append(order, r.Sample+"/"+r.Group)
	}
	assert.Equal(t, []string{
		"S2/" + target.AllTargetsID, "S2/A", "S2/B",
		"S1/" + target.AllTargetsID, "S1/A", "S1/B",
	}, order)

	all := summary.Get("S1", target.AllTargetsID)
	require.NotNil(t, all)
	assert.Equal(t, 14, all.Targets)
	assert.Equal(t, 10, all.Passed)
	assert.Equal(t, []genomic.Region{{Contig: "chr2", Start: 1, End: 4}}, all.Gaps)

	a := summary.Get("S2", "A")
	require.NotNil(t, a)
	pct, err := a.Percentage()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pct, 1e-9)

	assert.Nil(t, summary.Get("S3", "A"))
	assert.Equal(t, 1, logs.FilterMessage("evaluated coverage").Len())
}

func TestEvaluator_UnknownSampleFailsEverywhere(t *testing.T) {
	catalog := buildCatalog(t, target.Feature{Contig: "chr1", Start: 1, End: 4, GroupID: "G"})
	passSets := &depth.PassSets{Samples: []string{"S1"}, Sets: map[string]depth.PassSet{}}

	summary, err := NewEvaluator().EvaluateAll(context.Background(), catalog, passSets)
	require.NoError(t, err)
	r := summary.Get("S1", "G")
	require.NotNil(t, r)
	assert.Equal(t, 0, r.Passed)
	assert.Equal(t, 4, r.Missing.Len())
}

func TestEvaluator_NoSamples(t *testing.T) {
	catalog := buildCatalog(t, target.Feature{Contig: "chr1", Start: 1, End: 4, GroupID: "G"})
	summary, err := NewEvaluator().EvaluateAll(context.Background(), catalog, &depth.PassSets{})
	require.NoError(t, err)
	assert.Empty(t, summary.Results)
}

func TestEvaluator_CancelledContext(t *testing.T) {
	catalog := buildCatalog(t,
		target.Feature{Contig: "chr1", Start: 1, End: 10, GroupID: "A"},
		target.Feature{Contig: "chr1", Start: 20, End: 30, GroupID: "B"},
	)
	passSets := &depth.PassSets{
		Samples: []string{"S1", "S2", "S3"},
		Sets:    map[string]depth.PassSet{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEvaluator()
	e.SetWorkers(2)
	summary, err := e.EvaluateAll(ctx, catalog, passSets)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, summary)
}

func TestEvaluator_SetWorkersDefault(t *testing.T) {
	e := NewEvaluator()
	e.SetWorkers(0)
	assert.Positive(t, e.workers)
}
