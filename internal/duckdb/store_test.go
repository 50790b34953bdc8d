package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercalc/covercalc/internal/coverage"
	"github.com/covercalc/covercalc/internal/depth"
	"github.com/covercalc/covercalc/internal/genomic"
	"github.com/covercalc/covercalc/internal/target"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testSummary evaluates GENE1 (chr1:1-10) and an empty EMPTY group for S1,
// which passes chr1:1-3 and chr1:7-10.
func testSummary(t *testing.T) *coverage.Summary {
	t.Helper()
	b := target.NewBuilder(0)
	b.SetRequested([]string{"GENE1", "EMPTY"})
	require.NoError(t, b.Add(target.Feature{Contig: "chr1", Start: 1, End: 10, GroupID: "GENE1"}))

	pass := make(depth.PassSet)
	pass.AddRange("chr1", 1, 3)
	pass.AddRange("chr1", 7, 10)
	ps := &depth.PassSets{Samples: []string{"S1"}, Sets: map[string]depth.PassSet{"S1": pass}}

	summary, err := coverage.NewEvaluator().EvaluateAll(context.Background(), b.Build(), ps)
	require.NoError(t, err)
	return summary
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.Empty(t, s.Path())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Equal(t, path, s.Path())
}

func TestWriteAndQueryResults(t *testing.T) {
	s := openInMemory(t)
	summary := testSummary(t)

	require.NoError(t, s.WriteResults("run1", summary))

	rows, err := s.ResultsBySample("run1", "S1")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// ORDER BY group_id: "*" < "EMPTY" < "GENE1"
	assert.Equal(t, target.AllTargetsID, rows[0].Group)
	assert.Equal(t, "EMPTY", rows[1].Group)
	assert.Nil(t, rows[1].Percentage)
	assert.Equal(t, int64(0), rows[1].Targets)

	gene := rows[2]
	assert.Equal(t, "GENE1", gene.Group)
	assert.Equal(t, int64(10), gene.Targets)
	assert.Equal(t, int64(7), gene.Passed)
	require.NotNil(t, gene.Percentage)
	assert.InDelta(t, 0.7, *gene.Percentage, 1e-9)

	byGroup, err := s.ResultsByGroup("run1", "GENE1")
	require.NoError(t, err)
	require.Len(t, byGroup, 1)
	assert.Equal(t, "S1", byGroup[0].Sample)

	gaps, err := s.Gaps("run1", "S1", "GENE1")
	require.NoError(t, err)
	assert.Equal(t, []genomic.Region{{Contig: "chr1", Start: 4, End: 6}}, gaps)

	rows, err = s.ResultsBySample("other", "S1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteResultsEmpty(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteResults("run1", &coverage.Summary{}))

	rows, err := s.ResultsBySample("run1", "S1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWriteAndListRuns(t *testing.T) {
	s := openInMemory(t)

	targets := FileFingerprint{
		Path:    "/data/targets.bed",
		Size:    1234,
		ModTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	run := NewRun(20, 5, targets, Fingerprint("-"))
	assert.NotEmpty(t, run.ID)
	require.NoError(t, s.WriteRun(run))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, 20, got.Threshold)
	assert.Equal(t, 5, got.Padding)
	assert.Equal(t, "/data/targets.bed", got.Targets.Path)
	assert.Equal(t, int64(1234), got.Targets.Size)
	assert.True(t, targets.ModTime.Equal(got.Targets.ModTime))
	assert.Equal(t, "-", got.Depth.Path)
	assert.True(t, got.Depth.ModTime.IsZero())
}

func TestNewRunUniqueIDs(t *testing.T) {
	a := NewRun(20, 5, FileFingerprint{}, FileFingerprint{})
	b := NewRun(20, 5, FileFingerprint{}, FileFingerprint{})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDeleteRun(t *testing.T) {
	s := openInMemory(t)
	run := NewRun(20, 5, FileFingerprint{Path: "t.bed"}, FileFingerprint{Path: "d.txt"})
	require.NoError(t, s.WriteRun(run))
	require.NoError(t, s.WriteResults(run.ID, testSummary(t)))

	require.NoError(t, s.DeleteRun(run.ID))

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
	rows, err := s.ResultsBySample(run.ID, "S1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	gaps, err := s.Gaps(run.ID, "S1", target.AllTargetsID)
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestRecord(t *testing.T) {
	s := openInMemory(t)
	run := NewRun(20, 0, FileFingerprint{Path: "t.bed"}, FileFingerprint{Path: "d.txt"})
	require.NoError(t, s.Record(run, testSummary(t)))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	rows, err := s.ResultsBySample(run.ID, "S1")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRecord_FailedResultsRemoveRun(t *testing.T) {
	s := openInMemory(t)
	summary := testSummary(t)
	run := NewRun(20, 0, FileFingerprint{Path: "t.bed"}, FileFingerprint{Path: "d.txt"})

	// Rows already stored under the run ID collide on the primary key.
	require.NoError(t, s.WriteResults(run.ID, summary))

	err := s.Record(run, summary)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store results")

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth.txt")
	require.NoError(t, os.WriteFile(path, []byte("Locus\tTotal_Depth\n"), 0o644))

	fp := Fingerprint(path)
	assert.Equal(t, path, fp.Path)
	assert.Equal(t, int64(18), fp.Size)
	assert.False(t, fp.ModTime.IsZero())

	missing := Fingerprint(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, missing.ModTime.IsZero())

	_, err := StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
