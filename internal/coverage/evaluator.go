// Package coverage evaluates target groups against per-sample pass sets,
// producing missing bases, gap regions and coverage percentages.
package coverage

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/covercalc/covercalc/internal/depth"
	"github.com/covercalc/covercalc/internal/genomic"
	"github.com/covercalc/covercalc/internal/target"
)

// ErrDivisionUndefined is returned when a percentage is requested for a
// group with no target bases.
var ErrDivisionUndefined = errors.New("coverage percentage undefined for empty target group")

// Result is the coverage of one group for one sample.
type Result struct {
	Sample  string
	Group   string
	Targets int                 // |target|
	Passed  int                 // |target| - |missing|
	Missing genomic.LocationSet // target - pass
	Gaps    []genomic.Region    // Missing merged into contiguous regions
}

// Percentage returns Passed/Targets in [0, 1].
func (r *Result) Percentage() (float64, error) {
	if r.Targets == 0 {
		return 0, ErrDivisionUndefined
	}
	return float64(r.Passed) / float64(r.Targets), nil
}

// Evaluate computes the coverage of group g for a sample's pass set.
// It is a pure function of its inputs and safe to call concurrently.
func Evaluate(sample string, g target.Group, pass depth.PassSet) *Result {
	missing := g.Locations.Difference(pass)
	return &Result{
		Sample:  sample,
		Group:   g.ID,
		Targets: g.Len(),
		Passed:  g.Len() - missing.Len(),
		Missing: missing,
		Gaps:    genomic.Merge(missing),
	}
}

// Summary holds every result of a run, sample-major. For each sample the
// all-targets result comes first, followed by the groups in catalog order.
type Summary struct {
	Samples []string
	Groups  []string
	Results []*Result

	index map[resultKey]*Result
}

type resultKey struct {
	sample, group string
}

// Get returns the result for sample and group (target.AllTargetsID for the
// union), or nil.
func (s *Summary) Get(sample, group string) *Result {
	return s.index[resultKey{sample, group}]
}

// Evaluator runs Evaluate over every (sample, group) pair on a worker pool.
type Evaluator struct {
	workers int
	logger  *zap.Logger
}

// NewEvaluator creates an evaluator using runtime.NumCPU() workers.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
}

// SetWorkers sets the pool size. Values <= 0 select runtime.NumCPU().
func (e *Evaluator) SetWorkers(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	e.workers = n
}

// SetLogger sets the logger for diagnostics.
func (e *Evaluator) SetLogger(l *zap.Logger) {
	e.logger = l
}

// EvaluateAll evaluates every group of the catalog, plus the all-targets
// union, for every sample. The catalog and pass sets are only read. A
// cancelled context stops the pool and no partial summary is returned.
func (e *Evaluator) EvaluateAll(ctx context.Context, catalog *target.Catalog, passSets *depth.PassSets) (*Summary, error) {
	groups := catalog.Groups()
	perSample := len(groups) + 1

	items := make(chan WorkItem, 2*e.workers)
	go func() {
		defer close(items)
		seq := 0
		for _, sample := range passSets.Samples {
			pass := passSets.Get(sample)
			for i := range perSample {
				g := catalog.All()
				if i > 0 {
					g, _ = catalog.Group(groups[i-1])
				}
				select {
				case items <- WorkItem{Seq: seq, Sample: sample, Group: g, Pass: pass}:
				case <-ctx.Done():
					return
				}
				seq++
			}
		}
	}()

	summary := &Summary{
		Samples: passSets.Samples,
		Groups:  groups,
		Results: make([]*Result, 0, len(passSets.Samples)*perSample),
		index:   make(map[resultKey]*Result, len(passSets.Samples)*perSample),
	}

	err := OrderedCollect(ParallelEvaluate(items, e.workers), func(r WorkResult) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Results = append(summary.Results, r.Result)
		summary.index[resultKey{r.Result.Sample, r.Result.Group}] = r.Result
		return nil
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("evaluate coverage: %w", err)
	}

	e.logger.Info("evaluated coverage",
		zap.Int("samples", len(passSets.Samples)),
		zap.Int("groups", len(groups)),
		zap.Int("workers", e.workers))

	return summary, nil
}
