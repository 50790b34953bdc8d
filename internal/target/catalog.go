package target

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/covercalc/covercalc/internal/genomic"
)

// AllTargetsID identifies the union of every group's targets.
const AllTargetsID = "*"

// Group is a named, deduplicated set of target bases.
type Group struct {
	ID        string
	Locations genomic.LocationSet
}

// Len returns the number of target bases in the group.
func (g Group) Len() int {
	return g.Locations.Len()
}

// Catalog holds target groups built once per run. It is read-only after
// Build and safe for concurrent use.
type Catalog struct {
	groups map[string]genomic.LocationSet
	all    genomic.LocationSet
	ids    []string
	empty  []string
}

// Groups returns the group IDs in sorted order.
func (c *Catalog) Groups() []string {
	return slices.Clone(c.ids)
}

// Group returns the group with the given ID. A missing group is reported as
// a zero-size group with ok == false.
func (c *Catalog) Group(id string) (Group, bool) {
	if id == AllTargetsID {
		return c.All(), true
	}
	set, ok := c.groups[id]
	return Group{ID: id, Locations: set}, ok
}

// All returns the union of every group's targets.
func (c *Catalog) All() Group {
	return Group{ID: AllTargetsID, Locations: c.all}
}

// EmptyGroups returns the requested groups that resolved to no target bases.
func (c *Catalog) EmptyGroups() []string {
	return slices.Clone(c.empty)
}

// Builder accumulates features into a Catalog.
type Builder struct {
	padding   int64
	requested map[string]bool
	order     []string
	regions   *RegionIndex
	groups    map[string]genomic.LocationSet
	all       genomic.LocationSet
	logger    *zap.Logger

	features int
	filtered int
	skipped  int
}

// NewBuilder creates a builder that pads every feature by padding bases on
// both sides before expansion.
func NewBuilder(padding int) *Builder {
	return &Builder{
		padding: int64(max(padding, 0)),
		groups:  make(map[string]genomic.LocationSet),
		all:     make(genomic.LocationSet),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for diagnostics.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// SetRequested restricts the catalog to the given group IDs. Every requested
// group appears in the catalog, even if no feature matches it. An empty list
// keeps every group.
func (b *Builder) SetRequested(ids []string) {
	if len(ids) == 0 {
		b.requested, b.order = nil, nil
		return
	}
	b.requested = make(map[string]bool, len(ids))
	b.order = b.order[:0]
	for _, id := range ids {
		if id == "" || b.requested[id] {
			continue
		}
		b.requested[id] = true
		b.order = append(b.order, id)
	}
}

// SetRegions keeps only features overlapping at least one region of interest.
func (b *Builder) SetRegions(ix *RegionIndex) {
	b.regions = ix
}

// Add expands a feature into its group. Features outside the requested
// groups or regions of interest are ignored.
func (b *Builder) Add(f Feature) error {
	if f.Start < 1 || f.End < f.Start {
		return fmt.Errorf("invalid feature %s:%d-%d", f.Contig, f.Start, f.End)
	}
	if b.requested != nil && !b.requested[f.GroupID] {
		return nil
	}
	if b.regions != nil && !b.regions.Overlaps(f.Contig, f.Start, f.End) {
		b.filtered++
		return nil
	}

	set, ok := b.groups[f.GroupID]
	if !ok {
		set = make(genomic.LocationSet)
		b.groups[f.GroupID] = set
	}

	start := max(f.Start-b.padding, 1)
	end := f.End + b.padding
	set.AddRange(f.Contig, start, end)
	b.all.AddRange(f.Contig, start, end)
	b.features++
	return nil
}

// Load adds every feature from r. Malformed lines are logged and skipped;
// read errors abort.
func (b *Builder) Load(ctx context.Context, r FeatureReader) error {
	for {
		if b.features%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		f, err := r.Next()
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				b.skipped++
				b.logger.Warn("skipping malformed annotation line",
					zap.Int("line", perr.Line),
					zap.String("reason", perr.Message))
				continue
			}
			return fmt.Errorf("read features: %w", err)
		}
		if f == nil {
			return nil
		}

		if err := b.Add(*f); err != nil {
			b.skipped++
			b.logger.Warn("skipping invalid feature",
				zap.Int("line", r.LineNumber()),
				zap.Error(err))
		}
	}
}

// Build freezes the accumulated groups into a Catalog. Requested groups with
// no target bases are reported as EmptyTargetSet diagnostics; they stay in
// the catalog as zero-size groups.
func (b *Builder) Build() *Catalog {
	c := &Catalog{
		groups: b.groups,
		all:    b.all,
	}

	for _, id := range b.order {
		if _, ok := c.groups[id]; !ok {
			c.groups[id] = make(genomic.LocationSet)
		}
	}

	for id, set := range c.groups {
		c.ids = append(c.ids, id)
		if set.Len() == 0 {
			c.empty = append(c.empty, id)
		}
	}
	slices.Sort(c.ids)
	slices.Sort(c.empty)

	for _, id := range c.empty {
		b.logger.Warn("empty target set", zap.String("group", id))
	}
	b.logger.Info("built target catalog",
		zap.Int("groups", len(c.ids)),
		zap.Int("features", b.features),
		zap.Int("target_bases", c.all.Len()),
		zap.Int("outside_regions", b.filtered),
		zap.Int("skipped", b.skipped))

	// The builder must not mutate the frozen maps.
	b.groups = make(map[string]genomic.LocationSet)
	b.all = make(genomic.LocationSet)
	b.features, b.filtered, b.skipped = 0, 0, 0

	return c
}
