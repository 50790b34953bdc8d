package target

import (
	"fmt"

	"github.com/dhconnelly/rtreego"

	"github.com/covercalc/covercalc/internal/genomic"
)

// regionItem stores a region in the R-tree.
type regionItem struct {
	region genomic.Region
	bounds rtreego.Rect
}

func (r *regionItem) Bounds() rtreego.Rect {
	return r.bounds
}

// RegionIndex answers overlap queries against a set of regions of interest.
// Each contig gets a one-dimensional R-tree; the index is read-only after build.
type RegionIndex struct {
	trees map[string]*rtreego.Rtree
	count int
}

// regionRect returns the bounding box of the 1-based closed interval [start, end].
func regionRect(start, end int64) (rtreego.Rect, error) {
	return rtreego.NewRect(rtreego.Point{float64(start)}, []float64{float64(end - start + 1)})
}

// NewRegionIndex builds an index over the given regions.
func NewRegionIndex(regions []genomic.Region) (*RegionIndex, error) {
	byContig := make(map[string][]rtreego.Spatial)
	for _, r := range regions {
		rect, err := regionRect(r.Start, r.End)
		if err != nil {
			return nil, fmt.Errorf("index region %s: %w", r, err)
		}
		byContig[r.Contig] = append(byContig[r.Contig], &regionItem{region: r, bounds: rect})
	}

	ix := &RegionIndex{trees: make(map[string]*rtreego.Rtree, len(byContig)), count: len(regions)}
	for contig, items := range byContig {
		ix.trees[contig] = rtreego.NewTree(1, 25, 50, items...)
	}
	return ix, nil
}

// Len returns the number of indexed regions.
func (ix *RegionIndex) Len() int {
	return ix.count
}

// Overlapping returns the indexed regions sharing at least one base with
// [start, end] on contig.
func (ix *RegionIndex) Overlapping(contig string, start, end int64) []genomic.Region {
	tree, ok := ix.trees[contig]
	if !ok || end < start {
		return nil
	}
	bb, err := regionRect(start, end)
	if err != nil {
		return nil
	}

	var out []genomic.Region
	for _, s := range tree.SearchIntersect(bb) {
		r := s.(*regionItem).region
		// The tree works on real-valued boxes; confirm a shared base.
		if r.Start <= end && start <= r.End {
			out = append(out, r)
		}
	}
	return out
}

// Overlaps reports whether [start, end] on contig touches any indexed region.
func (ix *RegionIndex) Overlaps(contig string, start, end int64) bool {
	return len(ix.Overlapping(contig, start, end)) > 0
}
