package genomic

import (
	"fmt"
	"slices"
	"strconv"
)

// Region is a contiguous run of bases, 1-based and inclusive on both ends.
type Region struct {
	Contig string
	Start  int64
	End    int64
}

// String returns the region as "contig:start-end".
func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Contig, r.Start, r.End)
}

// BED renders the region as a BED line body: 0-based start, end unchanged.
func (r Region) BED() string {
	return r.Contig + "\t" + strconv.FormatInt(r.Start-1, 10) + "\t" + strconv.FormatInt(r.End, 10)
}

// Merge collapses a location set into the minimal list of contiguous
// regions. Regions are grouped by contig (raw text order) and sorted by
// start; adjacent positions always join the same region.
func Merge(s LocationSet) []Region {
	byContig := make(map[string][]int64)
	for l := range s {
		byContig[l.Contig] = append(byContig[l.Contig], l.Pos)
	}
	return mergeByContig(byContig)
}

func mergeByContig(byContig map[string][]int64) []Region {
	contigs := make([]string, 0, len(byContig))
	for c := range byContig {
		contigs = append(contigs, c)
	}
	slices.Sort(contigs)

	var regions []Region
	for _, contig := range contigs {
		positions := byContig[contig]
		slices.Sort(positions)

		cur := Region{Contig: contig, Start: positions[0], End: positions[0]}
		for _, p := range positions[1:] {
			switch {
			case p <= cur.End:
				// duplicate
			case p == cur.End+1:
				cur.End = p
			default:
				regions = append(regions, cur)
				cur = Region{Contig: contig, Start: p, End: p}
			}
		}
		regions = append(regions, cur)
	}
	return regions
}
