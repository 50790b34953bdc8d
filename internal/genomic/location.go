// Package genomic provides the base-position and region value types shared by
// the target catalog, the depth classifiers and the coverage evaluator.
package genomic

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Location is a single 1-based base position on a contig.
// It is comparable and used directly as a map key.
type Location struct {
	Contig string // Contig name, compared as raw text (e.g., "chr1", "1")
	Pos    int64  // 1-based position
}

// Compare orders locations by contig (raw text) then position.
func (l Location) Compare(o Location) int {
	if c := strings.Compare(l.Contig, o.Contig); c != 0 {
		return c
	}
	return cmp.Compare(l.Pos, o.Pos)
}

// Less reports whether l sorts before o.
func (l Location) Less(o Location) bool {
	return l.Compare(o) < 0
}

// String returns the location as "contig:pos".
func (l Location) String() string {
	return l.Contig + ":" + strconv.FormatInt(l.Pos, 10)
}

// ParseLocation parses a "contig:pos" locus. The split is on the last colon so
// contig names containing colons (e.g., HLA alleles) are kept intact.
func ParseLocation(s string) (Location, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return Location{}, fmt.Errorf("invalid locus %q: expected contig:position", s)
	}
	pos, err := strconv.ParseInt(s[idx+1:], 10, 64)
	if err != nil {
		return Location{}, fmt.Errorf("invalid locus %q: %w", s, err)
	}
	if pos < 1 {
		return Location{}, fmt.Errorf("invalid locus %q: position must be >= 1", s)
	}
	return Location{Contig: s[:idx], Pos: pos}, nil
}

// LocationSet is a deduplicated set of locations.
type LocationSet map[Location]struct{}

// NewLocationSet creates a set holding the given locations.
func NewLocationSet(locs ...Location) LocationSet {
	s := make(LocationSet, len(locs))
	for _, l := range locs {
		s[l] = struct{}{}
	}
	return s
}

// Add inserts a location into the set.
func (s LocationSet) Add(l Location) {
	s[l] = struct{}{}
}

// AddRange inserts every position of [start, end] on contig.
func (s LocationSet) AddRange(contig string, start, end int64) {
	for p := start; p <= end; p++ {
		s[Location{Contig: contig, Pos: p}] = struct{}{}
	}
}

// Contains reports whether l is in the set. A nil set contains nothing.
func (s LocationSet) Contains(l Location) bool {
	_, ok := s[l]
	return ok
}

// Len returns the number of locations in the set.
func (s LocationSet) Len() int {
	return len(s)
}

// Difference returns the locations of s that are not in other.
func (s LocationSet) Difference(other LocationSet) LocationSet {
	out := make(LocationSet)
	for l := range s {
		if !other.Contains(l) {
			out[l] = struct{}{}
		}
	}
	return out
}

// Sorted returns the set's locations ordered by contig then position.
func (s LocationSet) Sorted() []Location {
	locs := make([]Location, 0, len(s))
	for l := range s {
		locs = append(locs, l)
	}
	slices.SortFunc(locs, Location.Compare)
	return locs
}
