package metadata

import (
	"fmt"

	"github.com/SunnyShi051223/OS-Design/memutils"
)

// Region is a contiguous range of addresses [Start, Start+Size)
type Region struct {
	Start int
	Size  int
}

// End returns the first address after the region
func (r Region) End() int {
	return r.Start + r.Size
}

// Adjacent returns true if the region ends exactly where next begins
func (r Region) Adjacent(next Region) bool {
	return r.End() == next.Start
}

// Overlaps returns true if the two regions share at least one address
func (r Region) Overlaps(other Region) bool {
	return memutils.RangesOverlap(r.Start, r.Size, other.Start, other.Size)
}

func (r Region) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End())
}

func compareRegionStart(left, right Region) int {
	switch {
	case left.Start < right.Start:
		return -1
	case left.Start > right.Start:
		return 1
	}
	return 0
}
