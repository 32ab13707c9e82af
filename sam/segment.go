package sam

import (
	"fmt"

	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
)

// PID identifies the process that owns a set of segments
type PID int

// Segment is a contiguous range of allocated addresses owned by a single process
type Segment struct {
	// PID is the owning process
	PID PID
	// Index is the position of this segment within the request that created it
	Index int
	// Start is the first address of the segment
	Start int
	// Size is the number of addresses in the segment
	Size int
	// Sequence is the allocator-wide allocation number of this segment. Sequence numbers are strictly
	// increasing in allocation order and are never reused until the allocator is reinitialized.
	Sequence uint64
}

// End returns the first address after the segment
func (s Segment) End() int {
	return s.Start + s.Size
}

// Region returns the address range covered by this segment
func (s Segment) Region() metadata.Region {
	return metadata.Region{Start: s.Start, Size: s.Size}
}

func (s Segment) String() string {
	return fmt.Sprintf("pid %d segment %d [%d, %d)", s.PID, s.Index, s.Start, s.End())
}
