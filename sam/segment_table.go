package sam

import (
	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

type processEntry struct {
	segmentCount  int
	segmentBytes  int
	firstSequence uint64
}

// segmentTable owns every live segment in allocation order, along with a per-process summary that
// allows eviction to find the longest-resident process without walking the segment list
type segmentTable struct {
	nextSequence uint64
	sumSize      int
	segments     []Segment
	owners       *swiss.Map[PID, *processEntry]
}

var _ memutils.Validatable = &segmentTable{}

func (t *segmentTable) Init() {
	t.nextSequence = 1
	t.sumSize = 0
	t.segments = t.segments[:0]
	t.owners = swiss.NewMap[PID, *processEntry](16)
}

// NextSequence is the sequence number the next added segment will receive
func (t *segmentTable) NextSequence() uint64 { return t.nextSequence }

func (t *segmentTable) Len() int { return len(t.segments) }

func (t *segmentTable) SumSize() int { return t.sumSize }

// Owners returns the number of distinct processes that own at least one segment
func (t *segmentTable) Owners() int { return t.owners.Count() }

// OwnersExcluding returns the number of distinct processes other than pid that own at least one segment
func (t *segmentTable) OwnersExcluding(pid PID) int {
	count := t.owners.Count()
	if t.Has(pid) {
		count--
	}
	return count
}

// Has returns true if pid owns at least one segment
func (t *segmentTable) Has(pid PID) bool {
	return t.owners.Has(pid)
}

// Add records a new segment and stamps it with the next sequence number
func (t *segmentTable) Add(pid PID, index int, start int, size int) Segment {
	memutils.DebugCheckPositive(size, "segment size")

	segment := Segment{
		PID:      pid,
		Index:    index,
		Start:    start,
		Size:     size,
		Sequence: t.nextSequence,
	}
	t.nextSequence++

	t.segments = append(t.segments, segment)
	t.sumSize += size

	entry, ok := t.owners.Get(pid)
	if !ok {
		entry = &processEntry{firstSequence: segment.Sequence}
		t.owners.Put(pid, entry)
	}
	entry.segmentCount++
	entry.segmentBytes += size

	return segment
}

// RemoveAll removes and returns every segment owned by pid, in allocation order
func (t *segmentTable) RemoveAll(pid PID) []Segment {
	return t.RemoveFrom(pid, 0)
}

// RemoveFrom removes and returns the segments owned by pid whose sequence number is at least
// fromSequence. Segments recorded by earlier requests are left in place.
func (t *segmentTable) RemoveFrom(pid PID, fromSequence uint64) []Segment {
	entry, ok := t.owners.Get(pid)
	if !ok {
		return nil
	}

	var removed []Segment
	kept := t.segments[:0]
	for _, segment := range t.segments {
		if segment.PID == pid && segment.Sequence >= fromSequence {
			removed = append(removed, segment)
			continue
		}
		kept = append(kept, segment)
	}

	// Zero out the tail so removed segments don't linger in the backing array
	for i := len(kept); i < len(t.segments); i++ {
		t.segments[i] = Segment{}
	}
	t.segments = kept

	for _, segment := range removed {
		entry.segmentCount--
		entry.segmentBytes -= segment.Size
		t.sumSize -= segment.Size
	}

	if entry.segmentCount == 0 {
		t.owners.Delete(pid)
	}

	return removed
}

func compareSegmentSequence(left, right Segment) int {
	switch {
	case left.Sequence < right.Sequence:
		return -1
	case left.Sequence > right.Sequence:
		return 1
	}
	return 0
}

// Relocate moves the segment with the provided sequence number so that it begins at start and returns
// the updated segment. The boolean return value is false if no such segment exists.
func (t *segmentTable) Relocate(sequence uint64, start int) (Segment, bool) {
	index, found := slices.BinarySearchFunc(t.segments, Segment{Sequence: sequence}, compareSegmentSequence)
	if !found {
		return Segment{}, false
	}

	t.segments[index].Start = start
	return t.segments[index], true
}

// OldestExcluding returns the process, other than pid, whose earliest live segment was allocated
// first. The boolean return value is false if no other process owns segments.
func (t *segmentTable) OldestExcluding(pid PID) (PID, bool) {
	var oldest PID
	var oldestSequence uint64
	found := false

	t.owners.Iter(func(owner PID, entry *processEntry) bool {
		if owner == pid {
			return false
		}

		if !found || entry.firstSequence < oldestSequence {
			oldest = owner
			oldestSequence = entry.firstSequence
			found = true
		}
		return false
	})

	return oldest, found
}

// Segments returns the segments owned by pid, in allocation order
func (t *segmentTable) Segments(pid PID) []Segment {
	if !t.Has(pid) {
		return nil
	}

	var segments []Segment
	for _, segment := range t.segments {
		if segment.PID == pid {
			segments = append(segments, segment)
		}
	}
	return segments
}

// All returns every live segment in allocation order, or nil if there are none
func (t *segmentTable) All() []Segment {
	if len(t.segments) == 0 {
		return nil
	}

	return slices.Clone(t.segments)
}

func (t *segmentTable) VisitSegments(visit func(segment Segment) error) error {
	for _, segment := range t.segments {
		err := visit(segment)
		if err != nil {
			return err
		}
	}

	return nil
}

func (t *segmentTable) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.ProcessCount += t.owners.Count()
	for _, segment := range t.segments {
		stats.AddSegment(segment.Size)
	}
}

// Validate checks that segments are in strict allocation order, have positive sizes, never overlap
// one another, and agree with the per-process summaries
func (t *segmentTable) Validate() error {
	calculated := make(map[PID]processEntry)
	calculatedSize := 0

	for index, segment := range t.segments {
		if segment.Size <= 0 {
			return errors.Errorf("segment %s has non-positive size %d", segment, segment.Size)
		}
		if index > 0 && t.segments[index-1].Sequence >= segment.Sequence {
			return errors.Errorf("segment %s is recorded after segment %s but has an earlier sequence number", segment, t.segments[index-1])
		}
		if segment.Sequence >= t.nextSequence {
			return errors.Errorf("segment %s has sequence number %d, which has not been issued yet", segment, segment.Sequence)
		}

		entry, seen := calculated[segment.PID]
		if !seen {
			entry.firstSequence = segment.Sequence
		}
		entry.segmentCount++
		entry.segmentBytes += segment.Size
		calculated[segment.PID] = entry
		calculatedSize += segment.Size
	}

	if calculatedSize != t.sumSize {
		return errors.Errorf("the segment table lists %d allocated addresses, but its segments only added up to %d", t.sumSize, calculatedSize)
	}

	if len(calculated) != t.owners.Count() {
		return errors.Errorf("the segment table lists %d owning processes, but its segments belong to %d", t.owners.Count(), len(calculated))
	}

	for pid, expected := range calculated {
		entry, ok := t.owners.Get(pid)
		if !ok {
			return errors.Errorf("process %d owns segments but has no summary entry", pid)
		}
		if *entry != expected {
			return errors.Errorf("the summary entry for process %d is %+v, but its segments add up to %+v", pid, *entry, expected)
		}
	}

	byStart := slices.Clone(t.segments)
	slices.SortFunc(byStart, func(left, right Segment) bool {
		return left.Start < right.Start
	})
	for index := 1; index < len(byStart); index++ {
		if byStart[index-1].End() > byStart[index].Start {
			return errors.Errorf("segment %s overlaps segment %s", byStart[index-1], byStart[index])
		}
	}

	return nil
}
