package memutils

import "math"

// Statistics holds the cheap, aggregate counters for an address space
type Statistics struct {
	TotalBytes   int
	SegmentCount int
	SegmentBytes int
	ProcessCount int
}

func (s *Statistics) Clear() {
	s.TotalBytes = 0
	s.SegmentCount = 0
	s.SegmentBytes = 0
	s.ProcessCount = 0
}

// FreeBytes is the number of addresses not covered by any segment
func (s *Statistics) FreeBytes() int {
	return s.TotalBytes - s.SegmentBytes
}

type DetailedStatistics struct {
	Statistics
	FreeRegionCount   int
	SegmentSizeMin    int
	SegmentSizeMax    int
	FreeRegionSizeMin int
	FreeRegionSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeRegionCount = 0
	s.SegmentSizeMin = math.MaxInt
	s.SegmentSizeMax = 0
	s.FreeRegionSizeMin = math.MaxInt
	s.FreeRegionSizeMax = 0
}

func (s *DetailedStatistics) AddFreeRegion(size int) {
	s.FreeRegionCount++

	if size < s.FreeRegionSizeMin {
		s.FreeRegionSizeMin = size
	}

	if size > s.FreeRegionSizeMax {
		s.FreeRegionSizeMax = size
	}
}

func (s *DetailedStatistics) AddSegment(size int) {
	s.SegmentCount++
	s.SegmentBytes += size

	if size < s.SegmentSizeMin {
		s.SegmentSizeMin = size
	}

	if size > s.SegmentSizeMax {
		s.SegmentSizeMax = size
	}
}

// ExternalFragmentation returns 1 - largestFreeRegion/freeBytes: 0 when all free space is a single
// region and approaching 1 as the free space is scattered across many small regions.
func (s *DetailedStatistics) ExternalFragmentation() float64 {
	free := s.FreeBytes()
	if free <= 0 || s.FreeRegionCount == 0 {
		return 0
	}

	return 1 - float64(s.FreeRegionSizeMax)/float64(free)
}
