package defrag

import (
	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
	"github.com/pkg/errors"
)

// DefragmentationInfo bounds the work performed by a single compaction pass. A zero limit means
// the pass is unbounded in that dimension.
type DefragmentationInfo struct {
	// MaxBytesPerPass is the maximum number of addresses to relocate in each pass
	MaxBytesPerPass int
	// MaxMovesPerPass is the maximum number of regions to relocate in each pass
	MaxMovesPerPass int
}

// DefragmentationStats summarizes the relocations performed by a compaction pass
type DefragmentationStats struct {
	BytesMoved   int
	MovesApplied int
	MovesIgnored int
}

type defragCounterStatus uint32

const (
	defragCounterPass defragCounterStatus = iota
	defragCounterIgnore
	defragCounterEnd
)

var defragCounterStatusMapping = map[defragCounterStatus]string{
	defragCounterPass:   "defragCounterPass",
	defragCounterIgnore: "defragCounterIgnore",
	defragCounterEnd:    "defragCounterEnd",
}

func (s defragCounterStatus) String() string {
	return defragCounterStatusMapping[s]
}

// CollectMoves plans one compaction pass over a set of occupied regions. Each region is slid toward
// address 0 so that it begins where the previous region ends, closing the free gap between them.
// Regions keep their relative order, so applying the returned moves in sequence never places a region
// on top of one that has not moved yet.
//
// occupied must be sorted by start address and must not overlap. handler may be nil, in which case
// every move within the pass limits is accepted. A move rejected by the handler or skipped for the
// pass limits leaves its region in place, and later regions are compacted against it.
func CollectMoves(occupied []metadata.Region, info DefragmentationInfo, handler MoveHandler) ([]DefragmentationMove, DefragmentationStats, error) {
	var stats DefragmentationStats

	for index, region := range occupied {
		if err := memutils.CheckPositive(region.Size, "occupied region size"); err != nil {
			return nil, stats, err
		}
		if region.Start < 0 {
			return nil, stats, errors.Errorf("occupied region %s begins before address 0", region)
		}
		if index > 0 && occupied[index-1].End() > region.Start {
			return nil, stats, errors.Errorf("occupied region %s is out of order or overlaps %s", region, occupied[index-1])
		}
	}

	pass := PassContext{
		MaxPassBytes:       info.MaxBytesPerPass,
		MaxPassAllocations: info.MaxMovesPerPass,
	}

	var moves []DefragmentationMove
	cursor := 0

	for _, region := range occupied {
		if region.Start == cursor {
			cursor = region.End()
			continue
		}

		status := pass.checkCounters(region.Size)
		if status == defragCounterEnd {
			break
		}

		move := DefragmentationMove{Src: region, DstStart: cursor}
		if status == defragCounterIgnore || (handler != nil && handler(move) == DefragmentationMoveIgnore) {
			pass.Stats.MovesIgnored++
			cursor = region.End()
			continue
		}

		moves = append(moves, move)
		cursor = move.Dst().End()

		if pass.incrementCounters(region.Size) {
			break
		}
	}

	return moves, pass.Stats, nil
}
