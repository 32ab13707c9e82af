package sam

import (
	"context"

	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/SunnyShi051223/OS-Design/memutils/defrag"
	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// Compact performs a single compaction pass: segments are slid toward address 0, in address order,
// closing the free gaps between them. Segments keep their owner, index and sequence number, so
// eviction order is unaffected. info bounds the work done by the pass and handler, if not nil, may
// veto individual moves. Call Compact repeatedly until it reports no moves to compact completely.
func (a *Allocator) Compact(info defrag.DefragmentationInfo, handler defrag.MoveHandler) (defrag.DefragmentationStats, error) {
	a.logger.Debug("Allocator::Compact",
		slog.Int("MaxBytesPerPass", info.MaxBytesPerPass),
		slog.Int("MaxMovesPerPass", info.MaxMovesPerPass))

	a.mutex.Lock()
	defer a.mutex.Unlock()

	// With no free addresses, or no segments, there is nothing to slide
	if a.ledger.IsEmpty() || a.ledger.IsFull() {
		return defrag.DefragmentationStats{}, nil
	}

	byStart := a.segments.All()
	slices.SortFunc(byStart, func(left, right Segment) bool {
		return left.Start < right.Start
	})

	occupied := make([]metadata.Region, 0, len(byStart))
	for _, segment := range byStart {
		occupied = append(occupied, segment.Region())
	}

	moves, stats, err := defrag.CollectMoves(occupied, info, handler)
	if err != nil {
		return stats, errors.Wrap(err, "planning compaction")
	}

	next := 0
	for _, move := range moves {
		for byStart[next].Start != move.Src.Start {
			next++
		}

		a.relocate(byStart[next], move)
	}

	if len(moves) > 0 {
		a.logger.LogAttrs(context.Background(), slog.LevelInfo, "Compacted address space",
			slog.Int("moves", stats.MovesApplied),
			slog.Int("ignored", stats.MovesIgnored),
			slog.Int("bytes", stats.BytesMoved),
		)
	}
	memutils.DebugValidate(validateFunc(a.validate))

	return stats, nil
}

func (a *Allocator) relocate(segment Segment, move defrag.DefragmentationMove) {
	// The gap below the segment is free, so returning the segment merges it into one region that
	// begins at the destination
	err := a.ledger.Insert(move.Src)
	if err != nil {
		panic(errors.Wrapf(err, "failed to vacate %s during compaction", segment))
	}

	err = a.ledger.Shrink(move.DstStart, move.Src.Size)
	if err != nil {
		panic(errors.Wrapf(err, "failed to occupy %s during compaction", move.Dst()))
	}

	moved, found := a.segments.Relocate(segment.Sequence, move.DstStart)
	if !found {
		panic(errors.Newf("compaction lost track of %s", segment))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Relocated segment",
		slog.Int("pid", int(moved.PID)),
		slog.Int("segment", moved.Index),
		slog.Int("from", move.Src.Start),
		slog.Int("to", moved.Start),
	)
	a.callbacks.Relocate(moved, move.Src)
}
