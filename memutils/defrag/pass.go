package defrag

import "fmt"

// PassContext tracks the counters of the current compaction pass across multiple relocations
type PassContext struct {
	// MaxPassBytes is the maximum number of addresses to relocate in the pass, or 0 for no limit
	MaxPassBytes int
	// MaxPassAllocations is the maximum number of relocations to perform in the pass, or 0 for no limit
	MaxPassAllocations int
	// Stats contains statistics for the current pass
	Stats         DefragmentationStats
	ignoredAllocs int
}

const defragMaxAllocsToIgnore = 16

func (p *PassContext) checkCounters(bytes int) defragCounterStatus {
	// Ignore the region if it would exceed the byte budget, and give up after too many in a row
	if p.MaxPassBytes > 0 && p.Stats.BytesMoved+bytes > p.MaxPassBytes {
		p.ignoredAllocs++
		if p.ignoredAllocs < defragMaxAllocsToIgnore {
			return defragCounterIgnore
		}

		return defragCounterEnd
	}

	p.ignoredAllocs = 0
	return defragCounterPass
}

func (p *PassContext) incrementCounters(bytes int) bool {
	p.Stats.BytesMoved += bytes
	p.Stats.MovesApplied++

	bytesDone := p.MaxPassBytes > 0 && p.Stats.BytesMoved >= p.MaxPassBytes
	movesDone := p.MaxPassAllocations > 0 && p.Stats.MovesApplied >= p.MaxPassAllocations

	if bytesDone || movesDone {
		if (p.MaxPassBytes > 0 && p.Stats.BytesMoved > p.MaxPassBytes) ||
			(p.MaxPassAllocations > 0 && p.Stats.MovesApplied > p.MaxPassAllocations) {
			panic(fmt.Sprintf("somehow passed maximum pass thresholds: bytes %d, moves %d", p.Stats.BytesMoved, p.Stats.MovesApplied))
		}

		return true
	}

	return false
}
