package sam

// fifoEvictor chooses eviction victims in first-in, first-out order: the process whose oldest live
// segment was allocated before every other process's is evicted first
type fifoEvictor struct {
	segments *segmentTable
}

// SelectVictim proposes the longest-resident process other than requester. It never modifies the
// segment table; the allocator performs the eviction itself.
func (e fifoEvictor) SelectVictim(requester PID) (PID, bool) {
	return e.segments.OldestExcluding(requester)
}

// evictionBudget bounds the number of evictions a single request may perform. It starts at the number
// of distinct processes, other than the requester, that owned memory when the request began. Each
// eviction removes one of those processes for good, so the budget can never be exceeded by a correct
// evictor and a request always terminates.
type evictionBudget struct {
	remaining int
}

func (b *evictionBudget) Take() bool {
	if b.remaining <= 0 {
		return false
	}

	b.remaining--
	return true
}
