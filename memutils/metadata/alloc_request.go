package metadata

// AllocationRequest is returned from FreeRegionLedger.CreateAllocationRequest and indicates where
// the ledger intends to place a new segment. Nothing is changed in the ledger until the request is
// passed to FreeRegionLedger.Alloc.
type AllocationRequest struct {
	// Region is the free region, as it was when the request was created, that will host the segment
	Region Region
	// Size is the number of addresses requested. The segment always starts at Region.Start.
	Size int
	// Strategy is the placement strategy that chose Region
	Strategy AllocationStrategy
}

// Offset is the start address the segment will receive once committed
func (r AllocationRequest) Offset() int {
	return r.Region.Start
}

// Remainder is the size of the free region left behind once this request is committed
func (r AllocationRequest) Remainder() int {
	return r.Region.Size - r.Size
}
