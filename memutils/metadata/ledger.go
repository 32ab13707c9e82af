package metadata

import (
	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// FreeRegionLedger owns the set of free address ranges within a single address space of a fixed size.
// Regions are kept sorted by start address, never overlap, and are never adjacent to one another:
// any region inserted next to an existing region is merged with it immediately.
//
// The zero value is an empty ledger managing an address space of size 0. Init must be called before
// the ledger is used.
type FreeRegionLedger struct {
	size        int
	sumFreeSize int
	regions     []Region
}

var _ memutils.Validatable = &FreeRegionLedger{}

func NewFreeRegionLedger(size int) *FreeRegionLedger {
	ledger := &FreeRegionLedger{}
	ledger.Init(size)
	return ledger
}

// Init discards every region and resets the ledger to a single free region spanning [0, size)
func (l *FreeRegionLedger) Init(size int) {
	l.size = size
	l.regions = l.regions[:0]
	l.sumFreeSize = 0

	if size > 0 {
		l.regions = append(l.regions, Region{Start: 0, Size: size})
		l.sumFreeSize = size
	}
}

// Clear frees the whole address space, leaving a single region spanning it
func (l *FreeRegionLedger) Clear() {
	l.Init(l.size)
}

// Size returns the size of the address space the ledger was initialized with
func (l *FreeRegionLedger) Size() int { return l.size }

// SumFreeSize returns the number of free addresses across all regions
func (l *FreeRegionLedger) SumFreeSize() int { return l.sumFreeSize }

// FreeRegionsCount returns the number of distinct free regions
func (l *FreeRegionLedger) FreeRegionsCount() int { return len(l.regions) }

// IsEmpty returns true if there are no free addresses left at all
func (l *FreeRegionLedger) IsEmpty() bool { return len(l.regions) == 0 }

// IsFull returns true if the entire address space is a single free region
func (l *FreeRegionLedger) IsFull() bool {
	return len(l.regions) == 1 && l.regions[0].Size == l.size
}

// LargestFreeRegion returns the largest free region, preferring the lowest address among equals. The
// boolean return value is false if the ledger has no free regions.
func (l *FreeRegionLedger) LargestFreeRegion() (Region, bool) {
	region, found, _ := findWorstFit(l.regions, 1)
	return region, found
}

// VisitRegions calls the provided callback once for each free region in ascending address order. If
// the callback returns an error, iteration stops and the error is returned. The callback must not
// modify the ledger.
func (l *FreeRegionLedger) VisitRegions(visit func(region Region) error) error {
	for _, region := range l.regions {
		err := visit(region)
		if err != nil {
			return err
		}
	}

	return nil
}

// Regions returns a copy of the free regions in ascending address order, or nil if nothing is free
func (l *FreeRegionLedger) Regions() []Region {
	if len(l.regions) == 0 {
		return nil
	}

	return slices.Clone(l.regions)
}

func (l *FreeRegionLedger) find(start int) (int, bool) {
	return slices.BinarySearchFunc(l.regions, Region{Start: start}, compareRegionStart)
}

// Insert returns a range of addresses to the ledger. The new region is merged with the region
// immediately before it if that region ends at region.Start, and with the region immediately after it
// if that region begins at region.End(). Both merges can happen in the same call.
//
// Insert returns an error, and leaves the ledger unchanged, if the region is empty, falls outside the
// address space, or overlaps any region that is already free.
func (l *FreeRegionLedger) Insert(region Region) error {
	if region.Size <= 0 {
		return errors.Errorf("cannot free region %s: size must be positive", region)
	}
	if region.Start < 0 || region.End() > l.size {
		return errors.Errorf("cannot free region %s: it lies outside the address space [0, %d)", region, l.size)
	}

	index, found := l.find(region.Start)
	if found {
		return errors.Errorf("cannot free region %s: address %d is already free", region, region.Start)
	}

	mergePrev, mergeNext := false, false

	if index > 0 {
		prev := l.regions[index-1]
		if prev.Overlaps(region) {
			return errors.Errorf("cannot free region %s: it overlaps free region %s", region, prev)
		}
		mergePrev = prev.Adjacent(region)
	}

	if index < len(l.regions) {
		next := l.regions[index]
		if next.Overlaps(region) {
			return errors.Errorf("cannot free region %s: it overlaps free region %s", region, next)
		}
		mergeNext = region.Adjacent(next)
	}

	switch {
	case mergePrev && mergeNext:
		// The new region bridges its two neighbors, collapse all three into the first
		l.regions[index-1].Size += region.Size + l.regions[index].Size
		l.regions = slices.Delete(l.regions, index, index+1)
	case mergePrev:
		l.regions[index-1].Size += region.Size
	case mergeNext:
		l.regions[index].Start = region.Start
		l.regions[index].Size += region.Size
	default:
		l.regions = slices.Insert(l.regions, index, region)
	}

	l.sumFreeSize += region.Size
	memutils.DebugValidate(l)

	return nil
}

// Remove deletes the free region beginning at the provided address in its entirety
func (l *FreeRegionLedger) Remove(start int) error {
	index, found := l.find(start)
	if !found {
		return errors.Errorf("no free region begins at address %d", start)
	}

	l.sumFreeSize -= l.regions[index].Size
	l.regions = slices.Delete(l.regions, index, index+1)

	return nil
}

// Shrink consumes amount addresses from the front of the free region beginning at the provided
// address. If the whole region is consumed, it is removed.
func (l *FreeRegionLedger) Shrink(start int, amount int) error {
	index, found := l.find(start)
	if !found {
		return errors.Errorf("no free region begins at address %d", start)
	}

	region := l.regions[index]
	if amount <= 0 || amount > region.Size {
		return errors.Errorf("cannot consume %d addresses from free region %s", amount, region)
	}

	if amount == region.Size {
		l.regions = slices.Delete(l.regions, index, index+1)
	} else {
		l.regions[index].Start += amount
		l.regions[index].Size -= amount
	}

	l.sumFreeSize -= amount
	memutils.DebugValidate(l)

	return nil
}

// CreateAllocationRequest retrieves an AllocationRequest indicating which free region the provided
// strategy would use for an allocation of allocSize addresses. The boolean return value is false if no
// region is large enough. The ledger is not modified: pass the request to Alloc to commit it.
func (l *FreeRegionLedger) CreateAllocationRequest(allocSize int, strategy AllocationStrategy) (bool, AllocationRequest, error) {
	var request AllocationRequest

	if err := memutils.CheckPositive(allocSize, "allocation size"); err != nil {
		return false, request, err
	}
	if !strategy.Valid() {
		return false, request, errors.Wrapf(memutils.ErrInvalidRequest, "unknown allocation strategy %d", strategy)
	}

	// Is there enough free space at all?
	if allocSize > l.sumFreeSize {
		return false, request, nil
	}

	region, found, err := FindRegion(l.regions, allocSize, strategy)
	if err != nil || !found {
		return false, request, err
	}

	request.Region = region
	request.Size = allocSize
	request.Strategy = strategy

	return true, request, nil
}

// Alloc commits an AllocationRequest, consuming request.Size addresses from the front of the chosen
// region. It returns an error if the request is stale: the region it was created from no longer exists
// in the same shape.
func (l *FreeRegionLedger) Alloc(request AllocationRequest) error {
	index, found := l.find(request.Region.Start)
	if !found {
		return errors.Errorf("allocation request refers to free region %s, which no longer exists", request.Region)
	}

	if l.regions[index] != request.Region {
		return errors.Errorf("allocation request refers to free region %s, but the region is now %s", request.Region, l.regions[index])
	}

	return l.Shrink(request.Region.Start, request.Size)
}

// Validate performs internal consistency checks on the ledger: regions must be non-empty, inside the
// address space, sorted, non-overlapping and non-adjacent, and their sizes must add up to SumFreeSize.
func (l *FreeRegionLedger) Validate() error {
	calculatedFreeSize := 0

	for index, region := range l.regions {
		if region.Size <= 0 {
			return errors.Errorf("free region at address %d has non-positive size %d", region.Start, region.Size)
		}
		if region.Start < 0 || region.End() > l.size {
			return errors.Errorf("free region %s lies outside the address space [0, %d)", region, l.size)
		}

		if index > 0 {
			prev := l.regions[index-1]
			if prev.End() > region.Start {
				return errors.Errorf("free region %s overlaps or precedes free region %s", prev, region)
			}
			if prev.Adjacent(region) {
				return errors.Errorf("free regions %s and %s are adjacent but were not merged", prev, region)
			}
		}

		calculatedFreeSize += region.Size
	}

	if calculatedFreeSize != l.sumFreeSize {
		return errors.Errorf("the free size of the ledger is %d, but the free regions only added up to %d", l.sumFreeSize, calculatedFreeSize)
	}

	return nil
}

// AddDetailedStatistics sums the size of this address space and every free region into the provided
// memutils.DetailedStatistics object
func (l *FreeRegionLedger) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.TotalBytes += l.size

	for _, region := range l.regions {
		stats.AddFreeRegion(region.Size)
	}
}

// BlockJsonData populates a json object with information about this ledger
func (l *FreeRegionLedger) BlockJsonData(json *jwriter.ObjectState) {
	json.Name("TotalBytes").Int(l.size)
	json.Name("FreeBytes").Int(l.sumFreeSize)
	json.Name("FreeRegionCount").Int(len(l.regions))

	largest, found := l.LargestFreeRegion()
	if found {
		largestObj := json.Name("LargestFreeRegion").Object()
		largestObj.Name("Start").Int(largest.Start)
		largestObj.Name("Size").Int(largest.Size)
		largestObj.End()
	}

	arrayState := json.Name("FreeRegions").Array()
	defer arrayState.End()

	for _, region := range l.regions {
		obj := arrayState.Object()
		obj.Name("Start").Int(region.Start)
		obj.Name("Size").Int(region.Size)
		obj.End()
	}
}
