package metadata

import (
	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/pkg/errors"
)

// FindRegion scans regions, which must be sorted by ascending start address, and returns the region
// that the provided strategy selects for an allocation of the provided size. The boolean return value
// is false if no region is large enough; that is not an error.
//
// FindRegion never modifies regions.
func FindRegion(regions []Region, size int, strategy AllocationStrategy) (Region, bool, error) {
	if err := memutils.CheckPositive(size, "allocation size"); err != nil {
		return Region{}, false, err
	}

	switch strategy {
	case StrategyFirstFit:
		return findFirstFit(regions, size)
	case StrategyBestFit:
		return findBestFit(regions, size)
	case StrategyWorstFit:
		return findWorstFit(regions, size)
	}

	return Region{}, false, errors.Wrapf(memutils.ErrInvalidRequest, "unknown allocation strategy %d", strategy)
}

func findFirstFit(regions []Region, size int) (Region, bool, error) {
	for _, region := range regions {
		if region.Size >= size {
			return region, true, nil
		}
	}

	return Region{}, false, nil
}

func findBestFit(regions []Region, size int) (Region, bool, error) {
	var best Region
	found := false

	for _, region := range regions {
		if region.Size < size {
			continue
		}

		// Strict comparison so the first of several equal candidates is kept
		if !found || region.Size-size < best.Size-size {
			best = region
			found = true

			if region.Size == size {
				break
			}
		}
	}

	return best, found, nil
}

func findWorstFit(regions []Region, size int) (Region, bool, error) {
	var worst Region
	found := false

	for _, region := range regions {
		if region.Size < size {
			continue
		}

		if !found || region.Size > worst.Size {
			worst = region
			found = true
		}
	}

	return worst, found, nil
}
