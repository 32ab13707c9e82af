package metadata

import (
	"strings"

	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/pkg/errors"
)

// AllocationStrategy selects which free region satisfies a request when more than one is large
// enough
type AllocationStrategy uint32

const (
	// StrategyFirstFit selects the free region with the lowest start address that is large enough
	// for the request. It is the fastest strategy and biases allocations toward low addresses.
	StrategyFirstFit AllocationStrategy = iota + 1
	// StrategyBestFit selects the free region that leaves the smallest remainder after the request
	// is placed, scanning every region unless an exact fit is found first. Ties go to the region with
	// the lowest start address.
	StrategyBestFit
	// StrategyWorstFit selects the largest free region, leaving the largest possible remainder.
	// Ties go to the region with the lowest start address.
	StrategyWorstFit
)

var allocationStrategyMapping = map[AllocationStrategy]string{
	StrategyFirstFit: "FirstFit",
	StrategyBestFit:  "BestFit",
	StrategyWorstFit: "WorstFit",
}

func (s AllocationStrategy) String() string {
	str, ok := allocationStrategyMapping[s]
	if !ok {
		return "unknown AllocationStrategy"
	}

	return str
}

// Valid returns true for the three known strategies
func (s AllocationStrategy) Valid() bool {
	_, ok := allocationStrategyMapping[s]
	return ok
}

// ParseAllocationStrategy accepts "first", "best" and "worst", optionally suffixed with "-fit" or
// "fit" and in any case, as well as the String() form of each strategy.
func ParseAllocationStrategy(name string) (AllocationStrategy, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.TrimSuffix(normalized, "fit")
	normalized = strings.TrimRight(normalized, "-_ ")

	switch normalized {
	case "first", "1":
		return StrategyFirstFit, nil
	case "best", "2":
		return StrategyBestFit, nil
	case "worst", "3":
		return StrategyWorstFit, nil
	}

	return 0, errors.Wrapf(memutils.ErrInvalidRequest, "unknown allocation strategy %q", name)
}
