package sam

import (
	"context"
	"fmt"

	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
	"github.com/SunnyShi051223/OS-Design/sam/internal/utils"
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// Allocator manages a single simulated address space. Processes request one or more segments at a
// time, each of which is placed into a free region by the requested placement strategy. When no free
// region can hold a segment, the allocator evicts the longest-resident other process and tries again;
// when no process is left to evict, the whole request is rolled back.
//
// Every public method runs to completion under a single lock, so a request, including any evictions
// it triggers, is never observable half-done. Read-only queries share the lock.
type Allocator struct {
	logger      *slog.Logger
	createFlags CreateFlags
	mutex       utils.OptionalRWMutex
	callbacks   allocatorCallbacks

	ledger   metadata.FreeRegionLedger
	segments segmentTable
	evictor  fifoEvictor
}

// Status is a point-in-time copy of the allocator's state. Modifying it has no effect on the allocator.
type Status struct {
	TotalSize int
	// FreeRegions lists every free region in ascending address order
	FreeRegions []metadata.Region
	// Segments lists every allocated segment in allocation order, oldest first
	Segments []Segment
}

func (s Status) FreeBytes() int {
	free := 0
	for _, region := range s.FreeRegions {
		free += region.Size
	}
	return free
}

func (s Status) AllocatedBytes() int {
	allocated := 0
	for _, segment := range s.Segments {
		allocated += segment.Size
	}
	return allocated
}

type validateFunc func() error

func (f validateFunc) Validate() error { return f() }

// Init discards every segment and resets the address space to a single free region [0, totalSize)
func (a *Allocator) Init(totalSize int) error {
	a.logger.Debug("Allocator::Init", slog.Int("TotalSize", totalSize))

	err := memutils.CheckPositive(totalSize, "total memory size")
	if err != nil {
		return err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.ledger.Init(totalSize)
	a.segments.Init()

	a.logger.LogAttrs(context.Background(), slog.LevelInfo, "Initialized address space", slog.Int("size", totalSize))
	return nil
}

// TotalSize returns the size of the address space
func (a *Allocator) TotalSize() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.ledger.Size()
}

// RequestMemory allocates one segment for each entry in sizes on behalf of pid, using strategy to
// choose among free regions. Segment i receives index i. Either every segment is allocated, or none
// are: on failure, any segments already placed by this call are returned before RequestMemory returns.
//
// When a segment cannot be placed, the process other than pid that has been resident the longest is
// evicted in its entirety and placement is retried. Eviction is permanent even if the request
// ultimately fails.
//
// RequestMemory returns an error matching memutils.ErrInvalidRequest, without changing anything, if
// sizes is empty, any size is not positive, or strategy is unknown. It returns an error matching
// memutils.ErrAllocationExhausted if a segment cannot be placed even after evicting every other process.
func (a *Allocator) RequestMemory(pid PID, sizes []int, strategy metadata.AllocationStrategy) error {
	a.logger.Debug("Allocator::RequestMemory",
		slog.Int("PID", int(pid)),
		slog.Int("SegmentCount", len(sizes)),
		slog.String("Strategy", strategy.String()))

	if len(sizes) == 0 {
		return errors.Wrapf(memutils.ErrInvalidRequest, "process %d requested no segments", pid)
	}

	for index, size := range sizes {
		err := memutils.CheckPositive(size, fmt.Sprintf("the size of segment %d", index))
		if err != nil {
			return err
		}
	}

	if !strategy.Valid() {
		return errors.Wrapf(memutils.ErrInvalidRequest, "unknown allocation strategy %d", strategy)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	request := requestContext{
		pid:           pid,
		sizes:         sizes,
		strategy:      strategy,
		firstSequence: a.segments.NextSequence(),
		budget:        evictionBudget{remaining: a.segments.OwnersExcluding(pid)},
	}

	err := a.runRequest(&request)
	memutils.DebugValidate(validateFunc(a.validate))

	return err
}

// ReleaseMemory frees every segment owned by pid and returns the number of segments freed. Freed
// segments are merged with any adjacent free regions. Releasing a process that owns nothing is a no-op
// that returns 0.
func (a *Allocator) ReleaseMemory(pid PID) int {
	a.logger.Debug("Allocator::ReleaseMemory", slog.Int("PID", int(pid)))

	a.mutex.Lock()
	defer a.mutex.Unlock()

	segments := a.releaseSegments(pid)
	if len(segments) == 0 {
		return 0
	}

	a.logger.LogAttrs(context.Background(), slog.LevelInfo, "Released process memory",
		slog.Int("pid", int(pid)),
		slog.Int("segments", len(segments)),
	)
	a.callbacks.Release(pid, segments)
	memutils.DebugValidate(validateFunc(a.validate))

	return len(segments)
}

// Status returns a snapshot of the free regions, in address order, and of the allocated segments, in
// allocation order
func (a *Allocator) Status() Status {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return Status{
		TotalSize:   a.ledger.Size(),
		FreeRegions: a.ledger.Regions(),
		Segments:    a.segments.All(),
	}
}

// Segments returns the segments owned by pid in allocation order. It returns an error matching
// memutils.ErrNoSuchProcess if pid owns no segments.
func (a *Allocator) Segments(pid PID) ([]Segment, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	segments := a.segments.Segments(pid)
	if len(segments) == 0 {
		return nil, errors.Wrapf(memutils.ErrNoSuchProcess, "process %d", pid)
	}

	return segments, nil
}

// Processes returns every process that owns memory, longest-resident first. This is the order in which
// processes would be evicted.
func (a *Allocator) Processes() []PID {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	pids := make([]PID, 0, a.segments.Owners())
	_ = a.segments.VisitSegments(func(segment Segment) error {
		if !slices.Contains(pids, segment.PID) {
			pids = append(pids, segment.PID)
		}
		return nil
	})

	return pids
}

// Clear frees every segment without triggering any callbacks, leaving the address space entirely free
func (a *Allocator) Clear() {
	a.logger.Debug("Allocator::Clear")

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.ledger.Clear()
	a.segments.Init()
}

// CalculateStatistics summarizes the address space
func (a *Allocator) CalculateStatistics() memutils.DetailedStatistics {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.ledger.AddDetailedStatistics(&stats)
	a.segments.AddDetailedStatistics(&stats)

	return stats
}

// Validate performs consistency checks on the allocator. Free regions and segments together must
// cover the address space exactly once, free regions must be merged with their neighbors, and the
// internal bookkeeping must agree with both. When the allocator is functioning correctly it should not
// be possible for this method to return an error.
func (a *Allocator) Validate() error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.validate()
}

func (a *Allocator) validate() error {
	err := a.ledger.Validate()
	if err != nil {
		return err
	}

	err = a.segments.Validate()
	if err != nil {
		return err
	}

	total := a.ledger.Size()
	if a.ledger.SumFreeSize()+a.segments.SumSize() != total {
		return errors.Errorf("free space (%d) and allocated space (%d) do not add up to the address space size (%d)",
			a.ledger.SumFreeSize(), a.segments.SumSize(), total)
	}

	type span struct {
		region metadata.Region
		label  string
	}

	spans := make([]span, 0, a.ledger.FreeRegionsCount()+a.segments.Len())
	_ = a.ledger.VisitRegions(func(region metadata.Region) error {
		spans = append(spans, span{region: region, label: "free region " + region.String()})
		return nil
	})
	_ = a.segments.VisitSegments(func(segment Segment) error {
		spans = append(spans, span{region: segment.Region(), label: segment.String()})
		return nil
	})
	slices.SortFunc(spans, func(left, right span) bool {
		return left.region.Start < right.region.Start
	})

	nextAddress := 0
	for _, s := range spans {
		if s.region.Start != nextAddress {
			return errors.Errorf("%s should begin at address %d", s.label, nextAddress)
		}
		nextAddress = s.region.End()
	}

	if nextAddress != total {
		return errors.Errorf("the address space ends at %d, but its contents end at %d", total, nextAddress)
	}

	return nil
}

// PrintDetailedMap writes a JSON object describing every free region and segment to the provided writer
func (a *Allocator) PrintDetailedMap(writer *jwriter.Writer) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.ledger.AddDetailedStatistics(&stats)
	a.segments.AddDetailedStatistics(&stats)

	objState := writer.Object()
	defer objState.End()

	a.ledger.BlockJsonData(&objState)

	statsObj := objState.Name("Statistics").Object()
	statsObj.Name("SegmentCount").Int(stats.SegmentCount)
	statsObj.Name("SegmentBytes").Int(stats.SegmentBytes)
	statsObj.Name("ProcessCount").Int(stats.ProcessCount)
	if stats.SegmentCount > 0 {
		statsObj.Name("SegmentSizeMin").Int(stats.SegmentSizeMin)
		statsObj.Name("SegmentSizeMax").Int(stats.SegmentSizeMax)
	}
	if stats.FreeRegionCount > 0 {
		statsObj.Name("FreeRegionSizeMin").Int(stats.FreeRegionSizeMin)
		statsObj.Name("FreeRegionSizeMax").Int(stats.FreeRegionSizeMax)
	}
	statsObj.Name("ExternalFragmentation").Float64(stats.ExternalFragmentation())
	statsObj.End()

	a.printSegments(&objState)
}

func (a *Allocator) printSegments(json *jwriter.ObjectState) {
	arrayState := json.Name("Segments").Array()
	defer arrayState.End()

	_ = a.segments.VisitSegments(func(segment Segment) error {
		obj := arrayState.Object()
		defer obj.End()

		obj.Name("PID").Int(int(segment.PID))
		obj.Name("Index").Int(segment.Index)
		obj.Name("Start").Int(segment.Start)
		obj.Name("Size").Int(segment.Size)
		obj.Name("Sequence").Int(int(segment.Sequence))

		return nil
	})
}
