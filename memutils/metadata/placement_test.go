package metadata_test

import (
	"testing"

	"github.com/SunnyShi051223/OS-Design/memutils"
	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
	"github.com/stretchr/testify/require"
)

var placementRegions = []metadata.Region{
	{Start: 0, Size: 10},
	{Start: 20, Size: 50},
	{Start: 90, Size: 10},
}

func TestPlacementStrategies(t *testing.T) {
	testCases := []struct {
		strategy metadata.AllocationStrategy
		expected metadata.Region
	}{
		{strategy: metadata.StrategyFirstFit, expected: metadata.Region{Start: 0, Size: 10}},
		{strategy: metadata.StrategyBestFit, expected: metadata.Region{Start: 0, Size: 10}},
		{strategy: metadata.StrategyWorstFit, expected: metadata.Region{Start: 20, Size: 50}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.strategy.String(), func(t *testing.T) {
			region, found, err := metadata.FindRegion(placementRegions, 5, testCase.strategy)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, testCase.expected, region)
		})
	}
}

func TestPlacementThroughLedger(t *testing.T) {
	ledger := ledgerWithRegions(t, 100, placementRegions...)

	success, request, err := ledger.CreateAllocationRequest(5, metadata.StrategyWorstFit)
	require.NoError(t, err)
	require.True(t, success)
	require.Equal(t, 20, request.Offset())
	require.Equal(t, metadata.StrategyWorstFit, request.Strategy)

	require.NoError(t, ledger.Alloc(request))
	require.Equal(t, []metadata.Region{
		{Start: 0, Size: 10},
		{Start: 25, Size: 45},
		{Start: 90, Size: 10},
	}, ledger.Regions())
}

func TestFirstFitSkipsSmallRegions(t *testing.T) {
	region, found, err := metadata.FindRegion(placementRegions, 11, metadata.StrategyFirstFit)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, metadata.Region{Start: 20, Size: 50}, region)
}

func TestBestFitTieKeepsFirst(t *testing.T) {
	regions := []metadata.Region{
		{Start: 0, Size: 30},
		{Start: 40, Size: 12},
		{Start: 60, Size: 12},
		{Start: 80, Size: 15},
	}

	region, found, err := metadata.FindRegion(regions, 10, metadata.StrategyBestFit)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, metadata.Region{Start: 40, Size: 12}, region)
}

func TestBestFitExactMatch(t *testing.T) {
	regions := []metadata.Region{
		{Start: 0, Size: 30},
		{Start: 40, Size: 10},
		{Start: 60, Size: 10},
	}

	region, found, err := metadata.FindRegion(regions, 10, metadata.StrategyBestFit)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, metadata.Region{Start: 40, Size: 10}, region)
}

func TestWorstFitTieKeepsFirst(t *testing.T) {
	regions := []metadata.Region{
		{Start: 0, Size: 10},
		{Start: 20, Size: 40},
		{Start: 70, Size: 40},
	}

	region, found, err := metadata.FindRegion(regions, 5, metadata.StrategyWorstFit)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, metadata.Region{Start: 20, Size: 40}, region)
}

func TestPlacementNoCandidate(t *testing.T) {
	for _, strategy := range []metadata.AllocationStrategy{
		metadata.StrategyFirstFit,
		metadata.StrategyBestFit,
		metadata.StrategyWorstFit,
	} {
		_, found, err := metadata.FindRegion(placementRegions, 51, strategy)
		require.NoError(t, err)
		require.False(t, found, strategy.String())

		_, found, err = metadata.FindRegion(nil, 1, strategy)
		require.NoError(t, err)
		require.False(t, found, strategy.String())
	}
}

func TestPlacementInvalidArguments(t *testing.T) {
	_, _, err := metadata.FindRegion(placementRegions, 0, metadata.StrategyFirstFit)
	require.ErrorIs(t, err, memutils.ErrInvalidRequest)

	_, _, err = metadata.FindRegion(placementRegions, -3, metadata.StrategyBestFit)
	require.ErrorIs(t, err, memutils.ErrInvalidRequest)

	_, _, err = metadata.FindRegion(placementRegions, 5, metadata.AllocationStrategy(0))
	require.ErrorIs(t, err, memutils.ErrInvalidRequest)
}

func TestParseAllocationStrategy(t *testing.T) {
	accepted := map[string]metadata.AllocationStrategy{
		"first":     metadata.StrategyFirstFit,
		"First-Fit": metadata.StrategyFirstFit,
		"FirstFit":  metadata.StrategyFirstFit,
		"1":         metadata.StrategyFirstFit,
		"best":      metadata.StrategyBestFit,
		" BEST_FIT": metadata.StrategyBestFit,
		"2":         metadata.StrategyBestFit,
		"worst":     metadata.StrategyWorstFit,
		"worst fit": metadata.StrategyWorstFit,
		"3":         metadata.StrategyWorstFit,
	}

	for name, expected := range accepted {
		strategy, err := metadata.ParseAllocationStrategy(name)
		require.NoError(t, err, name)
		require.Equal(t, expected, strategy, name)
	}

	_, err := metadata.ParseAllocationStrategy("next")
	require.ErrorIs(t, err, memutils.ErrInvalidRequest)

	_, err = metadata.ParseAllocationStrategy("")
	require.ErrorIs(t, err, memutils.ErrInvalidRequest)

	require.Equal(t, "unknown AllocationStrategy", metadata.AllocationStrategy(9).String())
}
