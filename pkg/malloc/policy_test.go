package malloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapalloc/pkg/heap"
	"github.com/heapkit/heapalloc/pkg/stats"
)

func TestAdjustedSizeRoundsUpAndClampsToMinimum(t *testing.T) {
	assert.Equal(t, MinBlockSize, adjustedSize(1))
	assert.Equal(t, MinBlockSize, adjustedSize(0))
	assert.Equal(t, 40, adjustedSize(24))
	assert.Equal(t, 48, adjustedSize(25))
}

func TestIsSmallPayloadBoundary(t *testing.T) {
	assert.True(t, isSmallPayload(overhead+SmallPayloadThreshold))
	assert.False(t, isSmallPayload(overhead+SmallPayloadThreshold+8))
}

func TestFindFitReturnsSoleFreeBlockAfterInit(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	buf := a.bytes()

	first := blockNext(buf, a.prologue)
	require.Equal(t, a.epilogue, blockNext(buf, first))

	got := a.findFit(adjustedSize(16))
	assert.Equal(t, first, got)
}

func TestFindFitReturnsMinusOneWhenNothingFits(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	buf := a.bytes()
	first := blockNext(buf, a.prologue)
	huge := blockSize(buf, first) + 1
	assert.Equal(t, -1, a.findFit(huge))
}

func TestPlaceWithNoSplitConsumesWholeBlock(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	buf := a.bytes()
	first := blockNext(buf, a.prologue)
	total := blockSize(buf, first)

	placed := a.place(first, total)
	assert.Equal(t, first, placed)
	assert.True(t, blockAllocated(buf, placed))
	assert.Equal(t, total, blockSize(buf, placed))
	assert.Equal(t, a.epilogue, blockNext(buf, a.prologue))
}

func TestPlaceSmallSplitKeepsAllocatedBlockAtLowEnd(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	buf := a.bytes()
	first := blockNext(buf, a.prologue)
	asize := adjustedSize(16)

	placed := a.place(first, asize)
	assert.Equal(t, first, placed)
	assert.Equal(t, asize, blockSize(buf, placed))

	remainder := blockNext(buf, a.prologue)
	assert.NotEqual(t, placed, remainder)
	assert.False(t, blockAllocated(buf, remainder))
	assert.Equal(t, placed+asize, remainder)
}

func TestPlaceLargeSplitKeepsAllocatedBlockAtHighEnd(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	buf := a.bytes()
	first := blockNext(buf, a.prologue)
	total := blockSize(buf, first)
	asize := adjustedSize(200)

	placed := a.place(first, asize)
	assert.Equal(t, first+(total-asize), placed)
	assert.True(t, blockAllocated(buf, placed))

	remainder := blockNext(buf, a.prologue)
	assert.Equal(t, first, remainder)
	assert.False(t, blockAllocated(buf, remainder))
	assert.Equal(t, total-asize, blockSize(buf, remainder))
}

func TestCoalesceForwardMergesIntoFollowingFreeBlock(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	buf := a.bytes()
	first := blockNext(buf, a.prologue)
	total := blockSize(buf, first)
	asize := adjustedSize(16)

	placed := a.place(first, asize)
	// placed is allocated; the remainder after it is free. Mark placed
	// free by hand and coalesce forward into that remainder.
	setBlock(buf, placed, asize, false)
	a.insertAtHead(placed)

	merged := a.coalesce(placed)
	assert.Equal(t, placed, merged)
	assert.Equal(t, total, blockSize(buf, merged))
	assert.False(t, blockAllocated(buf, merged))
}

func TestCoalesceNeitherNeighborFreeReturnsSameOffset(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	p1 := a.Allocate(16)
	p2 := a.Allocate(16)
	require.NotNil(t, p1)
	require.NotNil(t, p2)

	b1 := a.offsetOf(p1)
	buf := a.bytes()
	setBlock(buf, b1, blockSize(buf, b1), false)

	got := a.coalesce(b1)
	assert.Equal(t, b1, got)
	assert.False(t, blockAllocated(buf, got))
}

func TestOffsetOfRoundTripsThroughAllocate(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	p := a.Allocate(48)
	require.NotNil(t, p)

	block := a.offsetOf(p)
	buf := a.bytes()
	assert.True(t, blockAllocated(buf, block))
	assert.Equal(t, payloadOffset(block), block+headerSize)
}

func TestRegistryObservesAllocatorActivity(t *testing.T) {
	reg := stats.New()
	a, err := New(heap.New(4*ChunkSize), reg)
	require.NoError(t, err)

	p := a.Allocate(64)
	require.NotNil(t, p)
	a.Free(p)

	snap := reg.Snapshot()
	assert.Equal(t, int64(1), snap.AllocCalls)
	assert.Equal(t, int64(1), snap.FreeCalls)
	assert.Equal(t, int64(1), snap.ExtendCalls)
}
