package malloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapalloc/pkg/heap"
	"github.com/heapkit/heapalloc/pkg/stats"
)

// newTestAllocator builds an independent Allocator over a freshly
// reserved Arena, large enough for the scenario at hand but bounded so
// a runaway test fails fast instead of reserving a gigabyte.
func newTestAllocator(t *testing.T, maxSize int) *Allocator {
	t.Helper()
	a, err := New(heap.New(maxSize), stats.New())
	require.NoError(t, err)
	return a
}

func TestInitializeLeavesOneFreeBlockCoveringTheInterior(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	require.NoError(t, a.CheckHeap(false))

	buf := a.bytes()
	count := 0
	for b := blockNext(buf, a.prologue); b != a.epilogue; b = blockNext(buf, b) {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestAllocateZeroReturnsNil(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	assert.Nil(t, a.Allocate(0))
}

// Scenario 1: allocate two blocks, free them in reverse order, and
// confirm they coalesce back into one free block covering the
// interior.
func TestFreeInReverseOrderCoalescesToOneBlock(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	p1 := a.Allocate(16)
	p2 := a.Allocate(16)
	require.NotNil(t, p1)
	require.NotNil(t, p2)

	a.Free(p2)
	a.Free(p1)
	require.NoError(t, a.CheckHeap(false))

	buf := a.bytes()
	count := 0
	for b := blockNext(buf, a.prologue); b != a.epilogue; b = blockNext(buf, b) {
		count++
	}
	assert.Equal(t, 1, count)
}

// Scenario 2: a small and a large allocation should sit at opposite
// ends of the heap before either is freed.
func TestSmallAndLargeRequestsClusterAtOppositeEnds(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	small := a.Allocate(64)
	large := a.Allocate(200)
	require.NotNil(t, small)
	require.NotNil(t, large)

	smallOffset := a.offsetOf(small)
	largeOffset := a.offsetOf(large)
	assert.Less(t, smallOffset, largeOffset)

	a.Free(small)
	a.Free(large)
	require.NoError(t, a.CheckHeap(false))
}

// Scenario 3: allocating enough blocks to exceed one ChunkSize forces
// at least one heap extension, and the allocator keeps serving.
func TestAllocationBeyondChunkSizeExtendsHeap(t *testing.T) {
	a := newTestAllocator(t, 8*ChunkSize)
	initialLen := a.provider.Len()

	const blockPayload = 4096
	n := ChunkSize/blockPayload + 4
	ptrs := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		p := a.Allocate(blockPayload)
		require.NotNilf(t, p, "allocation %d failed", i)
		ptrs = append(ptrs, p)
	}

	assert.Greater(t, a.provider.Len(), initialLen)
	require.NoError(t, a.CheckHeap(false))

	for _, p := range ptrs {
		a.Free(p)
	}
	require.NoError(t, a.CheckHeap(false))
}

// Scenario 4: freeing every other block of a run of fixed-size
// allocations must leave that many free blocks, none coalesced with a
// neighbor (because every neighbor is still allocated).
func TestFreeingEveryOtherBlockLeavesUncoalescedFreeBlocks(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	const n = 20
	ptrs := make([][]byte, n)
	for i := range ptrs {
		ptrs[i] = a.Allocate(32)
		require.NotNil(t, ptrs[i])
	}
	for i := 0; i < n; i += 2 {
		a.Free(ptrs[i])
	}
	require.NoError(t, a.CheckHeap(false))

	buf := a.bytes()
	free := 0
	want := adjustedSize(32)
	for b := blockNext(buf, a.prologue); b != a.epilogue; b = blockNext(buf, b) {
		free++
		assert.Equal(t, want, blockSize(buf, b))
	}
	assert.Equal(t, n/2, free)
}

// Scenario 5: reallocating a block upward must preserve its original
// content byte-for-byte.
func TestReallocatePreservesLeadingBytes(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	p := a.Allocate(64)
	require.NotNil(t, p)
	for i := range p {
		p[i] = byte(i)
	}

	grown := a.Reallocate(p, 1024)
	require.NotNil(t, grown)
	for i := 0; i < 64; i++ {
		assert.Equal(t, byte(i), grown[i])
	}
}

// Scenario 6: allocating the entire initial free block minus a small
// tail, then freeing it, restores a single free block equal in size
// to the original.
func TestAllocatingAndFreeingEntireInitialBlockRestoresIt(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	buf := a.bytes()
	initBlock := blockNext(buf, a.prologue)
	initSize := blockSize(buf, initBlock)

	payload := initSize - overhead - 64
	p := a.Allocate(payload)
	require.NotNil(t, p)

	a.Free(p)
	require.NoError(t, a.CheckHeap(false))

	buf = a.bytes()
	again := blockNext(buf, a.prologue)
	assert.Equal(t, initSize, blockSize(buf, again))
}

func TestAlignment(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	for _, n := range []int{1, 7, 8, 9, 100, 4096} {
		p := a.Allocate(n)
		require.NotNil(t, p)
		block := a.offsetOf(p)
		assert.Zero(t, payloadOffset(block)%8)
	}
}

func TestFreeThenAllocateSameSizeReusesSpace(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	heapLenBefore := a.provider.Len()

	p1 := a.Allocate(100)
	require.NotNil(t, p1)
	a.Free(p1)

	p2 := a.Allocate(100)
	require.NotNil(t, p2)
	a.Free(p2)

	assert.Equal(t, heapLenBefore, a.provider.Len())
}

func TestFreeRightAfterPrologueCoalescesWithoutReadingGarbage(t *testing.T) {
	a := newTestAllocator(t, 4*ChunkSize)
	p := a.Allocate(32)
	require.NotNil(t, p)
	a.Free(p)
	require.NoError(t, a.CheckHeap(false))
}
