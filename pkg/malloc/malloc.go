// Package malloc implements a general-purpose dynamic memory allocator
// over a single contiguous, monotonically-growing heap region: boundary
// tags, an explicit doubly-linked free list with size-segregated
// insertion and directional search, directional placement/splitting,
// and boundary-tag coalescing.
//
// The allocator is single-threaded by contract. Callers needing
// concurrent access must serialize calls to a given Allocator
// externally; no internal locking is performed.
package malloc

import "errors"

const (
	// headerSize is the size in bytes of a block header or footer.
	headerSize = 8
	// footerSize is the size in bytes of a block footer.
	footerSize = 8
	// overhead is the combined header+footer cost of every block.
	overhead = headerSize + footerSize
	// linkSize is the size in bytes of one free-list link field.
	linkSize = 8

	// MinBlockSize is the smallest block the allocator will ever place
	// in the free list: header + footer + next + prev.
	MinBlockSize = overhead + 2*linkSize // 32

	// ChunkSize is the initial heap size and minimum growth unit.
	ChunkSize = 1 << 16 // 65536 bytes

	// SmallPayloadThreshold is the payload size, in bytes, at or below
	// which a request is classified "small". Above it, "large".
	SmallPayloadThreshold = 100

	// growthMultiplier scales an out-of-space extend request so that
	// a heap under sustained growth amortizes the cost of growing.
	growthMultiplier = 6

	// prologueSize is the fixed footprint of the permanently-allocated
	// sentinel at heap offset 0: header + next + prev + footer.
	prologueSize = headerSize + 2*linkSize + footerSize // 32

	// epilogueSize is the fixed footprint of the permanently-allocated
	// sentinel at the very end of the heap: header + next + prev. It
	// carries block_size 0 and so has no footer of its own.
	epilogueSize = headerSize + 2*linkSize // 24

	// nullOffset marks the absence of a free-list link. Offset 0 is a
	// legal address (the prologue's), so -1 is used instead of 0.
	nullOffset = -1
)

var (
	// ErrOutOfMemory is returned when the heap Provider cannot grow
	// far enough to satisfy a request.
	ErrOutOfMemory = errors.New("malloc: out of memory")

	// ErrCorruption is the sentinel wrapped by CheckHeap when a
	// structural invariant is violated. It is not recoverable.
	ErrCorruption = errors.New("malloc: heap corruption detected")
)
