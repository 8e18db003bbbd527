package malloc

import (
	"fmt"
	"log"
	"os"

	"github.com/heapkit/heapalloc/pkg/heap"
	"github.com/heapkit/heapalloc/pkg/stats"
)

// Allocator is one independent heap: a Provider, the two sentinel
// offsets anchoring it, and an optional metrics Registry. The anchors
// are Allocator-owned state rather than package globals, so tests can
// spin up as many independent heaps as they like.
type Allocator struct {
	provider heap.Provider
	stats    *stats.Registry
	logger   *log.Logger

	prologue int
	epilogue int
}

// New creates an Allocator over provider and performs the initial
// heap setup: writing the prologue, one free block covering the
// interior, and the epilogue. reg may be nil to disable metrics.
func New(provider heap.Provider, reg *stats.Registry) (*Allocator, error) {
	a := &Allocator{
		provider: provider,
		stats:    reg,
		logger:   log.New(os.Stderr, "malloc: ", log.LstdFlags),
	}
	if err := a.initialize(); err != nil {
		return nil, err
	}
	return a, nil
}

// bytes returns the current backing region.
func (a *Allocator) bytes() []byte {
	return a.provider.Bytes()
}

// initialize acquires ChunkSize bytes of fresh heap, writes the
// prologue, a single free block covering the interior, and the
// epilogue, and sets the allocator's sentinel anchors.
func (a *Allocator) initialize() error {
	base, err := a.provider.Extend(ChunkSize)
	if err != nil {
		return fmt.Errorf("%w: initial heap: %v", ErrOutOfMemory, err)
	}
	a.stats.IncExtend(ChunkSize)

	a.prologue = base
	a.epilogue = base + ChunkSize - epilogueSize
	initBlock := base + prologueSize
	initSize := a.epilogue - initBlock
	if initSize < MinBlockSize {
		return fmt.Errorf("malloc: initial chunk size %d too small for one free block", ChunkSize)
	}

	buf := a.bytes()
	setBlock(buf, a.prologue, prologueSize, true)
	setBlock(buf, initBlock, initSize, false)
	writeHeader(buf, a.epilogue, header{allocated: true, size: 0})

	setBlockPrev(buf, a.prologue, nullOffset)
	setBlockNext(buf, a.prologue, initBlock)
	setBlockPrev(buf, initBlock, a.prologue)
	setBlockNext(buf, initBlock, a.epilogue)
	setBlockPrev(buf, a.epilogue, initBlock)
	setBlockNext(buf, a.epilogue, nullOffset)

	a.updateHeapGauges()
	return nil
}

// extend requests nBytes (a multiple of 8) of fresh heap. The current
// epilogue is reinterpreted as the header of a new free block of size
// nBytes; a new epilogue is placed immediately after it. The new
// block is linked in at the tail and handed to coalesce, which fuses
// it with a possibly-free predecessor.
func (a *Allocator) extend(nBytes int) (int, error) {
	if nBytes <= 0 {
		return 0, fmt.Errorf("malloc: extend size must be positive")
	}
	if nBytes%8 != 0 {
		nBytes += 8 - nBytes%8
	}

	oldEpilogue := a.epilogue
	_, err := a.provider.Extend(nBytes + epilogueSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	a.stats.IncExtend(nBytes)

	newBlock := oldEpilogue
	newEpilogue := newBlock + nBytes
	a.epilogue = newEpilogue

	buf := a.bytes()
	setBlock(buf, newBlock, nBytes, false)
	writeHeader(buf, newEpilogue, header{allocated: true, size: 0})

	oldLast := blockPrev(buf, oldEpilogue)
	setBlockPrev(buf, newEpilogue, newBlock)
	setBlockNext(buf, newEpilogue, nullOffset)
	setBlockNext(buf, newBlock, newEpilogue)
	setBlockPrev(buf, newBlock, oldLast)
	setBlockNext(buf, oldLast, newBlock)

	a.updateHeapGauges()
	return a.coalesce(newBlock), nil
}

func (a *Allocator) updateHeapGauges() {
	a.stats.SetHeapBytes(a.provider.Len())
}
