package malloc

// findFit performs a first-fit search over the free list. Small
// requests scan forward from the head (the block right after the
// prologue); large requests scan backward from the tail (the block
// right before the epilogue). It returns -1 if no free block is large
// enough.
func (a *Allocator) findFit(asize int) int {
	buf := a.bytes()
	if isSmallPayload(asize) {
		for b := blockNext(buf, a.prologue); b != a.epilogue; b = blockNext(buf, b) {
			if !blockAllocated(buf, b) && blockSize(buf, b) >= asize {
				return b
			}
		}
		return -1
	}
	for b := blockPrev(buf, a.epilogue); b != a.prologue; b = blockPrev(buf, b) {
		if !blockAllocated(buf, b) && blockSize(buf, b) >= asize {
			return b
		}
	}
	return -1
}

// place carves asize bytes out of blockOffset, which must already be
// in the free list with size >= asize, and returns the offset of the
// resulting allocated block. The split orientation depends on the
// request's size class: small requests are placed at the low end of
// the free block (so small blocks accrete at low addresses), large
// requests at the high end (so large blocks accrete at high
// addresses), separating the two size classes spatially.
func (a *Allocator) place(blockOffset, asize int) int {
	buf := a.bytes()
	total := blockSize(buf, blockOffset)
	split := total - asize

	if split < MinBlockSize {
		setBlock(buf, blockOffset, total, true)
		a.removeFromFreeList(blockOffset)
		return blockOffset
	}

	a.stats.IncSplit()
	if isSmallPayload(asize) {
		remainder := blockOffset + asize
		a.replaceInFreeList(blockOffset, remainder)
		setBlock(buf, remainder, split, false)
		setBlock(buf, blockOffset, asize, true)
		return blockOffset
	}

	high := blockOffset + split
	setBlock(buf, high, asize, true)
	setBlock(buf, blockOffset, split, false)
	return high
}

// coalesce inspects the footer immediately before blockOffset and the
// header immediately after it, merging blockOffset with whichever
// neighbors are free and restitching the free list accordingly. It
// returns the offset of the (possibly now-larger) free block.
func (a *Allocator) coalesce(blockOffset int) int {
	buf := a.bytes()
	size := blockSize(buf, blockOffset)

	prevOffset := prevBlockOffset(buf, prevFooterOffset(blockOffset))
	prevFree := !blockAllocated(buf, prevOffset)

	nextOffset := nextHeaderOffset(blockOffset, size)
	nextFree := !blockAllocated(buf, nextOffset)

	switch {
	case !prevFree && !nextFree:
		return blockOffset

	case !prevFree && nextFree:
		a.stats.IncCoalesceForward()
		nextSize := blockSize(buf, nextOffset)
		a.removeFromFreeList(nextOffset)
		setBlock(buf, blockOffset, size+nextSize, false)
		return blockOffset

	case prevFree && !nextFree:
		a.stats.IncCoalesceBackward()
		a.removeFromFreeList(blockOffset)
		prevSize := blockSize(buf, prevOffset)
		setBlock(buf, prevOffset, prevSize+size, false)
		return prevOffset

	default:
		a.stats.IncCoalesceBoth()
		nextSize := blockSize(buf, nextOffset)
		a.removeFromFreeList(blockOffset)
		a.removeFromFreeList(nextOffset)
		prevSize := blockSize(buf, prevOffset)
		setBlock(buf, prevOffset, prevSize+size+nextSize, false)
		return prevOffset
	}
}

// adjustedSize normalizes a requested payload size to the block size
// used throughout the allocator: header + footer overhead, rounded up
// to a multiple of 8, clamped up to MinBlockSize.
func adjustedSize(n int) int {
	raw := n + overhead
	if rem := raw % 8; rem != 0 {
		raw += 8 - rem
	}
	if raw < MinBlockSize {
		raw = MinBlockSize
	}
	return raw
}

// Allocate returns a payload slice of at least n bytes, or nil if
// n is 0. It normalizes n to an adjusted block size, searches the
// free list, extends the heap on a miss, and places the winning
// block, splitting it if the remainder would still host a block.
func (a *Allocator) Allocate(n int) []byte {
	a.stats.IncAlloc()
	if n == 0 {
		return nil
	}
	asize := adjustedSize(n)

	block := a.findFit(asize)
	if block < 0 {
		a.stats.IncFindFitMiss()
		extendBytes := asize
		if min := growthMultiplier * ChunkSize; min > extendBytes {
			extendBytes = min
		}
		grown, err := a.extend(extendBytes)
		if err != nil {
			return nil
		}
		block = grown
	}

	placed := a.place(block, asize)
	a.updateFreeGauges()
	return a.payloadSlice(placed)
}

// Free returns payload to the free list and coalesces it with any
// free neighbors. It is undefined behavior to free a pointer not
// returned by Allocate or Reallocate, or to free one twice.
func (a *Allocator) Free(payload []byte) {
	a.stats.IncFree()
	if len(payload) == 0 {
		return
	}
	block := a.offsetOf(payload)
	buf := a.bytes()
	size := blockSize(buf, block)
	setBlock(buf, block, size, false)

	if isSmallPayload(size) {
		a.insertAtHead(block)
	} else {
		a.insertAtTail(block)
	}
	a.coalesce(block)
	a.updateFreeGauges()
}

// Reallocate resizes the block behind payload to newSize, copying
// min(old, newSize) bytes of content and freeing the original block.
// It panics if the new allocation cannot be satisfied, matching the
// naive allocate/copy/free policy's fatal-on-failure contract.
func (a *Allocator) Reallocate(payload []byte, newSize int) []byte {
	a.stats.IncRealloc()
	if payload == nil {
		return a.Allocate(newSize)
	}
	if newSize == 0 {
		a.Free(payload)
		return nil
	}

	block := a.offsetOf(payload)
	oldSize := blockSize(a.bytes(), block)
	oldPayloadLen := oldSize - overhead

	newPayload := a.Allocate(newSize)
	if newPayload == nil {
		panic(ErrOutOfMemory)
	}
	n := oldPayloadLen
	if newSize < n {
		n = newSize
	}
	copy(newPayload[:n], payload[:n])
	a.Free(payload)
	return newPayload
}

// payloadSlice returns the caller-visible slice for an allocated
// block: everything between its header and footer.
func (a *Allocator) payloadSlice(blockOffset int) []byte {
	buf := a.bytes()
	size := blockSize(buf, blockOffset)
	start := payloadOffset(blockOffset)
	end := blockOffset + size - footerSize
	return buf[start:end:end]
}

// offsetOf derives a block's offset from a payload slice previously
// returned by Allocate or Reallocate, using the slice's position
// within the Allocator's backing region.
func (a *Allocator) offsetOf(payload []byte) int {
	base := &a.bytes()[0]
	off := uintptrDiff(&payload[0], base)
	return blockFromPayload(off)
}

func (a *Allocator) updateFreeGauges() {
	buf := a.bytes()
	blocks, bytes := 0, 0
	for b := blockNext(buf, a.prologue); b != a.epilogue; b = blockNext(buf, b) {
		blocks++
		bytes += blockSize(buf, b) - overhead
	}
	a.stats.SetFreeListBlocks(blocks)
	a.stats.SetFreeBytes(bytes)
}
