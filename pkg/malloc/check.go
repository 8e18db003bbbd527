package malloc

import "fmt"

// CheckHeap walks the heap from the prologue to the epilogue,
// verifying header/footer agreement, 8-byte payload alignment, exact
// tiling of the heap, and free-list well-formedness in both
// directions. It returns the first violation found, wrapped in
// ErrCorruption, or nil if the heap is consistent. When verbose is
// true it additionally logs one line per block as it walks.
func (a *Allocator) CheckHeap(verbose bool) error {
	buf := a.bytes()

	if blockSize(buf, a.prologue) != prologueSize || !blockAllocated(buf, a.prologue) {
		return corrupt("prologue header is not the fixed, allocated sentinel size")
	}
	if err := checkHeaderFooter(buf, a.prologue, prologueSize); err != nil {
		return err
	}

	offset := a.prologue + prologueSize
	prevWasFree := false
	freeBlocks := make(map[int]bool)
	for offset != a.epilogue {
		if offset > a.epilogue {
			return corrupt("block overruns the epilogue; heap does not tile exactly")
		}
		h := readHeader(buf, offset)
		if h.size < MinBlockSize {
			return corrupt(fmt.Sprintf("block at %d has size %d below MinBlockSize", offset, h.size))
		}
		if err := checkHeaderFooter(buf, offset, h.size); err != nil {
			return err
		}
		if payloadOffset(offset)%8 != 0 {
			return corrupt(fmt.Sprintf("payload at %d is not 8-byte aligned", payloadOffset(offset)))
		}
		if !h.allocated && prevWasFree {
			return corrupt(fmt.Sprintf("adjacent free blocks at/before %d were not coalesced", offset))
		}
		if verbose {
			a.logger.Printf("block offset=%d size=%d allocated=%v", offset, h.size, h.allocated)
		}
		if !h.allocated {
			freeBlocks[offset] = true
		}
		prevWasFree = !h.allocated
		offset += h.size
	}

	if blockSize(buf, a.epilogue) != 0 || !blockAllocated(buf, a.epilogue) {
		return corrupt("epilogue is not a zero-size, allocated sentinel")
	}
	if verbose {
		a.logger.Printf("epilogue offset=%d", a.epilogue)
	}

	return a.checkFreeList(buf, freeBlocks)
}

// checkHeaderFooter verifies a block's header and footer agree on
// both fields.
func checkHeaderFooter(buf []byte, offset, size int) error {
	h := readHeader(buf, offset)
	f := readHeader(buf, footerOffset(offset, size))
	if h != f {
		return corrupt(fmt.Sprintf("header/footer mismatch at block %d: header=%+v footer=%+v", offset, h, f))
	}
	return nil
}

// checkFreeList verifies the free list is a well-formed doubly-linked
// list (forward and backward traversal yield the same blocks in
// reverse order) and that it contains exactly freeBlocks: the set of
// blocks the tiling walk in CheckHeap found unallocated.
func (a *Allocator) checkFreeList(buf []byte, freeBlocks map[int]bool) error {
	forward := make([]int, 0, len(freeBlocks))
	seen := make(map[int]bool, len(freeBlocks))
	for b := blockNext(buf, a.prologue); b != a.epilogue; b = blockNext(buf, b) {
		if blockAllocated(buf, b) {
			return corrupt(fmt.Sprintf("allocated block %d appears in the free list", b))
		}
		if blockPrev(buf, blockNext(buf, b)) != b {
			return corrupt(fmt.Sprintf("broken forward/backward link around block %d", b))
		}
		if !freeBlocks[b] {
			return corrupt(fmt.Sprintf("free list references block %d outside the heap's tiling", b))
		}
		seen[b] = true
		forward = append(forward, b)
	}
	if len(seen) != len(freeBlocks) {
		return corrupt("a free block is missing from the free list")
	}

	backward := make([]int, 0, len(forward))
	for b := blockPrev(buf, a.epilogue); b != a.prologue; b = blockPrev(buf, b) {
		backward = append(backward, b)
	}

	if len(forward) != len(backward) {
		return corrupt("forward and backward free-list traversals disagree on length")
	}
	for i, b := range forward {
		if backward[len(backward)-1-i] != b {
			return corrupt("forward and backward free-list traversals disagree on contents")
		}
	}

	return nil
}

func corrupt(detail string) error {
	return fmt.Errorf("%w: %s", ErrCorruption, detail)
}
