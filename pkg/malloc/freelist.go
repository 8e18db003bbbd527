package malloc

// The free list is threaded through free blocks' payloads, anchored at
// two permanent endpoints: the prologue (head) and the epilogue
// (tail). Every free block's next/prev fields, and the two sentinels'
// own next/prev fields, form a single doubly-linked chain.
//
// The allocator decides which end a newly-freed block joins; these
// primitives are agnostic to that choice.

// insertAtHead splices block in between the prologue and whatever
// currently follows it.
func (a *Allocator) insertAtHead(blockOffset int) {
	buf := a.bytes()
	oldFirst := blockNext(buf, a.prologue)
	setBlockNext(buf, a.prologue, blockOffset)
	setBlockPrev(buf, blockOffset, a.prologue)
	setBlockNext(buf, blockOffset, oldFirst)
	setBlockPrev(buf, oldFirst, blockOffset)
}

// insertAtTail splices block in between the epilogue and whatever
// currently precedes it.
func (a *Allocator) insertAtTail(blockOffset int) {
	buf := a.bytes()
	oldLast := blockPrev(buf, a.epilogue)
	setBlockPrev(buf, a.epilogue, blockOffset)
	setBlockNext(buf, blockOffset, a.epilogue)
	setBlockPrev(buf, blockOffset, oldLast)
	setBlockNext(buf, oldLast, blockOffset)
}

// removeFromFreeList splices block out of the list, reconnecting its
// neighbors directly. block must currently be linked in (true for any
// free block other than the two sentinels).
func (a *Allocator) removeFromFreeList(blockOffset int) {
	buf := a.bytes()
	prev := blockPrev(buf, blockOffset)
	next := blockNext(buf, blockOffset)
	setBlockNext(buf, prev, next)
	setBlockPrev(buf, next, prev)
}

// replaceInFreeList swaps oldOffset for newOffset at the same position
// in the list, inheriting oldOffset's prev and next. Used by place's
// low-end split, where the remainder takes over the original block's
// slot rather than being reinserted from scratch.
func (a *Allocator) replaceInFreeList(oldOffset, newOffset int) {
	buf := a.bytes()
	prev := blockPrev(buf, oldOffset)
	next := blockNext(buf, oldOffset)
	setBlockPrev(buf, newOffset, prev)
	setBlockNext(buf, newOffset, next)
	setBlockNext(buf, prev, newOffset)
	setBlockPrev(buf, next, newOffset)
}

// isSmallPayload reports whether a block of blockSize bytes holds a
// "small" request's payload (<= SmallPayloadThreshold bytes), the
// classification shared by find_fit, place, and free.
func isSmallPayload(blockSize int) bool {
	return blockSize-overhead <= SmallPayloadThreshold
}
