package malloc

import "encoding/binary"

// allocatedBit marks bit 31 of the packed header/footer word.
const allocatedBit = uint32(1) << 31

// sizeMask isolates the 31-bit block_size field.
const sizeMask = allocatedBit - 1

// header describes the two fields packed into a block's header or
// footer word.
type header struct {
	allocated bool
	size      int
}

// readHeader decodes the header word at offset in buf.
func readHeader(buf []byte, offset int) header {
	word := binary.LittleEndian.Uint32(buf[offset : offset+4])
	return header{
		allocated: word&allocatedBit != 0,
		size:      int(word & sizeMask),
	}
}

// writeHeader encodes h at offset in buf, including the reserved word
// that pads the header/footer out to 8 bytes.
func writeHeader(buf []byte, offset int, h header) {
	word := uint32(h.size) & sizeMask
	if h.allocated {
		word |= allocatedBit
	}
	binary.LittleEndian.PutUint32(buf[offset:offset+4], word)
	binary.LittleEndian.PutUint32(buf[offset+4:offset+8], 0)
}

// footerOffset returns the offset of a block's footer given its own
// offset and size.
func footerOffset(blockOffset, size int) int {
	return blockOffset + size - footerSize
}

// nextHeaderOffset returns the offset of the header immediately
// following a block of the given size.
func nextHeaderOffset(blockOffset, size int) int {
	return blockOffset + size
}

// prevFooterOffset returns the offset at which the preceding block's
// footer (or, for the block right after the prologue, the prologue's
// own footer) is stored.
func prevFooterOffset(blockOffset int) int {
	return blockOffset - footerSize
}

// prevBlockOffset returns the offset of the block whose footer sits at
// prevFooterOff, derived from that footer's encoded size.
func prevBlockOffset(buf []byte, prevFooterOff int) int {
	prevSize := readHeader(buf, prevFooterOff).size
	return prevFooterOff + footerSize - prevSize
}

// readLink decodes the 8-byte little-endian offset stored at offset,
// used for both next and prev free-list link fields.
func readLink(buf []byte, offset int) int {
	return int(int64(binary.LittleEndian.Uint64(buf[offset : offset+8])))
}

// writeLink encodes value as an 8-byte little-endian offset at offset.
func writeLink(buf []byte, offset int, value int) {
	binary.LittleEndian.PutUint64(buf[offset:offset+8], uint64(int64(value)))
}

// nextFieldOffset and prevFieldOffset locate a free block's link
// fields, which are overlaid on the first 16 bytes of its payload.
func nextFieldOffset(blockOffset int) int { return blockOffset + headerSize }
func prevFieldOffset(blockOffset int) int { return blockOffset + headerSize + linkSize }

// blockNext, blockPrev, setBlockNext, setBlockPrev read and write a
// free block's list links.
func blockNext(buf []byte, blockOffset int) int { return readLink(buf, nextFieldOffset(blockOffset)) }
func blockPrev(buf []byte, blockOffset int) int { return readLink(buf, prevFieldOffset(blockOffset)) }

func setBlockNext(buf []byte, blockOffset, next int) { writeLink(buf, nextFieldOffset(blockOffset), next) }
func setBlockPrev(buf []byte, blockOffset, prev int) { writeLink(buf, prevFieldOffset(blockOffset), prev) }

// blockSize and blockAllocated read a block's header fields directly.
func blockSize(buf []byte, blockOffset int) int { return readHeader(buf, blockOffset).size }
func blockAllocated(buf []byte, blockOffset int) bool {
	return readHeader(buf, blockOffset).allocated
}

// setBlock writes identical header and footer words for a normal
// block (one with both ends, i.e. not the epilogue).
func setBlock(buf []byte, blockOffset, size int, allocated bool) {
	h := header{allocated: allocated, size: size}
	writeHeader(buf, blockOffset, h)
	writeHeader(buf, footerOffset(blockOffset, size), h)
}

// payloadOffset and blockFromPayload convert between a block's own
// offset and the offset of the payload returned to callers.
func payloadOffset(blockOffset int) int   { return blockOffset + headerSize }
func blockFromPayload(payloadOff int) int { return payloadOff - headerSize }
