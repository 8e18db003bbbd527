package malloc

import "unsafe"

// uintptrDiff computes the byte distance from base to p, both
// pointers into the same backing array. This is the one unsafe-
// adjacent operation the allocator needs: translating a payload slice
// handed back by a caller back into the byte offset it was issued at,
// by subtracting the backing array's own base pointer from the
// slice's first element.
func uintptrDiff(p, base *byte) int {
	return int(uintptr(unsafe.Pointer(p)) - uintptr(unsafe.Pointer(base)))
}
