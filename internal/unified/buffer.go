package unified

// Buffer is the grow-only scratch buffer spec.md §4.2 shares across
// all in-flight directory enumerations ("Buffer sharing"): doubling
// policy, minimum 4096 bytes. Because spec.md §5 mandates a single
// cooperative thread, requests needing it simply serialise on use —
// no locking is required, matching "Shared resources" in §5.
type Buffer struct {
	data []byte
}

// MinBufferSize is the minimum scratch buffer size.
const MinBufferSize = 4096

// NewBuffer creates a scratch buffer pre-sized to MinBufferSize.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, MinBufferSize)}
}

// Ensure grows the buffer (by doubling, at least to MinBufferSize) if
// it is smaller than size, and returns a slice of exactly size bytes
// backed by it.
func (b *Buffer) Ensure(size int) []byte {
	if size < MinBufferSize {
		size = MinBufferSize
	}
	if cap(b.data) < size {
		newCap := cap(b.data)
		if newCap == 0 {
			newCap = MinBufferSize
		}
		for newCap < size {
			newCap *= 2
		}
		b.data = make([]byte, newCap)
	}
	if len(b.data) < size {
		b.data = b.data[:size]
	}
	return b.data[:size]
}

// Len reports the buffer's current capacity.
func (b *Buffer) Len() int {
	return cap(b.data)
}
