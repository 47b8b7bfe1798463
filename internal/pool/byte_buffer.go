// Package pool provides the growable byte buffers backing the element
// extractor and the error-body accumulator, with pooled reuse across streams.
package pool

import "sync"

const (
	// DefaultBufferSize is the capacity of buffers created by the pool.
	DefaultBufferSize = 4 * 1024
	// MaxBufferThreshold is the largest capacity returned to the pool;
	// bigger buffers are dropped so one huge response does not pin memory.
	MaxBufferThreshold = 128 * 1024
)

// ByteBuffer is a growable, contiguous accumulation of bytes. The extractor
// appends incoming chunks with MustWrite and drops consumed prefixes with
// Discard; unconsumed bytes are preserved verbatim.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a ByteBuffer with the specified initial capacity.
func NewByteBuffer(capacity int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, capacity),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// MustWrite appends data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Discard drops the first n bytes, sliding the remainder to the front.
// Panics if n is out of range.
func (bb *ByteBuffer) Discard(n int) {
	if n < 0 || n > len(bb.B) {
		panic("Discard: invalid count")
	}

	rest := copy(bb.B, bb.B[n:])
	bb.B = bb.B[:rest]
}

var bufferPool = sync.Pool{
	New: func() any { return NewByteBuffer(DefaultBufferSize) },
}

// GetByteBuffer returns an empty pooled buffer with at least the given capacity.
func GetByteBuffer(capacity int) *ByteBuffer {
	bb, _ := bufferPool.Get().(*ByteBuffer)
	bb.Reset()
	if cap(bb.B) < capacity {
		bb.B = make([]byte, 0, capacity)
	}

	return bb
}

// PutByteBuffer returns a buffer to the pool, dropping oversized ones.
func PutByteBuffer(bb *ByteBuffer) {
	if bb == nil || cap(bb.B) > MaxBufferThreshold {
		return
	}

	bufferPool.Put(bb)
}
