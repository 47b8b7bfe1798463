// Package alloc implements the allocator bridge backing the inflate engine's
// working memory.
//
// The engine's memory contract is allocate(items, itemSize) / free(pointer),
// where free receives no size argument. Every block therefore carries a size
// header directly before the payload: Allocate writes the total block size
// there before returning, and Free steps back from the payload to recover it.
// Blocks are plain host-heap allocations; the bridge keeps a registry of live
// blocks so they stay reachable until freed and so an invalid free is caught
// immediately.
package alloc

import (
	"math"
	"math/bits"
	"sync"
	"unsafe"

	"github.com/arloliu/jsonstream/endian"
)

const (
	align      = int(unsafe.Sizeof(uintptr(0)))
	headerSize = int(unsafe.Sizeof(uint64(0)))
)

// Bridge hands out size-headed blocks from the host heap.
// It is safe for concurrent use; the engine allocates output blocks on its
// own goroutine while the feeding side frees them.
type Bridge struct {
	mu     sync.Mutex
	engine endian.EndianEngine
	blocks map[uintptr][]byte
}

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{
		engine: endian.GetNativeEngine(),
		blocks: make(map[uintptr][]byte),
	}
}

// Allocate returns a payload slice of items*itemSize bytes, or nil when the
// product overflows, is zero, or the host refuses the allocation. The
// payload is preceded by a header holding the total block size; the header
// is always written before a non-nil payload is returned.
func (b *Bridge) Allocate(items, itemSize uint) []byte {
	hi, size := bits.Mul64(uint64(items), uint64(itemSize))
	if hi != 0 || size == 0 {
		return nil
	}

	// Round the payload up to pointer alignment, then add the header.
	padded := size + uint64(align-1)
	if padded < size {
		return nil
	}
	padded &^= uint64(align - 1)

	total := padded + uint64(headerSize)
	if total < padded || total > math.MaxInt {
		return nil
	}

	block := make([]byte, total)
	b.engine.PutUint64(block[:headerSize], total)
	payload := block[headerSize : uint64(headerSize)+size]

	b.mu.Lock()
	b.blocks[uintptr(unsafe.Pointer(unsafe.SliceData(block)))] = block
	b.mu.Unlock()

	return payload
}

// Free returns a payload previously handed out by Allocate to the host
// allocator. It steps back one header from the payload base, reads the
// stored total size, and checks it against the registered block. Panics on
// a payload this bridge did not allocate or on a corrupted header; the
// engine contract never frees foreign pointers.
func (b *Bridge) Free(payload []byte) {
	base := unsafe.Add(unsafe.Pointer(unsafe.SliceData(payload)), -headerSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	block, ok := b.blocks[uintptr(base)]
	if !ok {
		panic("alloc: Free of a payload not returned by Allocate")
	}

	total := b.engine.Uint64(unsafe.Slice((*byte)(base), headerSize))
	if total != uint64(len(block)) {
		panic("alloc: size header corrupted")
	}

	delete(b.blocks, uintptr(base))
}

// Live reports the number of blocks allocated and not yet freed.
func (b *Bridge) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.blocks)
}
