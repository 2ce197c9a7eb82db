package zerocopy

import (
	"reflect"
	"unsafe"

	"github.com/rawbytedev/fracwire/internal/common"
)

// DefaultAlign is the base alignment of a new AlignedBuf. It covers every
// primitive Go type.
const DefaultAlign = 8

// Buf is a read-only view of stored values.
type Buf struct {
	data []byte
}

// NewBuf wraps data. Values are only loadable if data is suitably aligned in
// memory, which holds for anything produced by AlignedBuf.
func NewBuf(data []byte) *Buf { return &Buf{data: data} }

// Bytes returns the underlying bytes.
func (b *Buf) Bytes() []byte { return b.data }

// Len returns the size of the buffer.
func (b *Buf) Len() int { return len(b.data) }

// AlignedBuf is a growable buffer whose first byte is aligned to Align. The
// alignment is raised, moving the contents, when a stored type needs more.
type AlignedBuf struct {
	raw   []byte
	data  []byte
	align int
}

// NewAlignedBuf returns an empty buffer aligned to DefaultAlign.
func NewAlignedBuf() *AlignedBuf { return NewAlignedBufWithAlign(DefaultAlign) }

// NewAlignedBufWithAlign returns an empty buffer with the given base
// alignment, which must be a power of two.
func NewAlignedBufWithAlign(align int) *AlignedBuf {
	if !common.IsPow2(align) {
		align = 1
	}
	return &AlignedBuf{align: align}
}

// Align returns the current base alignment.
func (b *AlignedBuf) Align() int { return b.align }

// Len returns the number of bytes written.
func (b *AlignedBuf) Len() int { return len(b.data) }

// Bytes returns the written bytes.
func (b *AlignedBuf) Bytes() []byte { return b.data }

// AsBuf returns a view for loading. It is invalidated by further writes.
func (b *AlignedBuf) AsBuf() *Buf { return &Buf{data: b.data} }

// Reset empties the buffer, keeping its memory.
func (b *AlignedBuf) Reset() { b.data = b.data[:0] }

func base(p []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(p)))
}

// realloc moves the contents into a new allocation of capacity bytes whose
// first byte is aligned to b.align.
func (b *AlignedBuf) realloc(capacity int) {
	raw := make([]byte, capacity+b.align)
	shift := 0
	if rem := int(base(raw) % uintptr(b.align)); rem != 0 {
		shift = b.align - rem
	}
	data := raw[shift : shift+len(b.data) : shift+capacity]
	copy(data, b.data)
	b.raw, b.data = raw, data
}

func (b *AlignedBuf) reserve(n int) {
	if len(b.data)+n <= cap(b.data) {
		return
	}
	b.realloc(max(2*cap(b.data), len(b.data)+n, 64))
}

func (b *AlignedBuf) requestAlign(align int) {
	if align <= b.align {
		return
	}
	b.align = align
	if cap(b.data) > 0 && base(b.data)%uintptr(align) != 0 {
		b.realloc(cap(b.data))
	}
}

// padTo appends zero bytes until Len is a multiple of align.
func (b *AlignedBuf) padTo(align int) {
	b.requestAlign(align)
	n := common.AlignUp(len(b.data), align) - len(b.data)
	if n == 0 {
		return
	}
	b.reserve(n)
	start := len(b.data)
	b.data = b.data[:start+n]
	clear(b.data[start:])
}

// ExtendFromSlice appends raw bytes.
func (b *AlignedBuf) ExtendFromSlice(p []byte) {
	b.reserve(len(p))
	b.data = append(b.data, p...)
}

// NextOffset returns the offset at which the next T will be stored.
func NextOffset[T any](b *AlignedBuf) Ptr {
	return Ptr(common.AlignUp(b.Len(), reflect.TypeFor[T]().Align()))
}
