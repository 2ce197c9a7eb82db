// Package zerocopy stores plain Go values in byte buffers and loads them back
// without copying.
//
// A value is stored as its in-memory representation. Loading validates the
// bytes (bounds, alignment, bool values, zeroed padding) and returns a
// pointer into the buffer, so the buffer must not be modified while loaded
// values are in use.
//
// Only types without indirection can be stored: no pointers, slices,
// strings, maps, channels, funcs or interfaces. Use Ref and Slice to link
// values together inside a buffer.
package zerocopy

import "fmt"

// Ptr is a byte offset into a buffer.
type Ptr uint32

// Zero is the offset of the start of a buffer.
const Zero Ptr = 0

// Offset returns p as an int.
func (p Ptr) Offset() int { return int(p) }

func (p Ptr) String() string { return fmt.Sprintf("Ptr(%d)", uint32(p)) }

// Ref is a typed offset of a T. It carries no proof that a valid T lives
// there; Load checks that.
type Ref[T any] struct {
	ptr Ptr
}

// NewRef returns a reference to a T at p.
func NewRef[T any](p Ptr) Ref[T] { return Ref[T]{ptr: p} }

// ZeroRef returns a reference to a T at the start of a buffer.
func ZeroRef[T any]() Ref[T] { return Ref[T]{} }

// Ptr returns the offset.
func (r Ref[T]) Ptr() Ptr { return r.ptr }

func (r Ref[T]) String() string {
	var zero T
	return fmt.Sprintf("Ref[%T](%d)", zero, uint32(r.ptr))
}

// Slice is a typed offset of Len contiguous values of T.
type Slice[T any] struct {
	ptr Ptr
	n   uint32
}

// NewSlice returns a reference to n values of T starting at p.
func NewSlice[T any](p Ptr, n int) Slice[T] { return Slice[T]{ptr: p, n: uint32(n)} }

// Ptr returns the offset of the first element.
func (s Slice[T]) Ptr() Ptr { return s.ptr }

// Len returns the number of elements.
func (s Slice[T]) Len() int { return int(s.n) }
