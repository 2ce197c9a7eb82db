package zerocopy

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"
)

// writeValue appends the bytes of *v at the next offset aligned for T, with
// padding bytes cleared.
func writeValue[T any](buf *AlignedBuf, l *layout, v *T) (Ptr, error) {
	if l.err != nil {
		return 0, l.err
	}
	buf.padTo(l.align)
	off := buf.Len()
	if uint64(off)+uint64(l.size) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, uint64(off)+uint64(l.size))
	}
	if l.size == 0 {
		return Ptr(off), nil
	}
	buf.ExtendFromSlice(unsafe.Slice((*byte)(unsafe.Pointer(v)), l.size))
	dst := buf.data[off:]
	for _, p := range l.padding {
		clear(dst[p.off : p.off+p.len])
	}
	return Ptr(off), nil
}

// Store writes *v to buf and returns a reference to it.
func Store[T any](buf *AlignedBuf, v *T) (Ref[T], error) {
	p, err := writeValue(buf, layoutFor[T](), v)
	if err != nil {
		return Ref[T]{}, err
	}
	return NewRef[T](p), nil
}

// StoreSlice writes vs contiguously and returns a reference to them.
func StoreSlice[T any](buf *AlignedBuf, vs []T) (Slice[T], error) {
	l := layoutFor[T]()
	if l.err != nil {
		return Slice[T]{}, l.err
	}
	buf.padTo(l.align)
	start := Ptr(buf.Len())
	for i := range vs {
		if _, err := writeValue(buf, l, &vs[i]); err != nil {
			return Slice[T]{}, err
		}
	}
	return NewSlice[T](start, len(vs)), nil
}

// StructWriter stores a struct after every field has been accounted for with
// Pad, in declaration order. It exists for callers that want the field list
// checked against the struct definition at the write site.
type StructWriter[T any] struct {
	buf  *AlignedBuf
	val  *T
	lay  *layout
	next int
	err  error
	done bool
}

// StoreStruct starts storing *v into buf.
func StoreStruct[T any](buf *AlignedBuf, v *T) *StructWriter[T] {
	w := &StructWriter[T]{buf: buf, val: v, lay: layoutFor[T]()}
	switch {
	case w.lay.err != nil:
		w.err = w.lay.err
	case w.lay.typ.Kind() != reflect.Struct:
		w.err = fmt.Errorf("%w: %s is not a struct", ErrFieldMismatch, w.lay.typ)
	}
	return w
}

// Pad accounts for the next field of the struct, which must be of type F.
// Errors are kept and reported by Finish.
func Pad[F, T any](w *StructWriter[T]) *StructWriter[T] {
	if w.err != nil {
		return w
	}
	if w.next >= len(w.lay.fields) {
		w.err = fmt.Errorf("%w: %s has only %d fields", ErrFieldMismatch, w.lay.typ, len(w.lay.fields))
		return w
	}
	f := w.lay.fields[w.next]
	if want := reflect.TypeFor[F](); f.Type != want {
		w.err = fmt.Errorf("%w: field %s of %s is %s, not %s", ErrFieldMismatch, f.Name, w.lay.typ, f.Type, want)
		return w
	}
	w.next++
	return w
}

// Finish writes the struct. It fails with ErrIncompleteStruct unless every
// field was padded, and writes nothing on failure.
func (w *StructWriter[T]) Finish() (Ref[T], error) {
	if w.done {
		return Ref[T]{}, fmt.Errorf("%w: already finished", ErrIncompleteStruct)
	}
	w.done = true
	if w.err != nil {
		return Ref[T]{}, w.err
	}
	if w.next != len(w.lay.fields) {
		return Ref[T]{}, fmt.Errorf("%w: %d of %d fields of %s padded", ErrIncompleteStruct, w.next, len(w.lay.fields), w.lay.typ)
	}
	p, err := writeValue(w.buf, w.lay, w.val)
	if err != nil {
		return Ref[T]{}, err
	}
	return NewRef[T](p), nil
}
