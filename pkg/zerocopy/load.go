package zerocopy

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Load returns the T stored at ref, pointing into buf. It checks that the
// value is in bounds, that both the offset and the resulting address are
// aligned for T, that bools hold 0 or 1 and padding is zero, and finally
// runs every Validator in the value. Failures are *LoadError values.
func Load[T any](buf *Buf, ref Ref[T]) (*T, error) {
	l := layoutFor[T]()
	off := ref.ptr.Offset()
	p, err := check(buf.data, l, off, 1)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return new(T), nil
	}
	v := (*T)(p)
	if err := validate(v, l, off); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadSlice returns the values referenced by s, pointing into buf.
func LoadSlice[T any](buf *Buf, s Slice[T]) ([]T, error) {
	l := layoutFor[T]()
	off := s.ptr.Offset()
	p, err := check(buf.data, l, off, s.Len())
	if err != nil {
		return nil, err
	}
	if p == nil {
		return make([]T, s.Len()), nil
	}
	out := unsafe.Slice((*T)(p), s.Len())
	if l.validator {
		for i := range out {
			if err := validate(&out[i], l, off+i*l.size); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func validate[T any](v *T, l *layout, off int) error {
	base := unsafe.Pointer(v)
	for _, in := range l.validators {
		vv := reflect.NewAt(in.typ, unsafe.Add(base, in.off)).Interface().(Validator)
		if err := vv.Validate(); err != nil {
			return &LoadError{Offset: off + in.off, Type: l.typ.String(), Err: fmt.Errorf("%w: %s: %w", ErrInvalidBitPattern, in.typ, err)}
		}
	}
	vv, ok := any(v).(Validator)
	if !ok {
		return nil
	}
	if err := vv.Validate(); err != nil {
		return &LoadError{Offset: off, Type: l.typ.String(), Err: fmt.Errorf("%w: %w", ErrInvalidBitPattern, err)}
	}
	return nil
}

// check validates n consecutive values described by l at off and returns
// their address, or nil if they occupy no bytes.
func check(data []byte, l *layout, off, n int) (unsafe.Pointer, error) {
	fail := func(at int, err error) error {
		return &LoadError{Offset: at, Type: l.typ.String(), Err: err}
	}
	if l.err != nil {
		return nil, fail(off, l.err)
	}
	total := uint64(l.size) * uint64(n)
	if off < 0 || uint64(off)+total > uint64(len(data)) {
		return nil, fail(off, fmt.Errorf("%w: %d bytes wanted, buffer holds %d", ErrOutOfBounds, total, len(data)))
	}
	if off%l.align != 0 {
		return nil, fail(off, fmt.Errorf("%w: offset not a multiple of %d", ErrAlignment, l.align))
	}
	if total == 0 {
		return nil, nil
	}
	p := unsafe.Pointer(&data[off])
	if uintptr(p)%uintptr(l.align) != 0 {
		return nil, fail(off, fmt.Errorf("%w: address %#x not a multiple of %d", ErrAlignment, uintptr(p), l.align))
	}
	if len(l.bools) == 0 && len(l.padding) == 0 {
		return p, nil
	}
	for i := 0; i < n; i++ {
		at := off + i*l.size
		elem := data[at : at+l.size]
		for _, b := range l.bools {
			if elem[b] > 1 {
				return nil, fail(at+b, fmt.Errorf("%w: bool holds %#x", ErrInvalidBitPattern, elem[b]))
			}
		}
		for _, s := range l.padding {
			for j, c := range elem[s.off : s.off+s.len] {
				if c != 0 {
					return nil, fail(at+s.off+j, fmt.Errorf("%w: padding byte holds %#x", ErrInvalidBitPattern, c))
				}
			}
		}
	}
	return p, nil
}
