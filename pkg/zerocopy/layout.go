package zerocopy

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/rawbytedev/fracwire/internal/common"
)

// Validator is implemented by types with invariants beyond their bit layout.
// Load calls Validate on every field and array element that implements it,
// innermost first, and then on the loaded value itself.
type Validator interface {
	Validate() error
}

var validatorType = reflect.TypeFor[Validator]()

type span struct {
	off, len int
}

// inner is a Validator found below the top level of a layout.
type inner struct {
	off int
	typ reflect.Type
}

// layout describes the bytes of a type that Load has to check.
type layout struct {
	typ   reflect.Type
	size  int
	align int
	// bools are offsets of bytes that must be 0 or 1.
	bools []int
	// padding are byte ranges that must be zero.
	padding []span
	// fields are the top level struct fields in declaration order.
	fields []reflect.StructField
	// validators are the nested Validators in the order Load calls them.
	validators []inner
	// validator is set when the type or anything inside it is a Validator.
	validator bool
	err       error
}

// anyBits reports whether every bit pattern of the right size is a valid
// value.
func (l *layout) anyBits() bool {
	return len(l.bools) == 0 && len(l.padding) == 0 && !l.validator
}

type layoutCache struct {
	mu      sync.RWMutex
	layouts map[reflect.Type]*layout
}

var layouts = &layoutCache{layouts: make(map[reflect.Type]*layout)}

func (c *layoutCache) get(t reflect.Type) *layout {
	c.mu.RLock()
	if l, ok := c.layouts[t]; ok {
		c.mu.RUnlock()
		return l
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.layouts[t]; ok {
		return l
	}
	l := buildLayout(t)
	c.layouts[t] = l
	return l
}

func layoutFor[T any]() *layout {
	return layouts.get(reflect.TypeFor[T]())
}

func buildLayout(t reflect.Type) *layout {
	l := &layout{
		typ:       t,
		size:      int(t.Size()),
		align:     t.Align(),
		validator: isValidator(t),
	}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			l.fields = append(l.fields, t.Field(i))
		}
	}
	if err := l.walk(t, 0); err != nil {
		l.err = err
	}
	l.validator = l.validator || len(l.validators) > 0
	return l
}

func isValidator(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(validatorType)
}

func (l *layout) walk(t reflect.Type, off int) error {
	if err := l.walkKind(t, off); err != nil {
		return err
	}
	if t != l.typ && isValidator(t) {
		l.validators = append(l.validators, inner{off: off, typ: t})
	}
	return nil
}

func (l *layout) walkKind(t reflect.Type, off int) error {
	k := t.Kind()
	switch {
	case k == reflect.Bool:
		l.bools = append(l.bools, off)
		return nil
	case common.IsFixedKind(k):
		return nil
	case common.IsIndirectKind(k):
		return fmt.Errorf("%w: %s contains %s", ErrNotZeroCopy, l.typ, t)
	case k == reflect.Array:
		elem := t.Elem()
		if isPlain(elem) {
			return nil
		}
		size := int(elem.Size())
		for i := 0; i < t.Len(); i++ {
			if err := l.walk(elem, off+i*size); err != nil {
				return err
			}
		}
		return nil
	case k == reflect.Struct:
		end := 0
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			fo := int(f.Offset)
			if fo > end {
				l.padding = append(l.padding, span{off: off + end, len: fo - end})
			}
			if err := l.walk(f.Type, off+fo); err != nil {
				return err
			}
			end = fo + int(f.Type.Size())
		}
		if size := int(t.Size()); size > end {
			l.padding = append(l.padding, span{off: off + end, len: size - end})
		}
		return nil
	}
	return fmt.Errorf("%w: %s has unsupported kind %s", ErrNotZeroCopy, l.typ, k)
}

// isPlain reports whether t is made of numbers only, without bools,
// padding or Validators.
func isPlain(t reflect.Type) bool {
	if isValidator(t) {
		return false
	}
	switch k := t.Kind(); {
	case k == reflect.Bool:
		return false
	case common.IsFixedKind(k):
		return true
	case k == reflect.Array:
		return isPlain(t.Elem())
	case k == reflect.Struct:
		end := uintptr(0)
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Offset != end || !isPlain(f.Type) {
				return false
			}
			end = f.Offset + f.Type.Size()
		}
		return end == t.Size()
	}
	return false
}

// Check reports whether T can be stored and loaded, returning an error
// wrapping ErrNotZeroCopy if it cannot.
func Check[T any]() error {
	return layoutFor[T]().err
}

// AnyBits reports whether every bit pattern is a valid T, in which case Load
// only checks bounds and alignment. It is false for types containing bools,
// padding or a Validator at any depth.
func AnyBits[T any]() bool {
	l := layoutFor[T]()
	return l.err == nil && l.anyBits()
}
