package zerocopy

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds       = errors.New("zerocopy: out of bounds")
	ErrAlignment         = errors.New("zerocopy: misaligned")
	ErrInvalidBitPattern = errors.New("zerocopy: invalid bit pattern")
	ErrNotZeroCopy       = errors.New("zerocopy: type is not zero-copy")
	ErrIncompleteStruct  = errors.New("zerocopy: struct fields not all padded")
	ErrFieldMismatch     = errors.New("zerocopy: field type mismatch")
	ErrTooLarge          = errors.New("zerocopy: buffer exceeds offset range")
)

// LoadError records where a load failed and for which type.
type LoadError struct {
	Offset int
	Type   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%v: loading %s at offset %d", e.Err, e.Type, e.Offset)
}

func (e *LoadError) Unwrap() error { return e.Err }
