package fracwire

import (
	"errors"
	"fmt"

	"github.com/rawbytedev/fracwire/pkg/intenc"
	"github.com/rawbytedev/fracwire/pkg/tag"
	"github.com/rawbytedev/fracwire/pkg/wireio"
)

// Errors shared with the strategy packages are re-declared here so callers
// only need this package to classify failures.
var (
	ErrBufferExhausted = wireio.ErrBufferExhausted
	ErrIntegerOverflow = intenc.ErrIntegerOverflow
	ErrWidthMismatch   = intenc.ErrWidthMismatch
)

var (
	ErrUnexpectedKind  = errors.New("fracwire: unexpected tag kind")
	ErrUnsupportedKind = errors.New("fracwire: unsupported tag kind")
	ErrInvalidUTF8     = errors.New("fracwire: string is not valid utf-8")
	ErrInvalidBool     = errors.New("fracwire: invalid bool")
	ErrInvalidOption   = errors.New("fracwire: invalid option marker")
	ErrLengthMismatch  = errors.New("fracwire: length mismatch")
	ErrDepthLimit      = errors.New("fracwire: nesting depth limit exceeded")
	ErrLengthLimit     = errors.New("fracwire: element count limit exceeded")
	ErrEncoderConsumed = errors.New("fracwire: encoder already used")
	ErrPackTooLarge    = errors.New("fracwire: packed value too large")
	ErrNotSkippable    = errors.New("fracwire: packed values cannot be skipped")
	ErrUnsupported     = errors.New("fracwire: unsupported type")
	ErrNotPointer      = errors.New("fracwire: decode target must be a non-nil pointer")
)

// KindError reports a tag that does not have the kind the decoder expected.
type KindError struct {
	Offset int
	Want   tag.Kind
	Got    tag.Tag
}

func (e *KindError) Error() string {
	if !e.Got.Kind().Known() {
		return fmt.Sprintf("fracwire: unsupported tag kind %s at offset %d", e.Got.Kind(), e.Offset)
	}
	return fmt.Sprintf("fracwire: expected %s at offset %d, got %v", e.Want, e.Offset, e.Got)
}

// Unwrap returns ErrUnsupportedKind for reserved kinds and ErrUnexpectedKind
// otherwise.
func (e *KindError) Unwrap() error {
	if !e.Got.Kind().Known() {
		return ErrUnsupportedKind
	}
	return ErrUnexpectedKind
}
