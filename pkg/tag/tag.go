// Package tag implements the single byte type tag of the wire format.
//
// A tag packs a 3-bit Kind in the most significant bits with 5 bits of data:
//
//	bits 7..5  kind
//	bits 4..0  data (0-30 inline value, 31 = value follows out of line)
package tag

import "fmt"

// DataMask masks the data bits of a tag. A tag whose data equals DataMask
// carries no inline value.
const DataMask uint8 = 0b000_11111

// MaxInlineLen is the largest packed body framed with a Prefix tag. Larger
// bodies are framed with Pack.
const MaxInlineLen = 62

// MaxPackExponent bounds the exponent of a Pack tag.
const MaxPackExponent = 30

// Kind is the structure of a tagged value.
type Kind uint8

const (
	// Byte is a single byte.
	Byte Kind = 0b000_00000
	// Prefix is a length-prefixed run of raw bytes.
	Prefix Kind = 0b001_00000
	// Sequence is a length-prefixed sequence of values.
	Sequence Kind = 0b010_00000
	// PairSequence is a length-prefixed sequence of key/value pairs.
	PairSequence Kind = 0b011_00000
	// Continuation is a continuation encoded number. Small values are
	// stored in the data bits.
	Continuation Kind = 0b100_00000
	// Pack is a packed body of 2^data bytes, zero padded.
	Pack Kind = 0b101_00000
	// Unknown6 is reserved.
	Unknown6 Kind = 0b110_00000
	// Unknown7 is reserved.
	Unknown7 Kind = 0b111_00000
)

// Known reports whether the kind has defined semantics.
func (k Kind) Known() bool {
	return k <= Pack
}

func (k Kind) String() string {
	switch k {
	case Byte:
		return "Byte"
	case Prefix:
		return "Prefix"
	case Sequence:
		return "Sequence"
	case PairSequence:
		return "PairSequence"
	case Continuation:
		return "Continuation"
	case Pack:
		return "Pack"
	case Unknown6:
		return "Unknown6"
	case Unknown7:
		return "Unknown7"
	default:
		return fmt.Sprintf("Kind(%#x)", uint8(k))
	}
}

// Tag is a type tag.
type Tag uint8

// New constructs a tag. A data value of DataMask or more produces an empty
// tag.
func New(kind Kind, data uint8) Tag {
	if data >= DataMask {
		data = DataMask
	}
	return Tag(uint8(kind)&^DataMask | data)
}

// Empty constructs a tag of the given kind with no inline data.
func Empty(kind Kind) Tag {
	return Tag(uint8(kind)&^DataMask | DataMask)
}

// FromByte reinterprets b as a tag.
func FromByte(b byte) Tag { return Tag(b) }

// Byte returns the tag as it is written on the wire.
func (t Tag) Byte() byte { return byte(t) }

// Kind returns the kind stored in the three most significant bits. Every bit
// pattern maps to a Kind, reserved ones included.
func (t Tag) Kind() Kind { return Kind(uint8(t) &^ DataMask) }

// DataRaw returns the data bits as is.
func (t Tag) DataRaw() uint8 { return uint8(t) & DataMask }

// Data returns the inline value, or false if the tag is empty.
func (t Tag) Data() (uint8, bool) {
	d := t.DataRaw()
	if d == DataMask {
		return 0, false
	}
	return d, true
}

// WithLen constructs a tag with n embedded if it fits. The boolean reports
// whether it did; if not, n must be written separately.
func WithLen(kind Kind, n int) (Tag, bool) {
	if n >= 0 && n < int(DataMask) {
		return New(kind, uint8(n)), true
	}
	return Empty(kind), false
}

// WithByte is WithLen for a byte value.
func WithByte(kind Kind, b uint8) (Tag, bool) {
	if b < DataMask {
		return New(kind, b), true
	}
	return Empty(kind), false
}

func (t Tag) String() string {
	if d, ok := t.Data(); ok {
		return fmt.Sprintf("Tag{kind: %s, data: %d}", t.Kind(), d)
	}
	return fmt.Sprintf("Tag{kind: %s, data: none}", t.Kind())
}
