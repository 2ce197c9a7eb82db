// Package fracwire is a self describing binary serialization format with
// configurable integer and length encodings.
//
// Every value starts with a one byte tag (see package tag). Structs are
// written as key/value pairs so that readers can skip fields they do not
// know; structs embedding Packed are written as a single untagged body
// instead.
//
// The Encoding used to decode must match the one used to encode.
package fracwire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/rawbytedev/fracwire/pkg/intenc"
	"github.com/rawbytedev/fracwire/pkg/wireio"
)

// Encoding selects the integer and length strategies. The zero value is the
// default: variable integers and variable lengths. Encoding is immutable;
// the With methods return modified copies.
type Encoding struct {
	ints     intenc.IntegerEncoding
	lens     intenc.LengthEncoding
	maxDepth int
	maxLen   int
}

// Default is the default encoding.
var Default = NewEncoding()

// NewEncoding returns the default encoding.
func NewEncoding() Encoding {
	return Encoding{ints: intenc.Variable{}, lens: intenc.Variable{}, maxDepth: DefaultMaxDepth, maxLen: DefaultMaxLen}
}

// Integers returns the integer strategy.
func (e Encoding) Integers() intenc.IntegerEncoding {
	if e.ints == nil {
		return intenc.Variable{}
	}
	return e.ints
}

// Lengths returns the length strategy.
func (e Encoding) Lengths() intenc.LengthEncoding {
	if e.lens == nil {
		return intenc.Variable{}
	}
	return e.lens
}

// MaxDepth returns the nesting bound applied when encoding and decoding.
func (e Encoding) MaxDepth() int {
	if e.maxDepth <= 0 {
		return DefaultMaxDepth
	}
	return e.maxDepth
}

// MaxLen returns the largest element count accepted for a sequence or map.
func (e Encoding) MaxLen() int {
	if e.maxLen <= 0 {
		return DefaultMaxLen
	}
	return e.maxLen
}

func (e Encoding) WithIntegers(i intenc.IntegerEncoding) Encoding {
	e.ints = i
	return e
}

func (e Encoding) WithLengths(l intenc.LengthEncoding) Encoding {
	e.lens = l
	return e
}

func (e Encoding) WithVariableIntegers() Encoding { return e.WithIntegers(intenc.Variable{}) }

// WithFixedIntegers uses fixed width integers in network order.
func (e Encoding) WithFixedIntegers() Encoding   { return e.WithIntegers(intenc.FixedNE) }
func (e Encoding) WithFixedIntegersLE() Encoding { return e.WithIntegers(intenc.FixedLE) }
func (e Encoding) WithFixedIntegersBE() Encoding { return e.WithIntegers(intenc.FixedBE) }
func (e Encoding) WithFixedIntegersNE() Encoding { return e.WithIntegers(intenc.FixedNE) }

func (e Encoding) WithVariableLengths() Encoding { return e.WithLengths(intenc.Variable{}) }

// WithFixedLengths uses 4 byte lengths.
func (e Encoding) WithFixedLengths() Encoding { return e.WithLengths(intenc.FixedLength32) }

// WithFixedLengths64 uses 8 byte lengths.
func (e Encoding) WithFixedLengths64() Encoding { return e.WithLengths(intenc.FixedLength64) }

// WithMaxDepth sets the nesting bound applied when encoding and decoding.
func (e Encoding) WithMaxDepth(n int) Encoding {
	e.maxDepth = n
	return e
}

// WithMaxLen sets the largest element count accepted for a sequence or map
// when encoding and decoding. Byte strings are not affected.
func (e Encoding) WithMaxLen(n int) Encoding {
	e.maxLen = n
	return e
}

// String returns "integers/lengths", the form accepted by ParseEncoding.
func (e Encoding) String() string {
	return e.Integers().Name() + "/" + e.Lengths().Name()
}

// ParseEncoding parses "integers/lengths", for instance "fixed-le/fixed32".
// Either half may be empty to keep its default.
func ParseEncoding(s string) (Encoding, error) {
	ints, lens, _ := strings.Cut(s, "/")
	i, err := intenc.ParseIntegerEncoding(ints)
	if err != nil {
		return Encoding{}, err
	}
	l, err := intenc.ParseLengthEncoding(lens)
	if err != nil {
		return Encoding{}, err
	}
	return NewEncoding().WithIntegers(i).WithLengths(l), nil
}

// NewEncoder returns an encoder writing one value to w.
func (e Encoding) NewEncoder(w wireio.Writer) Encoder {
	return newWireEncoder(w, e)
}

// NewDecoder returns a decoder reading one value from r.
func (e Encoding) NewDecoder(r wireio.Reader) Decoder {
	return newWireDecoder(r, e)
}

// Encode writes v to w.
func (e Encoding) Encode(w wireio.Writer, v any) error {
	return EncodeValue(e.NewEncoder(w), v)
}

// ToWriter writes v to any io.Writer through a buffer.
func (e Encoding) ToWriter(w io.Writer, v any) error {
	bw := bufio.NewWriter(w)
	if err := e.Encode(bw, v); err != nil {
		return err
	}
	return bw.Flush()
}

// ToVec returns the encoding of v.
func (e Encoding) ToVec(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToFixedBytes encodes v into a buffer of at most size bytes. It fails with
// wireio.ErrFixedBytesFull if v does not fit.
func (e Encoding) ToFixedBytes(size int, v any) (*wireio.FixedBytes, error) {
	f := wireio.NewFixedBytes(size)
	if err := e.Encode(f, v); err != nil {
		return nil, err
	}
	return f, nil
}

// Decode reads one value from r into the value pointed to by v.
func (e Encoding) Decode(r wireio.Reader, v any) error {
	return DecodeValue(e.NewDecoder(r), v)
}

// FromSlice decodes one value from the front of data. Trailing bytes are
// ignored. Decoded strings and byte slices never alias data.
func (e Encoding) FromSlice(data []byte, v any) error {
	return e.Decode(wireio.NewSliceReader(data), v)
}

// FromReader decodes one value from a stream.
func (e Encoding) FromReader(r io.Reader, v any) error {
	return e.Decode(wireio.NewReader(r), v)
}

// Encode writes v to w with the default encoding.
func Encode(w wireio.Writer, v any) error { return Default.Encode(w, v) }

// ToWriter writes v to w with the default encoding.
func ToWriter(w io.Writer, v any) error { return Default.ToWriter(w, v) }

// ToVec encodes v with the default encoding.
func ToVec(v any) ([]byte, error) { return Default.ToVec(v) }

// ToFixedBytes encodes v with the default encoding into at most size bytes.
func ToFixedBytes(size int, v any) (*wireio.FixedBytes, error) { return Default.ToFixedBytes(size, v) }

// Decode reads v from r with the default encoding.
func Decode(r wireio.Reader, v any) error { return Default.Decode(r, v) }

// FromSlice decodes v from data with the default encoding.
func FromSlice(data []byte, v any) error { return Default.FromSlice(data, v) }

// FromReader decodes v from r with the default encoding.
func FromReader(r io.Reader, v any) error { return Default.FromReader(r, v) }

// MustToVec is ToVec that panics on error. It is meant for tests and
// constant tables.
func (e Encoding) MustToVec(v any) []byte {
	b, err := e.ToVec(v)
	if err != nil {
		panic(fmt.Sprintf("fracwire: encode %T: %v", v, err))
	}
	return b
}
