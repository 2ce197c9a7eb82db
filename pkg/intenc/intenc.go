// Package intenc contains the integer and length encoding strategies of the
// wire format.
//
// The strategy used to decode must be the one used to encode; nothing on the
// wire says which one was picked.
package intenc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rawbytedev/fracwire/pkg/tag"
	"github.com/rawbytedev/fracwire/pkg/wireio"
)

// ErrWidthMismatch is returned when a fixed width integer on the wire does
// not have the width being decoded.
var ErrWidthMismatch = errors.New("intenc: integer width mismatch")

// ErrUnknownEncoding is returned by the parse functions.
var ErrUnknownEncoding = errors.New("intenc: unknown encoding")

// ByteOrder is satisfied by binary.LittleEndian and binary.BigEndian.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// IntegerEncoding encodes numbers of 2 to 8 bytes. Widths are in bytes.
type IntegerEncoding interface {
	Name() string
	// Kind is the tag kind used for tagged values.
	Kind() tag.Kind
	WriteUnsigned(w wireio.Writer, v uint64, width int) error
	ReadUnsigned(r wireio.Reader, width int) (uint64, error)
	WriteSigned(w wireio.Writer, v int64, width int) error
	ReadSigned(r wireio.Reader, width int) (int64, error)
	// WriteTaggedUnsigned writes the tag followed by whatever the tag could
	// not hold.
	WriteTaggedUnsigned(w wireio.Writer, v uint64, width int) error
	WriteTaggedSigned(w wireio.Writer, v int64, width int) error
	// ReadTaggedUnsigned completes a value whose tag t has already been
	// read and checked to be of Kind().
	ReadTaggedUnsigned(r wireio.Reader, t tag.Tag, width int) (uint64, error)
	ReadTaggedSigned(r wireio.Reader, t tag.Tag, width int) (int64, error)
	// SkipTagged skips the remainder of a value with tag t.
	SkipTagged(r wireio.Reader, t tag.Tag) error
}

func checkUnsigned(v uint64, width int) error {
	if width < 8 && v>>(uint(width)*8) != 0 {
		return fmt.Errorf("%w: %d does not fit in %d bytes", ErrIntegerOverflow, v, width)
	}
	return nil
}

// Variable is zigzag plus continuation encoding.
type Variable struct{}

func (Variable) Name() string   { return "variable" }
func (Variable) Kind() tag.Kind { return tag.Continuation }

func (Variable) WriteUnsigned(w wireio.Writer, v uint64, _ int) error {
	return WriteContinuation(w, v)
}

func (Variable) ReadUnsigned(r wireio.Reader, width int) (uint64, error) {
	v, err := ReadContinuation(r)
	if err != nil {
		return 0, err
	}
	return v, checkUnsigned(v, width)
}

func (e Variable) WriteSigned(w wireio.Writer, v int64, width int) error {
	return e.WriteUnsigned(w, ZigZag(v), width)
}

func (e Variable) ReadSigned(r wireio.Reader, width int) (int64, error) {
	u, err := e.ReadUnsigned(r, width)
	if err != nil {
		return 0, err
	}
	return UnZigZag(u), nil
}

func (Variable) WriteTaggedUnsigned(w wireio.Writer, v uint64, _ int) error {
	if v < uint64(tag.DataMask) {
		return w.WriteByte(tag.New(tag.Continuation, uint8(v)).Byte())
	}
	if err := w.WriteByte(tag.Empty(tag.Continuation).Byte()); err != nil {
		return err
	}
	return WriteContinuation(w, v)
}

func (e Variable) WriteTaggedSigned(w wireio.Writer, v int64, width int) error {
	return e.WriteTaggedUnsigned(w, ZigZag(v), width)
}

func (e Variable) ReadTaggedUnsigned(r wireio.Reader, t tag.Tag, width int) (uint64, error) {
	if d, ok := t.Data(); ok {
		return uint64(d), nil
	}
	return e.ReadUnsigned(r, width)
}

func (e Variable) ReadTaggedSigned(r wireio.Reader, t tag.Tag, width int) (int64, error) {
	u, err := e.ReadTaggedUnsigned(r, t, width)
	if err != nil {
		return 0, err
	}
	return UnZigZag(u), nil
}

func (Variable) SkipTagged(r wireio.Reader, t tag.Tag) error {
	if _, ok := t.Data(); ok {
		return nil
	}
	return SkipContinuation(r)
}

// Fixed writes integers as raw bytes in Order.
type Fixed struct {
	Order ByteOrder
}

var (
	// FixedLE is little-endian fixed encoding.
	FixedLE = Fixed{Order: binary.LittleEndian}
	// FixedBE is big-endian fixed encoding.
	FixedBE = Fixed{Order: binary.BigEndian}
	// FixedNE is network (big-endian) fixed encoding, the default for Fixed.
	FixedNE = Fixed{Order: binary.BigEndian}
)

func (f Fixed) order() ByteOrder {
	if f.Order == nil {
		return binary.BigEndian
	}
	return f.Order
}

func (f Fixed) Name() string {
	if f.order() == ByteOrder(binary.LittleEndian) {
		return "fixed-le"
	}
	return "fixed-be"
}

func (Fixed) Kind() tag.Kind { return tag.Prefix }

func appendWidth(order ByteOrder, dst []byte, v uint64, width int) []byte {
	switch width {
	case 1:
		return append(dst, byte(v))
	case 2:
		return order.AppendUint16(dst, uint16(v))
	case 4:
		return order.AppendUint32(dst, uint32(v))
	default:
		return order.AppendUint64(dst, v)
	}
}

func readWidth(order ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}

func signExtend(u uint64, width int) int64 {
	if width >= 8 {
		return int64(u)
	}
	shift := uint(64 - width*8)
	return int64(u<<shift) >> shift
}

func (f Fixed) WriteUnsigned(w wireio.Writer, v uint64, width int) error {
	var scratch [8]byte
	_, err := w.Write(appendWidth(f.order(), scratch[:0], v, width))
	return err
}

func (f Fixed) ReadUnsigned(r wireio.Reader, width int) (uint64, error) {
	b, err := r.ReadBytes(width)
	if err != nil {
		return 0, err
	}
	return readWidth(f.order(), b), nil
}

func (f Fixed) WriteSigned(w wireio.Writer, v int64, width int) error {
	return f.WriteUnsigned(w, uint64(v), width)
}

func (f Fixed) ReadSigned(r wireio.Reader, width int) (int64, error) {
	u, err := f.ReadUnsigned(r, width)
	if err != nil {
		return 0, err
	}
	return signExtend(u, width), nil
}

func (f Fixed) WriteTaggedUnsigned(w wireio.Writer, v uint64, width int) error {
	var scratch [9]byte
	buf := append(scratch[:0], tag.New(tag.Prefix, uint8(width)).Byte())
	_, err := w.Write(appendWidth(f.order(), buf, v, width))
	return err
}

func (f Fixed) WriteTaggedSigned(w wireio.Writer, v int64, width int) error {
	return f.WriteTaggedUnsigned(w, uint64(v), width)
}

func (f Fixed) ReadTaggedUnsigned(r wireio.Reader, t tag.Tag, width int) (uint64, error) {
	if d, ok := t.Data(); !ok || int(d) != width {
		return 0, fmt.Errorf("%w: want %d bytes, tag %v", ErrWidthMismatch, width, t)
	}
	return f.ReadUnsigned(r, width)
}

func (f Fixed) ReadTaggedSigned(r wireio.Reader, t tag.Tag, width int) (int64, error) {
	u, err := f.ReadTaggedUnsigned(r, t, width)
	if err != nil {
		return 0, err
	}
	return signExtend(u, width), nil
}

func (Fixed) SkipTagged(r wireio.Reader, t tag.Tag) error {
	d, ok := t.Data()
	if !ok {
		return fmt.Errorf("%w: fixed integer tag without width", ErrWidthMismatch)
	}
	return r.Skip(int(d))
}

// LengthEncoding encodes lengths and element counts.
type LengthEncoding interface {
	Name() string
	// WriteTaggedLen writes a tag of the given kind carrying n.
	WriteTaggedLen(w wireio.Writer, kind tag.Kind, n int) error
	// ReadTaggedLen completes a length whose tag t has already been read.
	ReadTaggedLen(r wireio.Reader, t tag.Tag) (int, error)
	WriteLen(w wireio.Writer, n int) error
	ReadLen(r wireio.Reader) (int, error)
}

func toLen(v uint64) (int, error) {
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: length %d", ErrIntegerOverflow, v)
	}
	return int(v), nil
}

// Variable lengths are inlined in the tag when small and continuation
// encoded otherwise.
func (Variable) WriteTaggedLen(w wireio.Writer, kind tag.Kind, n int) error {
	t, ok := tag.WithLen(kind, n)
	if err := w.WriteByte(t.Byte()); err != nil {
		return err
	}
	if ok {
		return nil
	}
	return WriteContinuation(w, uint64(n))
}

func (e Variable) ReadTaggedLen(r wireio.Reader, t tag.Tag) (int, error) {
	if d, ok := t.Data(); ok {
		return int(d), nil
	}
	return e.ReadLen(r)
}

func (Variable) WriteLen(w wireio.Writer, n int) error {
	return WriteContinuation(w, uint64(n))
}

func (Variable) ReadLen(r wireio.Reader) (int, error) {
	v, err := ReadContinuation(r)
	if err != nil {
		return 0, err
	}
	return toLen(v)
}

// FixedLength writes lengths out of line as Width bytes in network order.
type FixedLength struct {
	Width int
}

var (
	// FixedLength32 uses 4 byte lengths.
	FixedLength32 = FixedLength{Width: 4}
	// FixedLength64 uses 8 byte lengths.
	FixedLength64 = FixedLength{Width: 8}
)

func (l FixedLength) width() int {
	if l.Width == 8 {
		return 8
	}
	return 4
}

func (l FixedLength) Name() string {
	if l.width() == 8 {
		return "fixed64"
	}
	return "fixed32"
}

func (l FixedLength) WriteTaggedLen(w wireio.Writer, kind tag.Kind, n int) error {
	if err := w.WriteByte(tag.Empty(kind).Byte()); err != nil {
		return err
	}
	return l.WriteLen(w, n)
}

func (l FixedLength) ReadTaggedLen(r wireio.Reader, t tag.Tag) (int, error) {
	if d, ok := t.Data(); ok {
		return int(d), nil
	}
	return l.ReadLen(r)
}

func (l FixedLength) WriteLen(w wireio.Writer, n int) error {
	var scratch [8]byte
	_, err := w.Write(appendWidth(binary.BigEndian, scratch[:0], uint64(n), l.width()))
	return err
}

func (l FixedLength) ReadLen(r wireio.Reader) (int, error) {
	b, err := r.ReadBytes(l.width())
	if err != nil {
		return 0, err
	}
	return toLen(readWidth(binary.BigEndian, b))
}

// ParseIntegerEncoding accepts the names returned by Name, plus "fixed"
// and "fixed-ne" for network order.
func ParseIntegerEncoding(name string) (IntegerEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "variable", "var":
		return Variable{}, nil
	case "fixed", "fixed-ne", "fixed-be":
		return FixedNE, nil
	case "fixed-le":
		return FixedLE, nil
	}
	return nil, fmt.Errorf("%w: integers %q", ErrUnknownEncoding, name)
}

// ParseLengthEncoding accepts "variable", "fixed32" and "fixed64".
func ParseLengthEncoding(name string) (LengthEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "variable", "var":
		return Variable{}, nil
	case "fixed", "fixed32":
		return FixedLength32, nil
	case "fixed64":
		return FixedLength64, nil
	}
	return nil, fmt.Errorf("%w: lengths %q", ErrUnknownEncoding, name)
}
