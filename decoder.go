package fracwire

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/rawbytedev/fracwire/pkg/intenc"
	"github.com/rawbytedev/fracwire/pkg/tag"
	"github.com/rawbytedev/fracwire/pkg/wireio"
)

// DefaultMaxDepth bounds container nesting while encoding and decoding.
const DefaultMaxDepth = 256

// DefaultMaxLen bounds the element count of a sequence or map.
const DefaultMaxLen = 1 << 24

// Decoder reads exactly one value. Like Encoder, every method consumes it.
type Decoder interface {
	// Packed reports whether the decoder reads the untagged storage form.
	Packed() bool

	DecodeUnit() error
	DecodeBool() (bool, error)
	DecodeUint8() (uint8, error)
	DecodeUint16() (uint16, error)
	DecodeUint32() (uint32, error)
	DecodeUint64() (uint64, error)
	DecodeInt8() (int8, error)
	DecodeInt16() (int16, error)
	DecodeInt32() (int32, error)
	DecodeInt64() (int64, error)
	DecodeFloat32() (float32, error)
	DecodeFloat64() (float64, error)
	DecodeString() (string, error)
	// DecodeBytes may return a slice aliasing the input.
	DecodeBytes() ([]byte, error)
	// DecodeArray fills dst, failing with ErrLengthMismatch if the stored
	// array has another size.
	DecodeArray(dst []byte) error
	// DecodeOption returns the decoder for the contained value and true, or
	// false for none.
	DecodeOption() (Decoder, bool, error)
	DecodeSequence() (SequenceDecoder, error)
	DecodeMap() (PairsDecoder, error)
	DecodeStruct() (PairsDecoder, error)
	DecodePacked() (PackDecoder, error)
	// Skip discards the value whatever its kind.
	Skip() error
}

// SequenceDecoder yields the elements of a sequence.
type SequenceDecoder interface {
	Len() int
	Next() (Decoder, error)
	End() error
}

// PairsDecoder yields the entries of a map or struct. Len is -1 when the
// number of pairs is not stored.
type PairsDecoder interface {
	Len() int
	Key() (Decoder, error)
	Value() (Decoder, error)
	// SkipValue discards the value after a key that is not wanted.
	SkipValue() error
	End() error
}

// PackDecoder yields the fields of a packed value.
type PackDecoder interface {
	Next() (Decoder, error)
	End() error
}

type decState struct {
	r        wireio.Reader
	ints     intenc.IntegerEncoding
	lens     intenc.LengthEncoding
	maxDepth int
	maxLen   int
}

func (st *decState) nested(r wireio.Reader) *decState {
	return &decState{r: r, ints: st.ints, lens: st.lens, maxDepth: st.maxDepth, maxLen: st.maxLen}
}

// bound checks an announced element count. Packed elements can take no
// bytes at all, so the length limit is the only bound that always applies.
func (st *decState) bound(n, perItem int) error {
	if n > st.maxLen {
		return fmt.Errorf("%w: %d items announced at offset %d, limit %d", ErrLengthLimit, n, st.r.Pos(), st.maxLen)
	}
	return st.fits(n, perItem)
}

// fits rejects counts that cannot possibly be backed by the remaining input
// so that a hostile length never turns into a huge allocation.
func (st *decState) fits(n, perItem int) error {
	rem := st.r.Remaining()
	if rem < 0 || perItem == 0 {
		return nil
	}
	if n > rem/perItem {
		return fmt.Errorf("%w: %d items announced at offset %d, %d bytes left", ErrBufferExhausted, n, st.r.Pos(), rem)
	}
	return nil
}

type wireDecoder struct {
	st    *decState
	depth int
	used  bool
}

func newWireDecoder(r wireio.Reader, e Encoding) *wireDecoder {
	return &wireDecoder{st: &decState{
		r:        r,
		ints:     e.Integers(),
		lens:     e.Lengths(),
		maxDepth: e.MaxDepth(),
		maxLen:   e.MaxLen(),
	}}
}

func (d *wireDecoder) Packed() bool { return false }

func (d *wireDecoder) child() (Decoder, error) {
	if d.depth+1 > d.st.maxDepth {
		return nil, fmt.Errorf("%w: %d", ErrDepthLimit, d.st.maxDepth)
	}
	return &wireDecoder{st: d.st, depth: d.depth + 1}, nil
}

func (d *wireDecoder) readTag() (tag.Tag, int, error) {
	if d.used {
		return 0, 0, ErrEncoderConsumed
	}
	d.used = true
	off := d.st.r.Pos()
	b, err := d.st.r.ReadByte()
	if err != nil {
		return 0, off, err
	}
	t := tag.FromByte(b)
	if !t.Kind().Known() {
		return t, off, &KindError{Offset: off, Got: t}
	}
	return t, off, nil
}

func (d *wireDecoder) expect(kind tag.Kind) (tag.Tag, int, error) {
	t, off, err := d.readTag()
	if err != nil {
		return t, off, err
	}
	if t.Kind() != kind {
		return t, off, &KindError{Offset: off, Want: kind, Got: t}
	}
	return t, off, nil
}

func (d *wireDecoder) DecodeUnit() error {
	t, off, err := d.expect(tag.Sequence)
	if err != nil {
		return err
	}
	n, err := d.st.lens.ReadTaggedLen(d.st.r, t)
	if err != nil {
		return err
	}
	if n != 0 {
		return fmt.Errorf("%w: unit with %d elements at offset %d", ErrLengthMismatch, n, off)
	}
	return nil
}

func toBool(b byte, off int) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%w: %#x at offset %d", ErrInvalidBool, b, off)
}

func (d *wireDecoder) byteValue() (byte, int, error) {
	t, off, err := d.expect(tag.Byte)
	if err != nil {
		return 0, off, err
	}
	if v, ok := t.Data(); ok {
		return v, off, nil
	}
	b, err := d.st.r.ReadByte()
	return b, off, err
}

func (d *wireDecoder) DecodeBool() (bool, error) {
	b, off, err := d.byteValue()
	if err != nil {
		return false, err
	}
	return toBool(b, off)
}

func (d *wireDecoder) DecodeUint8() (uint8, error) {
	b, _, err := d.byteValue()
	return b, err
}

func (d *wireDecoder) DecodeInt8() (int8, error) {
	b, _, err := d.byteValue()
	return int8(b), err
}

func (d *wireDecoder) unsigned(width int) (uint64, error) {
	t, _, err := d.expect(d.st.ints.Kind())
	if err != nil {
		return 0, err
	}
	return d.st.ints.ReadTaggedUnsigned(d.st.r, t, width)
}

func (d *wireDecoder) signed(width int) (int64, error) {
	t, _, err := d.expect(d.st.ints.Kind())
	if err != nil {
		return 0, err
	}
	return d.st.ints.ReadTaggedSigned(d.st.r, t, width)
}

func (d *wireDecoder) DecodeUint16() (uint16, error) {
	v, err := d.unsigned(2)
	return uint16(v), err
}

func (d *wireDecoder) DecodeUint32() (uint32, error) {
	v, err := d.unsigned(4)
	return uint32(v), err
}

func (d *wireDecoder) DecodeUint64() (uint64, error) { return d.unsigned(8) }

func (d *wireDecoder) DecodeInt16() (int16, error) {
	v, err := d.signed(2)
	return int16(v), err
}

func (d *wireDecoder) DecodeInt32() (int32, error) {
	v, err := d.signed(4)
	return int32(v), err
}

func (d *wireDecoder) DecodeInt64() (int64, error) { return d.signed(8) }

func (d *wireDecoder) DecodeFloat32() (float32, error) {
	v, err := d.unsigned(4)
	return math.Float32frombits(uint32(v)), err
}

func (d *wireDecoder) DecodeFloat64() (float64, error) {
	v, err := d.unsigned(8)
	return math.Float64frombits(v), err
}

func (d *wireDecoder) prefixed() ([]byte, int, error) {
	t, off, err := d.expect(tag.Prefix)
	if err != nil {
		return nil, off, err
	}
	n, err := d.st.lens.ReadTaggedLen(d.st.r, t)
	if err != nil {
		return nil, off, err
	}
	b, err := d.st.r.ReadBytes(n)
	return b, off, err
}

func (d *wireDecoder) DecodeBytes() ([]byte, error) {
	b, _, err := d.prefixed()
	return b, err
}

func (d *wireDecoder) DecodeString() (string, error) {
	b, off, err := d.prefixed()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: at offset %d", ErrInvalidUTF8, off)
	}
	return string(b), nil
}

func (d *wireDecoder) DecodeArray(dst []byte) error {
	b, off, err := d.prefixed()
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%w: array of %d bytes at offset %d, want %d", ErrLengthMismatch, len(b), off, len(dst))
	}
	copy(dst, b)
	return nil
}

func (d *wireDecoder) DecodeOption() (Decoder, bool, error) {
	t, off, err := d.expect(tag.Sequence)
	if err != nil {
		return nil, false, err
	}
	n, _ := t.Data()
	switch {
	case t == tag.New(tag.Sequence, 0):
		return nil, false, nil
	case t == tag.New(tag.Sequence, 1):
		c, err := d.child()
		return c, err == nil, err
	}
	return nil, false, fmt.Errorf("%w: %v (%d) at offset %d", ErrInvalidOption, t, n, off)
}

func (d *wireDecoder) DecodeSequence() (SequenceDecoder, error) {
	t, _, err := d.expect(tag.Sequence)
	if err != nil {
		return nil, err
	}
	n, err := d.st.lens.ReadTaggedLen(d.st.r, t)
	if err != nil {
		return nil, err
	}
	if err := d.st.bound(n, 1); err != nil {
		return nil, err
	}
	return &sequenceDecoder{n: n, next: d.child}, nil
}

func (d *wireDecoder) pairs() (PairsDecoder, error) {
	t, _, err := d.expect(tag.PairSequence)
	if err != nil {
		return nil, err
	}
	n, err := d.st.lens.ReadTaggedLen(d.st.r, t)
	if err != nil {
		return nil, err
	}
	if err := d.st.bound(n, 2); err != nil {
		return nil, err
	}
	return &pairsDecoder{n: n, next: d.child}, nil
}

func (d *wireDecoder) DecodeMap() (PairsDecoder, error)    { return d.pairs() }
func (d *wireDecoder) DecodeStruct() (PairsDecoder, error) { return d.pairs() }

// DecodePacked accepts both framings: a Prefix for short bodies and a Pack
// for long ones. Padding after the fields is ignored.
func (d *wireDecoder) DecodePacked() (PackDecoder, error) {
	t, off, err := d.readTag()
	if err != nil {
		return nil, err
	}
	body, err := d.packBody(t, off)
	if err != nil {
		return nil, err
	}
	st := d.st.nested(wireio.NewSliceReader(body))
	inner := &packedDecoder{st: st, depth: d.depth}
	return &packDecoder{st: st, next: inner.child}, nil
}

func (d *wireDecoder) packBody(t tag.Tag, off int) ([]byte, error) {
	switch t.Kind() {
	case tag.Prefix:
		n, err := d.st.lens.ReadTaggedLen(d.st.r, t)
		if err != nil {
			return nil, err
		}
		return d.st.r.ReadBytes(n)
	case tag.Pack:
		size, err := packSize(t, off)
		if err != nil {
			return nil, err
		}
		return d.st.r.ReadBytes(size)
	}
	return nil, &KindError{Offset: off, Want: tag.Pack, Got: t}
}

func packSize(t tag.Tag, off int) (int, error) {
	p, ok := t.Data()
	if !ok || p > tag.MaxPackExponent {
		return 0, fmt.Errorf("%w: pack exponent %d at offset %d", ErrPackTooLarge, t.DataRaw(), off)
	}
	return 1 << p, nil
}

func (d *wireDecoder) Skip() error {
	t, off, err := d.readTag()
	if err != nil {
		return err
	}
	return d.skip(t, off, d.depth)
}

func (d *wireDecoder) skip(t tag.Tag, off, depth int) error {
	r := d.st.r
	switch t.Kind() {
	case tag.Byte:
		if _, ok := t.Data(); ok {
			return nil
		}
		return r.Skip(1)
	case tag.Prefix:
		n, err := d.st.lens.ReadTaggedLen(r, t)
		if err != nil {
			return err
		}
		return r.Skip(n)
	case tag.Continuation:
		if _, ok := t.Data(); ok {
			return nil
		}
		return intenc.SkipContinuation(r)
	case tag.Pack:
		size, err := packSize(t, off)
		if err != nil {
			return err
		}
		return r.Skip(size)
	case tag.Sequence, tag.PairSequence:
		n, err := d.st.lens.ReadTaggedLen(r, t)
		if err != nil {
			return err
		}
		if depth+1 > d.st.maxDepth {
			return fmt.Errorf("%w: %d", ErrDepthLimit, d.st.maxDepth)
		}
		per := 1
		if t.Kind() == tag.PairSequence {
			per = 2
		}
		if err := d.st.bound(n, per); err != nil {
			return err
		}
		for i := 0; i < n*per; i++ {
			off := r.Pos()
			b, err := r.ReadByte()
			if err != nil {
				return err
			}
			ct := tag.FromByte(b)
			if !ct.Kind().Known() {
				return &KindError{Offset: off, Got: ct}
			}
			if err := d.skip(ct, off, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return &KindError{Offset: off, Got: t}
}

type sequenceDecoder struct {
	n, got int
	next   func() (Decoder, error)
}

func (s *sequenceDecoder) Len() int { return s.n }

func (s *sequenceDecoder) Next() (Decoder, error) {
	if s.got >= s.n {
		return nil, fmt.Errorf("%w: sequence has %d elements", ErrLengthMismatch, s.n)
	}
	s.got++
	return s.next()
}

// End skips the elements that were not read.
func (s *sequenceDecoder) End() error {
	for s.got < s.n {
		d, err := s.Next()
		if err != nil {
			return err
		}
		if err := d.Skip(); err != nil {
			return err
		}
	}
	return nil
}

type pairsDecoder struct {
	n, got int
	inPair bool
	next   func() (Decoder, error)
}

func (p *pairsDecoder) Len() int { return p.n }

func (p *pairsDecoder) Key() (Decoder, error) {
	if p.inPair {
		return nil, fmt.Errorf("%w: key read twice", ErrLengthMismatch)
	}
	if p.got >= p.n {
		return nil, fmt.Errorf("%w: %d pairs", ErrLengthMismatch, p.n)
	}
	p.inPair = true
	return p.next()
}

func (p *pairsDecoder) Value() (Decoder, error) {
	if !p.inPair {
		return nil, fmt.Errorf("%w: value without key", ErrLengthMismatch)
	}
	p.inPair = false
	p.got++
	return p.next()
}

func (p *pairsDecoder) SkipValue() error {
	v, err := p.Value()
	if err != nil {
		return err
	}
	return v.Skip()
}

// End skips the pairs that were not read.
func (p *pairsDecoder) End() error {
	if p.inPair {
		if err := p.SkipValue(); err != nil {
			return err
		}
	}
	for p.got < p.n {
		k, err := p.Key()
		if err != nil {
			return err
		}
		if err := k.Skip(); err != nil {
			return err
		}
		if err := p.SkipValue(); err != nil {
			return err
		}
	}
	return nil
}

type packDecoder struct {
	st   *decState
	next func() (Decoder, error)
}

func (p *packDecoder) Next() (Decoder, error) { return p.next() }

func (p *packDecoder) End() error { return nil }
