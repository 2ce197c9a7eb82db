package fracwire

import (
	"bytes"
	"fmt"
	"math"
	"math/bits"

	"github.com/rawbytedev/fracwire/pkg/intenc"
	"github.com/rawbytedev/fracwire/pkg/tag"
	"github.com/rawbytedev/fracwire/pkg/wireio"
)

// Encoder writes exactly one value. Every method consumes the encoder; a
// second call returns ErrEncoderConsumed. Errors from the sink are returned
// unchanged.
type Encoder interface {
	// Packed reports whether the encoder writes the untagged storage form
	// used inside packed values.
	Packed() bool

	EncodeUnit() error
	EncodeBool(v bool) error
	EncodeUint8(v uint8) error
	EncodeUint16(v uint16) error
	EncodeUint32(v uint32) error
	EncodeUint64(v uint64) error
	EncodeInt8(v int8) error
	EncodeInt16(v int16) error
	EncodeInt32(v int32) error
	EncodeInt64(v int64) error
	EncodeFloat32(v float32) error
	EncodeFloat64(v float64) error
	EncodeString(v string) error
	EncodeBytes(v []byte) error
	// EncodeArray writes a fixed size byte array. On the wire it looks like
	// EncodeBytes; inside a packed value it is written raw.
	EncodeArray(v []byte) error
	EncodeNone() error
	// EncodeSome writes the present marker and returns the encoder for the
	// contained value.
	EncodeSome() (Encoder, error)
	// EncodeSequence starts a sequence of exactly n elements.
	EncodeSequence(n int) (SequenceEncoder, error)
	// EncodeMap starts a map of exactly n entries.
	EncodeMap(n int) (PairsEncoder, error)
	// EncodeStruct starts a struct of exactly n fields.
	EncodeStruct(n int) (PairsEncoder, error)
	// EncodePacked starts a packed value. Its fields are written untagged and
	// the whole body is framed once End is called.
	EncodePacked() (PackEncoder, error)
}

// SequenceEncoder hands out one encoder per element.
type SequenceEncoder interface {
	Next() (Encoder, error)
	// End fails with ErrLengthMismatch unless exactly the announced number
	// of elements were written.
	End() error
}

// PairsEncoder encodes key/value pairs. Key and Value must alternate,
// starting with Key.
type PairsEncoder interface {
	Key() (Encoder, error)
	Value() (Encoder, error)
	End() error
}

// PackEncoder hands out one encoder per packed field.
type PackEncoder interface {
	Next() (Encoder, error)
	End() error
}

type encState struct {
	w        wireio.Writer
	ints     intenc.IntegerEncoding
	lens     intenc.LengthEncoding
	maxDepth int
	maxLen   int
}

// nested returns a state writing to w with the same strategies and limits.
func (st *encState) nested(w wireio.Writer) *encState {
	return &encState{w: w, ints: st.ints, lens: st.lens, maxDepth: st.maxDepth, maxLen: st.maxLen}
}

func (st *encState) bound(n int) error {
	if n > st.maxLen {
		return fmt.Errorf("%w: %d items, limit %d", ErrLengthLimit, n, st.maxLen)
	}
	return nil
}

// deeper fails when a container at depth would exceed the nesting bound.
// Encoders and decoders nest at the same points, so anything that encodes
// within the bound decodes within it too.
func (st *encState) deeper(depth int) error {
	if depth+1 > st.maxDepth {
		return fmt.Errorf("%w: %d", ErrDepthLimit, st.maxDepth)
	}
	return nil
}

type wireEncoder struct {
	st    *encState
	depth int
	used  bool
}

func newWireEncoder(w wireio.Writer, e Encoding) *wireEncoder {
	return &wireEncoder{st: &encState{
		w:        w,
		ints:     e.Integers(),
		lens:     e.Lengths(),
		maxDepth: e.MaxDepth(),
		maxLen:   e.MaxLen(),
	}}
}

func (e *wireEncoder) child() (Encoder, error) {
	if err := e.st.deeper(e.depth); err != nil {
		return nil, err
	}
	return &wireEncoder{st: e.st, depth: e.depth + 1}, nil
}

func (e *wireEncoder) use() error {
	if e.used {
		return ErrEncoderConsumed
	}
	e.used = true
	return nil
}

func (e *wireEncoder) Packed() bool { return false }

func (e *wireEncoder) EncodeUnit() error {
	if err := e.use(); err != nil {
		return err
	}
	return e.st.w.WriteByte(tag.New(tag.Sequence, 0).Byte())
}

func (e *wireEncoder) EncodeBool(v bool) error {
	if err := e.use(); err != nil {
		return err
	}
	var d uint8
	if v {
		d = 1
	}
	return e.st.w.WriteByte(tag.New(tag.Byte, d).Byte())
}

func (e *wireEncoder) EncodeUint8(v uint8) error {
	if err := e.use(); err != nil {
		return err
	}
	t, ok := tag.WithByte(tag.Byte, v)
	if err := e.st.w.WriteByte(t.Byte()); err != nil {
		return err
	}
	if ok {
		return nil
	}
	return e.st.w.WriteByte(v)
}

func (e *wireEncoder) EncodeInt8(v int8) error { return e.EncodeUint8(uint8(v)) }

func (e *wireEncoder) unsigned(v uint64, width int) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.st.ints.WriteTaggedUnsigned(e.st.w, v, width)
}

func (e *wireEncoder) signed(v int64, width int) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.st.ints.WriteTaggedSigned(e.st.w, v, width)
}

func (e *wireEncoder) EncodeUint16(v uint16) error   { return e.unsigned(uint64(v), 2) }
func (e *wireEncoder) EncodeUint32(v uint32) error   { return e.unsigned(uint64(v), 4) }
func (e *wireEncoder) EncodeUint64(v uint64) error   { return e.unsigned(v, 8) }
func (e *wireEncoder) EncodeInt16(v int16) error     { return e.signed(int64(v), 2) }
func (e *wireEncoder) EncodeInt32(v int32) error     { return e.signed(int64(v), 4) }
func (e *wireEncoder) EncodeInt64(v int64) error     { return e.signed(v, 8) }
func (e *wireEncoder) EncodeFloat32(v float32) error { return e.unsigned(uint64(math.Float32bits(v)), 4) }
func (e *wireEncoder) EncodeFloat64(v float64) error { return e.unsigned(math.Float64bits(v), 8) }

func (e *wireEncoder) prefixed(n int) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.st.lens.WriteTaggedLen(e.st.w, tag.Prefix, n)
}

func (e *wireEncoder) EncodeString(v string) error {
	if err := e.prefixed(len(v)); err != nil {
		return err
	}
	_, err := e.st.w.Write([]byte(v))
	return err
}

func (e *wireEncoder) EncodeBytes(v []byte) error {
	if err := e.prefixed(len(v)); err != nil {
		return err
	}
	_, err := e.st.w.Write(v)
	return err
}

func (e *wireEncoder) EncodeArray(v []byte) error { return e.EncodeBytes(v) }

func (e *wireEncoder) EncodeNone() error {
	if err := e.use(); err != nil {
		return err
	}
	return e.st.w.WriteByte(tag.New(tag.Sequence, 0).Byte())
}

func (e *wireEncoder) EncodeSome() (Encoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if err := e.st.w.WriteByte(tag.New(tag.Sequence, 1).Byte()); err != nil {
		return nil, err
	}
	return e.child()
}

func (e *wireEncoder) EncodeSequence(n int) (SequenceEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if err := e.st.bound(n); err != nil {
		return nil, err
	}
	if err := e.st.lens.WriteTaggedLen(e.st.w, tag.Sequence, n); err != nil {
		return nil, err
	}
	return &sequenceEncoder{want: n, next: e.child}, nil
}

func (e *wireEncoder) pairs(n int) (PairsEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if err := e.st.bound(n); err != nil {
		return nil, err
	}
	if err := e.st.lens.WriteTaggedLen(e.st.w, tag.PairSequence, n); err != nil {
		return nil, err
	}
	return &pairsEncoder{want: n, next: e.child}, nil
}

func (e *wireEncoder) EncodeMap(n int) (PairsEncoder, error)    { return e.pairs(n) }
func (e *wireEncoder) EncodeStruct(n int) (PairsEncoder, error) { return e.pairs(n) }

func (e *wireEncoder) EncodePacked() (PackEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	p := &packFramer{st: e.st, depth: e.depth}
	p.inner = e.st.nested(&p.body)
	return p, nil
}

// packFramer buffers a packed body and frames it on End.
type packFramer struct {
	st    *encState
	inner *encState
	depth int
	body  bytes.Buffer
	done  bool
}

func (p *packFramer) Next() (Encoder, error) {
	if p.done {
		return nil, ErrEncoderConsumed
	}
	if err := p.inner.deeper(p.depth); err != nil {
		return nil, err
	}
	return &packedEncoder{st: p.inner, depth: p.depth + 1}, nil
}

func (p *packFramer) End() error {
	if p.done {
		return ErrEncoderConsumed
	}
	p.done = true
	return writePackFrame(p.st, p.body.Bytes())
}

// writePackFrame writes body as a Prefix value when it is at most
// tag.MaxInlineLen bytes long. Longer bodies get a Pack tag holding
// ceil(log2(len)) and are zero padded to that power of two.
func writePackFrame(st *encState, body []byte) error {
	if len(body) <= tag.MaxInlineLen {
		if err := st.lens.WriteTaggedLen(st.w, tag.Prefix, len(body)); err != nil {
			return err
		}
		_, err := st.w.Write(body)
		return err
	}
	p := bits.Len(uint(len(body) - 1))
	if p > tag.MaxPackExponent {
		return fmt.Errorf("%w: %d bytes", ErrPackTooLarge, len(body))
	}
	if err := st.w.WriteByte(tag.New(tag.Pack, uint8(p)).Byte()); err != nil {
		return err
	}
	if _, err := st.w.Write(body); err != nil {
		return err
	}
	return writeZeros(st.w, (1<<p)-len(body))
}

var zeros [256]byte

func writeZeros(w wireio.Writer, n int) error {
	for n > 0 {
		c := min(n, len(zeros))
		if _, err := w.Write(zeros[:c]); err != nil {
			return err
		}
		n -= c
	}
	return nil
}

type sequenceEncoder struct {
	want, got int
	ended     bool
	next      func() (Encoder, error)
}

func (s *sequenceEncoder) Next() (Encoder, error) {
	if s.ended {
		return nil, ErrEncoderConsumed
	}
	if s.got >= s.want {
		return nil, fmt.Errorf("%w: sequence announced %d elements", ErrLengthMismatch, s.want)
	}
	s.got++
	return s.next()
}

func (s *sequenceEncoder) End() error {
	if s.ended {
		return ErrEncoderConsumed
	}
	s.ended = true
	if s.got != s.want {
		return fmt.Errorf("%w: sequence announced %d elements, wrote %d", ErrLengthMismatch, s.want, s.got)
	}
	return nil
}

type pairsEncoder struct {
	want, got int
	// inPair is set between Key and Value.
	inPair bool
	ended  bool
	next   func() (Encoder, error)
}

func (p *pairsEncoder) Key() (Encoder, error) {
	switch {
	case p.ended:
		return nil, ErrEncoderConsumed
	case p.inPair:
		return nil, fmt.Errorf("%w: key written twice", ErrLengthMismatch)
	case p.got >= p.want:
		return nil, fmt.Errorf("%w: announced %d pairs", ErrLengthMismatch, p.want)
	}
	p.inPair = true
	return p.next()
}

func (p *pairsEncoder) Value() (Encoder, error) {
	switch {
	case p.ended:
		return nil, ErrEncoderConsumed
	case !p.inPair:
		return nil, fmt.Errorf("%w: value without key", ErrLengthMismatch)
	}
	p.inPair = false
	p.got++
	return p.next()
}

func (p *pairsEncoder) End() error {
	if p.ended {
		return ErrEncoderConsumed
	}
	p.ended = true
	if p.got != p.want || p.inPair {
		return fmt.Errorf("%w: announced %d pairs, wrote %d", ErrLengthMismatch, p.want, p.got)
	}
	return nil
}
