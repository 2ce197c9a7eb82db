package fracwire

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/rawbytedev/fracwire/pkg/wireio"
)

// packedEncoder writes the storage form used inside a packed body: no tags,
// integers through the integer strategy, lengths through the length strategy
// and struct keys dropped.
type packedEncoder struct {
	st    *encState
	depth int
	used  bool
}

func (e *packedEncoder) use() error {
	if e.used {
		return ErrEncoderConsumed
	}
	e.used = true
	return nil
}

func (e *packedEncoder) child() (Encoder, error) {
	if err := e.st.deeper(e.depth); err != nil {
		return nil, err
	}
	return &packedEncoder{st: e.st, depth: e.depth + 1}, nil
}

func (e *packedEncoder) Packed() bool { return true }

func (e *packedEncoder) EncodeUnit() error { return e.use() }

func (e *packedEncoder) EncodeBool(v bool) error {
	if err := e.use(); err != nil {
		return err
	}
	if v {
		return e.st.w.WriteByte(1)
	}
	return e.st.w.WriteByte(0)
}

func (e *packedEncoder) EncodeUint8(v uint8) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.st.w.WriteByte(v)
}

func (e *packedEncoder) EncodeInt8(v int8) error { return e.EncodeUint8(uint8(v)) }

func (e *packedEncoder) unsigned(v uint64, width int) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.st.ints.WriteUnsigned(e.st.w, v, width)
}

func (e *packedEncoder) signed(v int64, width int) error {
	if err := e.use(); err != nil {
		return err
	}
	return e.st.ints.WriteSigned(e.st.w, v, width)
}

func (e *packedEncoder) EncodeUint16(v uint16) error { return e.unsigned(uint64(v), 2) }
func (e *packedEncoder) EncodeUint32(v uint32) error { return e.unsigned(uint64(v), 4) }
func (e *packedEncoder) EncodeUint64(v uint64) error { return e.unsigned(v, 8) }
func (e *packedEncoder) EncodeInt16(v int16) error   { return e.signed(int64(v), 2) }
func (e *packedEncoder) EncodeInt32(v int32) error   { return e.signed(int64(v), 4) }
func (e *packedEncoder) EncodeInt64(v int64) error   { return e.signed(v, 8) }
func (e *packedEncoder) EncodeFloat32(v float32) error {
	return e.unsigned(uint64(math.Float32bits(v)), 4)
}
func (e *packedEncoder) EncodeFloat64(v float64) error { return e.unsigned(math.Float64bits(v), 8) }

func (e *packedEncoder) EncodeString(v string) error { return e.EncodeBytes([]byte(v)) }

func (e *packedEncoder) EncodeBytes(v []byte) error {
	if err := e.use(); err != nil {
		return err
	}
	if err := e.st.lens.WriteLen(e.st.w, len(v)); err != nil {
		return err
	}
	_, err := e.st.w.Write(v)
	return err
}

func (e *packedEncoder) EncodeArray(v []byte) error {
	if err := e.use(); err != nil {
		return err
	}
	_, err := e.st.w.Write(v)
	return err
}

func (e *packedEncoder) EncodeNone() error {
	if err := e.use(); err != nil {
		return err
	}
	return e.st.w.WriteByte(0)
}

func (e *packedEncoder) EncodeSome() (Encoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if err := e.st.w.WriteByte(1); err != nil {
		return nil, err
	}
	return e.child()
}

func (e *packedEncoder) EncodeSequence(n int) (SequenceEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if err := e.st.bound(n); err != nil {
		return nil, err
	}
	if err := e.st.lens.WriteLen(e.st.w, n); err != nil {
		return nil, err
	}
	return &sequenceEncoder{want: n, next: e.child}, nil
}

func (e *packedEncoder) EncodeMap(n int) (PairsEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	if err := e.st.bound(n); err != nil {
		return nil, err
	}
	if err := e.st.lens.WriteLen(e.st.w, n); err != nil {
		return nil, err
	}
	return &pairsEncoder{want: n, next: e.child}, nil
}

// EncodeStruct writes fields back to back. Keys are accepted and discarded.
func (e *packedEncoder) EncodeStruct(n int) (PairsEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	keys := e.st.nested(discard{})
	return &packedStructEncoder{
		pairsEncoder: pairsEncoder{want: n, next: e.child},
		keys:         keys,
		depth:        e.depth + 1,
	}, nil
}

// EncodePacked inside a packed body inlines the nested fields.
func (e *packedEncoder) EncodePacked() (PackEncoder, error) {
	if err := e.use(); err != nil {
		return nil, err
	}
	return &inlinePack{next: e.child}, nil
}

type packedStructEncoder struct {
	pairsEncoder
	keys  *encState
	depth int
}

func (p *packedStructEncoder) Key() (Encoder, error) {
	if _, err := p.pairsEncoder.Key(); err != nil {
		return nil, err
	}
	return &packedEncoder{st: p.keys, depth: p.depth}, nil
}

type inlinePack struct {
	next  func() (Encoder, error)
	ended bool
}

func (p *inlinePack) Next() (Encoder, error) {
	if p.ended {
		return nil, ErrEncoderConsumed
	}
	return p.next()
}

func (p *inlinePack) End() error {
	if p.ended {
		return ErrEncoderConsumed
	}
	p.ended = true
	return nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
func (discard) WriteByte(byte) error        { return nil }

// packedDecoder reads what packedEncoder writes. It is not self describing,
// so Skip is unavailable and the caller must know the layout.
type packedDecoder struct {
	st    *decState
	depth int
	used  bool
}

func (d *packedDecoder) use() error {
	if d.used {
		return ErrEncoderConsumed
	}
	d.used = true
	return nil
}

func (d *packedDecoder) child() (Decoder, error) {
	if d.depth+1 > d.st.maxDepth {
		return nil, fmt.Errorf("%w: %d", ErrDepthLimit, d.st.maxDepth)
	}
	return &packedDecoder{st: d.st, depth: d.depth + 1}, nil
}

func (d *packedDecoder) Packed() bool { return true }

func (d *packedDecoder) Skip() error {
	return fmt.Errorf("%w: at offset %d", ErrNotSkippable, d.st.r.Pos())
}

func (d *packedDecoder) DecodeUnit() error { return d.use() }

func (d *packedDecoder) byte() (byte, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	return d.st.r.ReadByte()
}

func (d *packedDecoder) DecodeBool() (bool, error) {
	off := d.st.r.Pos()
	b, err := d.byte()
	if err != nil {
		return false, err
	}
	return toBool(b, off)
}

func (d *packedDecoder) DecodeUint8() (uint8, error) { return d.byte() }

func (d *packedDecoder) DecodeInt8() (int8, error) {
	b, err := d.byte()
	return int8(b), err
}

func (d *packedDecoder) unsigned(width int) (uint64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	return d.st.ints.ReadUnsigned(d.st.r, width)
}

func (d *packedDecoder) signed(width int) (int64, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	return d.st.ints.ReadSigned(d.st.r, width)
}

func (d *packedDecoder) DecodeUint16() (uint16, error) {
	v, err := d.unsigned(2)
	return uint16(v), err
}

func (d *packedDecoder) DecodeUint32() (uint32, error) {
	v, err := d.unsigned(4)
	return uint32(v), err
}

func (d *packedDecoder) DecodeUint64() (uint64, error) { return d.unsigned(8) }

func (d *packedDecoder) DecodeInt16() (int16, error) {
	v, err := d.signed(2)
	return int16(v), err
}

func (d *packedDecoder) DecodeInt32() (int32, error) {
	v, err := d.signed(4)
	return int32(v), err
}

func (d *packedDecoder) DecodeInt64() (int64, error) { return d.signed(8) }

func (d *packedDecoder) DecodeFloat32() (float32, error) {
	v, err := d.unsigned(4)
	return math.Float32frombits(uint32(v)), err
}

func (d *packedDecoder) DecodeFloat64() (float64, error) {
	v, err := d.unsigned(8)
	return math.Float64frombits(v), err
}

func (d *packedDecoder) DecodeBytes() ([]byte, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	n, err := d.st.lens.ReadLen(d.st.r)
	if err != nil {
		return nil, err
	}
	return d.st.r.ReadBytes(n)
}

func (d *packedDecoder) DecodeString() (string, error) {
	off := d.st.r.Pos()
	b, err := d.DecodeBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: at offset %d", ErrInvalidUTF8, off)
	}
	return string(b), nil
}

func (d *packedDecoder) DecodeArray(dst []byte) error {
	if err := d.use(); err != nil {
		return err
	}
	b, err := d.st.r.ReadBytes(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func (d *packedDecoder) DecodeOption() (Decoder, bool, error) {
	off := d.st.r.Pos()
	b, err := d.byte()
	if err != nil {
		return nil, false, err
	}
	switch b {
	case 0:
		return nil, false, nil
	case 1:
		c, err := d.child()
		return c, err == nil, err
	}
	return nil, false, fmt.Errorf("%w: marker %#x at offset %d", ErrInvalidOption, b, off)
}

func (d *packedDecoder) count(perItem int) (int, error) {
	if err := d.use(); err != nil {
		return 0, err
	}
	n, err := d.st.lens.ReadLen(d.st.r)
	if err != nil {
		return 0, err
	}
	if err := d.st.bound(n, perItem); err != nil {
		return 0, err
	}
	return n, nil
}

func (d *packedDecoder) DecodeSequence() (SequenceDecoder, error) {
	n, err := d.count(0)
	if err != nil {
		return nil, err
	}
	return &sequenceDecoder{n: n, next: d.child}, nil
}

func (d *packedDecoder) DecodeMap() (PairsDecoder, error) {
	n, err := d.count(0)
	if err != nil {
		return nil, err
	}
	return &pairsDecoder{n: n, next: d.child}, nil
}

// DecodeStruct returns a decoder without keys. Len is -1 and fields must be
// read with Value in declaration order.
func (d *packedDecoder) DecodeStruct() (PairsDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	return &packedStructDecoder{next: d.child}, nil
}

func (d *packedDecoder) DecodePacked() (PackDecoder, error) {
	if err := d.use(); err != nil {
		return nil, err
	}
	return &packDecoder{st: d.st, next: d.child}, nil
}

type packedStructDecoder struct {
	next func() (Decoder, error)
}

func (p *packedStructDecoder) Len() int { return -1 }

func (p *packedStructDecoder) Key() (Decoder, error) {
	return nil, fmt.Errorf("%w: packed structs carry no keys", ErrUnsupported)
}

func (p *packedStructDecoder) Value() (Decoder, error) { return p.next() }

func (p *packedStructDecoder) SkipValue() error { return ErrNotSkippable }

func (p *packedStructDecoder) End() error { return nil }

var _ wireio.Writer = discard{}
