package fracwire

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/quick"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rawbytedev/fracwire/pkg/tag"
	"github.com/rawbytedev/fracwire/pkg/wireio"
	"github.com/rawbytedev/fracwire/pkg/wireio/mock_wireio"
)

func ptr[T any](v T) *T { return &v }

type from[F any] struct {
	Prefix *uint32 `wire:"0"`
	Field  F       `wire:"1"`
	Suffix *uint32 `wire:"2"`
}

type to struct {
	Prefix *uint32 `wire:"0"`
	Suffix *uint32 `wire:"2"`
}

type body0 struct {
	Packed
	Value [0]byte
}

type body23 struct {
	Packed
	Value [23]byte
}

type body62 struct {
	Packed
	Value [62]byte
}

type body110 struct {
	Packed
	Value [110]byte
}

type body200 struct {
	Packed
	Value [200]byte
}

func fill(b []byte) {
	copy(b, bytes.Repeat([]byte{1}, len(b)))
}

// checkFramed round trips a struct wrapping field and checks that a reader
// knowing only the outer fields skips it.
func checkFramed[F any](t *testing.T, field F) []byte {
	t.Helper()
	value := from[F]{Prefix: ptr(uint32(10)), Field: field, Suffix: ptr(uint32(20))}
	data, err := ToVec(value)
	require.NoError(t, err)

	var actual from[F]
	require.NoError(t, FromSlice(data, &actual))
	require.Equal(t, value, actual)

	var subset to
	require.NoError(t, FromSlice(data, &subset))
	require.Equal(t, to{Prefix: ptr(uint32(10)), Suffix: ptr(uint32(20))}, subset)

	require.Equal(t, []byte{0x63, 0x80, 0x41, 0x8a, 0x81}, data[:5])
	return data
}

func TestPackMax(t *testing.T) {
	t.Run("0", func(t *testing.T) {
		data := checkFramed(t, body0{})
		assert.Equal(t, tag.New(tag.Prefix, 0), tag.FromByte(data[5]))
		assert.Len(t, data, 9)
	})
	t.Run("23", func(t *testing.T) {
		var b body23
		fill(b.Value[:])
		data := checkFramed(t, b)
		assert.Equal(t, tag.New(tag.Prefix, 23), tag.FromByte(data[5]))
		assert.Len(t, data, 23+9)
	})
	t.Run("62", func(t *testing.T) {
		var b body62
		fill(b.Value[:])
		data := checkFramed(t, b)
		// 62 does not fit the data bits, so the length follows the tag.
		assert.Equal(t, tag.New(tag.Prefix, 62), tag.FromByte(data[5]))
		assert.Equal(t, byte(62), data[6])
		assert.Len(t, data, 62+10)
	})
}

func TestPow2(t *testing.T) {
	check := func(t *testing.T, data []byte, size int, pow uint8, pad int) {
		assert.Equal(t, tag.New(tag.Pack, pow), tag.FromByte(data[5]))
		assert.Len(t, data, size+pad)
		start := size + 6
		assert.Equal(t, make([]byte, 18), data[start:start+18])
	}
	t.Run("110", func(t *testing.T) {
		var b body110
		fill(b.Value[:])
		check(t, checkFramed(t, b), 110, 7, 27)
	})
	t.Run("200", func(t *testing.T) {
		var b body200
		fill(b.Value[:])
		check(t, checkFramed(t, b), 200, 8, 65)
	})
}

func TestWireBytes(t *testing.T) {
	cases := []struct {
		name string
		enc  Encoding
		in   any
		want []byte
	}{
		{"small u8", Default, uint8(5), []byte{0x05}},
		{"large u8", Default, uint8(200), []byte{0x1f, 200}},
		{"bool", Default, true, []byte{0x01}},
		{"string", Default, "hi", []byte{0x22, 'h', 'i'}},
		{"u32 inline", Default, uint32(30), []byte{0x9e}},
		{"u32 continuation", Default, uint32(300), []byte{0x9f, 0xac, 0x02}},
		{"negative", Default, int32(-1), []byte{0x81}},
		{"fixed be", Default.WithFixedIntegers(), uint32(1), []byte{0x24, 0, 0, 0, 1}},
		{"fixed le", Default.WithFixedIntegersLE(), uint16(0x0102), []byte{0x22, 0x02, 0x01}},
		{"sequence", Default, []uint16{1, 2}, []byte{0x42, 0x81, 0x82}},
		{"fixed lengths", Default.WithFixedLengths(), []uint16{1}, []byte{0x5f, 0, 0, 0, 1, 0x81}},
		{"map", Default, map[string]uint8{"a": 1}, []byte{0x61, 0x21, 'a', 0x01}},
		{"none", Default, struct{ P *uint8 }{}, []byte{0x61, 0x80, 0x40}},
		{"some", Default, struct{ P *uint8 }{P: ptr(uint8(7))}, []byte{0x61, 0x80, 0x41, 0x07}},
		{"empty struct", Default, struct{}{}, []byte{0x60}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.enc.ToVec(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type scalars struct {
	U8  uint8
	I8  int8
	U16 uint16
	I16 int16
	U32 uint32
	I32 int32
	U64 uint64
	I64 int64
	Int int
	F32 float32
	F64 float64
	B   bool
	S   string
}

type packedScalars struct {
	Packed
	U8  uint8
	I16 int16
	U32 uint32
	I64 int64
	F64 float64
	B   bool
	S   string
}

var encodings = map[string]Encoding{
	"default":            Default,
	"fixed-le":           Default.WithFixedIntegersLE(),
	"fixed-be/fixed32":   Default.WithFixedIntegersBE().WithFixedLengths(),
	"variable/fixed64":   Default.WithFixedLengths64(),
	"fixed-ne/variable":  Default.WithFixedIntegersNE().WithVariableLengths(),
	"zero value encoder": {},
}

func TestRoundTripScalars(t *testing.T) {
	for name, enc := range encodings {
		t.Run(name, func(t *testing.T) {
			condition := func(z scalars) bool {
				data, err := enc.ToVec(z)
				require.NoError(t, err)
				res := &scalars{}
				require.NoError(t, enc.FromSlice(data, res))
				return assert.ObjectsAreEqual(z, *res)
			}
			require.NoError(t, quick.Check(condition, &quick.Config{}))

			packed := func(z packedScalars) bool {
				data, err := enc.ToVec(z)
				require.NoError(t, err)
				res := &packedScalars{}
				require.NoError(t, enc.FromSlice(data, res))
				return assert.ObjectsAreEqual(z, *res)
			}
			require.NoError(t, quick.Check(packed, &quick.Config{}))
		})
	}
}

type point struct {
	Packed
	X, Y  int32
	Label string
	Opt   *uint16
	Flags []bool
}

type inner struct {
	Name  string
	Tags  []string
	Score *float64
}

type outer struct {
	ID      uint64           `wire:"1"`
	Items   []inner          `wire:"2"`
	Lookup  map[string]int32 `wire:"3"`
	Raw     []byte           `wire:"4"`
	Point   point            `wire:"5"`
	Hash    [4]byte          `wire:"6"`
	Grid    [2][2]int16      `wire:"7"`
	Nested  map[uint8][]byte `wire:"8"`
	Skipped string           `wire:"-"`
}

func sampleOuter() outer {
	return outer{
		ID: 1 << 40,
		Items: []inner{
			{Name: "first", Tags: []string{"a", "b"}, Score: ptr(1.5)},
			{Name: strings.Repeat("long name ", 10), Tags: []string{"c"}},
		},
		Lookup: map[string]int32{"neg": -70000, "pos": 12, "zero": 0},
		Raw:    []byte{0, 1, 2, 0xff},
		Point:  point{X: -3, Y: 4, Label: "origin", Opt: ptr(uint16(9)), Flags: []bool{true, false}},
		Hash:   [4]byte{0xde, 0xad, 0xbe, 0xef},
		Grid:   [2][2]int16{{1, -1}, {300, -300}},
		Nested: map[uint8][]byte{1: {1}, 2: {2, 2}},
	}
}

func TestRoundTripNested(t *testing.T) {
	for name, enc := range encodings {
		t.Run(name, func(t *testing.T) {
			in := sampleOuter()
			in.Skipped = "not encoded"
			data, err := enc.ToVec(&in)
			require.NoError(t, err)

			var out outer
			require.NoError(t, enc.FromSlice(data, &out))
			in.Skipped = ""
			require.Equal(t, in, out)

			var streamed outer
			require.NoError(t, enc.FromReader(bytes.NewReader(data), &streamed))
			require.Equal(t, in, streamed)
		})
	}
}

func TestDeterministicMaps(t *testing.T) {
	m := map[string]int{}
	for _, k := range strings.Fields("q w e r t y u i o p a s d f g h j k l") {
		m[k] = len(k)
	}
	first, err := ToVec(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ToVec(m)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

type cell struct {
	Row, Col uint8
}

func TestDeterministicCompositeKeys(t *testing.T) {
	arrays := map[[2]uint8]uint16{}
	cells := map[cell]bool{}
	for i := 0; i < 16; i++ {
		arrays[[2]uint8{uint8(i % 4), uint8(i)}] = uint16(i * 100)
		cells[cell{Row: uint8(15 - i), Col: uint8(i)}] = i%2 == 0
	}
	bools := map[bool]uint8{true: 1, false: 0}

	for name, m := range map[string]any{"bool": bools, "array": arrays, "struct": cells} {
		t.Run(name, func(t *testing.T) {
			first, err := ToVec(m)
			require.NoError(t, err)
			for i := 0; i < 20; i++ {
				again, err := ToVec(m)
				require.NoError(t, err)
				require.Equal(t, first, again)
			}
		})
	}

	// false sorts before true.
	data, err := ToVec(bools)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x62, 0x00, 0x00, 0x01, 0x01}, data)

	data, err = ToVec(cells)
	require.NoError(t, err)
	var gotCells map[cell]bool
	require.NoError(t, FromSlice(data, &gotCells))
	assert.Equal(t, cells, gotCells)

	data, err = ToVec(arrays)
	require.NoError(t, err)
	var gotArrays map[[2]uint8]uint16
	require.NoError(t, FromSlice(data, &gotArrays))
	assert.Equal(t, arrays, gotArrays)
}

func TestStringKeys(t *testing.T) {
	type v1 struct {
		Name  string `wire:"name"`
		Count int    `wire:"count"`
	}
	type v2 struct {
		Count int    `wire:"count"`
		Extra string `wire:"extra"`
	}
	data, err := ToVec(v1{Name: "x", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, byte(0x62), data[0])
	assert.Equal(t, []byte{0x24, 'n', 'a', 'm', 'e'}, data[1:6])

	var out v2
	require.NoError(t, FromSlice(data, &out))
	assert.Equal(t, v2{Count: 3}, out)
}

func TestDuplicateKeys(t *testing.T) {
	type dup struct {
		A int `wire:"1"`
		B int
		C int `wire:"1"`
	}
	_, err := ToVec(dup{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestTruncatedInput(t *testing.T) {
	for name, enc := range encodings {
		t.Run(name, func(t *testing.T) {
			data, err := enc.ToVec(sampleOuter())
			require.NoError(t, err)
			for i := 0; i < len(data); i++ {
				var out outer
				err := enc.FromSlice(data[:i], &out)
				require.ErrorIs(t, err, ErrBufferExhausted, "prefix of %d bytes", i)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	var s string
	err := FromSlice([]byte{0x05}, &s)
	require.ErrorIs(t, err, ErrUnexpectedKind)
	var ke *KindError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, tag.Prefix, ke.Want)
	assert.Equal(t, 0, ke.Offset)

	require.ErrorIs(t, FromSlice([]byte{0xc0}, &s), ErrUnsupportedKind)
	require.ErrorIs(t, FromSlice([]byte{0xe1}, &s), ErrUnsupportedKind)
	require.ErrorIs(t, FromSlice([]byte{0x22, 0xff, 0xfe}, &s), ErrInvalidUTF8)

	var b bool
	require.ErrorIs(t, FromSlice([]byte{0x02}, &b), ErrInvalidBool)

	var p *uint8
	require.ErrorIs(t, FromSlice([]byte{0x42, 0x01, 0x01}, &p), ErrInvalidOption)

	var arr [3]byte
	require.ErrorIs(t, FromSlice([]byte{0x22, 1, 2}, &arr), ErrLengthMismatch)

	var small struct{ V uint16 }
	data, err := ToVec(struct{ V uint64 }{V: 70000})
	require.NoError(t, err)
	require.ErrorIs(t, FromSlice(data, &small), ErrIntegerOverflow)

	var fixed struct{ V uint16 }
	data, err = Default.WithFixedIntegers().ToVec(struct{ V uint32 }{V: 1})
	require.NoError(t, err)
	require.ErrorIs(t, Default.WithFixedIntegers().FromSlice(data, &fixed), ErrWidthMismatch)

	require.ErrorIs(t, FromSlice([]byte{0x01}, s), ErrNotPointer)
	require.ErrorIs(t, FromSlice([]byte{0xa0 | 31}, &body200{}), ErrPackTooLarge)
}

func TestSkipUnknownReservedKind(t *testing.T) {
	// {0: 1, 9: <reserved>}
	data := []byte{0x62, 0x80, 0x01, 0x89, 0xc0}
	var out struct {
		A uint8 `wire:"0"`
	}
	require.ErrorIs(t, FromSlice(data, &out), ErrUnsupportedKind)
}

func TestHugeCounts(t *testing.T) {
	// Counts far larger than the input are rejected before allocating.
	var list []string
	require.ErrorIs(t, FromSlice([]byte{0x5f, 0xff, 0xff, 0xff, 0x07}, &list), ErrBufferExhausted)

	var out struct {
		A uint8 `wire:"0"`
	}
	require.ErrorIs(t, FromSlice([]byte{0x7f, 0xff, 0xff, 0xff, 0x07}, &out), ErrBufferExhausted)
	// Same, but inside a field that is being skipped.
	require.ErrorIs(t, FromSlice([]byte{0x61, 0x81, 0x5f, 0xff, 0xff, 0xff, 0x07}, &out), ErrBufferExhausted)
}

func TestDepthLimit(t *testing.T) {
	data := append(bytes.Repeat([]byte{0x41}, 300), 0x40)
	err := Default.NewDecoder(wireio.NewSliceReader(data)).Skip()
	require.ErrorIs(t, err, ErrDepthLimit)

	require.NoError(t, Default.WithMaxDepth(400).NewDecoder(wireio.NewSliceReader(data)).Skip())

	_, err = Inspect(data)
	require.ErrorIs(t, err, ErrDepthLimit)
}

type link struct {
	V    uint8 `wire:"0"`
	Next *link `wire:"1"`
}

type packedLink struct {
	Packed
	V    uint8
	Next *packedLink
}

func chain(n int) *link {
	var head *link
	for i := 0; i < n; i++ {
		head = &link{V: uint8(i), Next: head}
	}
	return head
}

func packedChain(n int) *packedLink {
	var head *packedLink
	for i := 0; i < n; i++ {
		head = &packedLink{V: uint8(i), Next: head}
	}
	return head
}

func TestEncodeDepthLimit(t *testing.T) {
	enc := Default.WithMaxDepth(16)
	// Each link nests a pair sequence and an option, so 8 links need depth 15.
	_, err := enc.ToVec(chain(8))
	require.NoError(t, err)
	_, err = enc.ToVec(chain(9))
	require.ErrorIs(t, err, ErrDepthLimit)

	for n := 1; n <= 12; n++ {
		in := chain(n)
		data, err := enc.ToVec(in)
		if err != nil {
			require.ErrorIs(t, err, ErrDepthLimit, "chain of %d", n)
			continue
		}
		var out link
		require.NoError(t, enc.FromSlice(data, &out), "chain of %d", n)
		require.Equal(t, *in, out)
	}
	for n := 1; n <= 12; n++ {
		in := packedChain(n)
		data, err := enc.ToVec(in)
		if err != nil {
			require.ErrorIs(t, err, ErrDepthLimit, "packed chain of %d", n)
			continue
		}
		var out packedLink
		require.NoError(t, enc.FromSlice(data, &out), "packed chain of %d", n)
		require.Equal(t, *in, out)
	}

	// Accepted by a looser encoder, rejected by a stricter decoder.
	data, err := Default.WithMaxDepth(32).ToVec(chain(9))
	require.NoError(t, err)
	var out link
	require.ErrorIs(t, enc.FromSlice(data, &out), ErrDepthLimit)
}

func TestEncodeCycle(t *testing.T) {
	l := &link{V: 1}
	l.Next = l
	_, err := ToVec(l)
	require.ErrorIs(t, err, ErrDepthLimit)

	p := &packedLink{V: 1}
	p.Next = p
	_, err = ToVec(p)
	require.ErrorIs(t, err, ErrDepthLimit)
}

type units struct {
	Packed
	Items []struct{}
}

func TestPackedCountLimit(t *testing.T) {
	// A packed body of one continuation announcing 2^31-1 empty elements.
	var u units
	require.ErrorIs(t, FromSlice([]byte{0x25, 0xff, 0xff, 0xff, 0xff, 0x07}, &u), ErrLengthLimit)

	in := units{Items: make([]struct{}, 3)}
	data, err := ToVec(in)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x21, 0x03}, data)
	var out units
	require.NoError(t, FromSlice(data, &out))
	assert.Len(t, out.Items, 3)

	strict := Default.WithMaxLen(2)
	require.ErrorIs(t, strict.FromSlice(data, &out), ErrLengthLimit)
	_, err = strict.ToVec(in)
	require.ErrorIs(t, err, ErrLengthLimit)
}

func TestMaxLen(t *testing.T) {
	assert.Equal(t, DefaultMaxLen, Encoding{}.MaxLen())
	assert.Equal(t, DefaultMaxLen, Default.MaxLen())

	data, err := ToVec([]uint16{1, 2, 3})
	require.NoError(t, err)
	var list []uint16
	require.ErrorIs(t, Default.WithMaxLen(2).FromSlice(data, &list), ErrLengthLimit)
	require.NoError(t, Default.WithMaxLen(3).FromSlice(data, &list))
	assert.Equal(t, []uint16{1, 2, 3}, list)

	_, err = Default.WithMaxLen(1).ToVec(map[string]bool{"a": true, "b": false})
	require.ErrorIs(t, err, ErrLengthLimit)
	// Byte strings are bounded by the input, not by the element limit.
	_, err = Default.WithMaxLen(1).ToVec([]byte("abc"))
	require.NoError(t, err)
}

func TestEncoderConsumed(t *testing.T) {
	var buf bytes.Buffer
	enc := Default.NewEncoder(&buf)
	require.NoError(t, enc.EncodeBool(true))
	require.ErrorIs(t, enc.EncodeBool(true), ErrEncoderConsumed)
	require.ErrorIs(t, enc.EncodeString("x"), ErrEncoderConsumed)
	assert.Equal(t, []byte{0x01}, buf.Bytes())

	dec := Default.NewDecoder(wireio.NewSliceReader([]byte{0x01, 0x01}))
	_, err := dec.DecodeBool()
	require.NoError(t, err)
	_, err = dec.DecodeBool()
	require.ErrorIs(t, err, ErrEncoderConsumed)
}

func TestSequenceCountMismatch(t *testing.T) {
	var buf bytes.Buffer
	seq, err := Default.NewEncoder(&buf).EncodeSequence(2)
	require.NoError(t, err)
	e, err := seq.Next()
	require.NoError(t, err)
	require.NoError(t, e.EncodeUint8(1))
	require.ErrorIs(t, seq.End(), ErrLengthMismatch)

	buf.Reset()
	pairs, err := Default.NewEncoder(&buf).EncodeMap(0)
	require.NoError(t, err)
	_, err = pairs.Key()
	require.ErrorIs(t, err, ErrLengthMismatch)

	buf.Reset()
	pairs, err = Default.NewEncoder(&buf).EncodeStruct(1)
	require.NoError(t, err)
	_, err = pairs.Value()
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestFixedBytesFull(t *testing.T) {
	_, err := ToFixedBytes(2, "hello")
	require.ErrorIs(t, err, wireio.ErrFixedBytesFull)

	f, err := ToFixedBytes(8, "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x25, 'h', 'e', 'l', 'l', 'o'}, f.Bytes())
}

func TestToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ToWriter(&buf, sampleOuter()))
	want, err := ToVec(sampleOuter())
	require.NoError(t, err)
	assert.Equal(t, want, buf.Bytes())
}

func TestSinkErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("tag", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		w := mock_wireio.NewMockWriter(ctrl)
		w.EXPECT().WriteByte(gomock.Any()).Return(boom)
		require.ErrorIs(t, Encode(w, uint8(3)), boom)
	})
	t.Run("body", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		w := mock_wireio.NewMockWriter(ctrl)
		w.EXPECT().WriteByte(byte(0x22)).Return(nil)
		w.EXPECT().Write([]byte("hi")).Return(0, boom)
		require.ErrorIs(t, Encode(w, "hi"), boom)
	})
	t.Run("source", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		r := mock_wireio.NewMockReader(ctrl)
		r.EXPECT().Pos().Return(0).AnyTimes()
		r.EXPECT().ReadByte().Return(byte(0), boom)
		var v uint32
		require.ErrorIs(t, Decode(r, &v), boom)
	})
}

type celsius float64

func (c celsius) MarshalWire(enc Encoder) error { return enc.EncodeInt32(int32(c * 10)) }

func (c *celsius) UnmarshalWire(dec Decoder) error {
	v, err := dec.DecodeInt32()
	*c = celsius(v) / 10
	return err
}

// rgb writes itself as a packed value by hand.
type rgb struct{ R, G, B uint8 }

func (c *rgb) MarshalWire(enc Encoder) error {
	p, err := enc.EncodePacked()
	if err != nil {
		return err
	}
	for _, v := range []uint8{c.R, c.G, c.B} {
		e, err := p.Next()
		if err != nil {
			return err
		}
		if err := e.EncodeUint8(v); err != nil {
			return err
		}
	}
	return p.End()
}

func (c *rgb) UnmarshalWire(dec Decoder) error {
	p, err := dec.DecodePacked()
	if err != nil {
		return err
	}
	for _, dst := range []*uint8{&c.R, &c.G, &c.B} {
		d, err := p.Next()
		if err != nil {
			return err
		}
		if *dst, err = d.DecodeUint8(); err != nil {
			return err
		}
	}
	return p.End()
}

func TestMarshaler(t *testing.T) {
	type reading struct {
		Temp  celsius
		Color rgb
		Trail []celsius
	}
	in := reading{Temp: 21.5, Color: rgb{1, 2, 3}, Trail: []celsius{-4.5, 0}}
	data, err := ToVec(in)
	require.NoError(t, err)

	var out reading
	require.NoError(t, FromSlice(data, &out))
	assert.Equal(t, in, out)

	data, err = ToVec(rgb{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x23, 4, 5, 6}, data)
}

func TestParseEncoding(t *testing.T) {
	e, err := ParseEncoding("fixed-le/fixed32")
	require.NoError(t, err)
	assert.Equal(t, "fixed-le/fixed32", e.String())
	assert.Equal(t, "variable/variable", Default.String())
	assert.Equal(t, "variable/variable", Encoding{}.String())

	e, err = ParseEncoding("fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed-be/variable", e.String())

	_, err = ParseEncoding("fixed/sometimes")
	require.Error(t, err)
}

func TestInspect(t *testing.T) {
	var b body110
	data, err := ToVec(from[body110]{Prefix: ptr(uint32(10)), Field: b})
	require.NoError(t, err)
	nodes, err := Inspect(data)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	root := nodes[0]
	assert.Equal(t, tag.PairSequence, root.Tag.Kind())
	assert.Equal(t, 3, root.Len)
	require.Len(t, root.Children, 6)
	assert.Equal(t, tag.Pack, root.Children[3].Tag.Kind())
	assert.Equal(t, 128, root.Children[3].Len)

	var out strings.Builder
	require.NoError(t, root.Format(&out))
	assert.Contains(t, out.String(), "PairSequence len=3")
	assert.Contains(t, out.String(), "Pack")

	_, err = Inspect([]byte{0x22, 'a'})
	require.ErrorIs(t, err, ErrBufferExhausted)
}

func FuzzDecode(f *testing.F) {
	seed, err := ToVec(sampleOuter())
	require.NoError(f, err)
	f.Add(seed)
	f.Add([]byte{0x63, 0x80, 0x41, 0x8a, 0x81, 0xa7})
	f.Add([]byte{0xff})
	f.Fuzz(func(t *testing.T, data []byte) {
		var o outer
		_ = FromSlice(data, &o)
		var subset to
		_ = FromSlice(data, &subset)
		_, _ = Inspect(data)
		_ = Default.NewDecoder(wireio.NewSliceReader(data)).Skip()
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add("azerty", int8(17), "testing", int16(12), float32(12.3), float64(1236.2))
	f.Fuzz(func(t *testing.T, val string, mod int8, data string, integers int16, f3 float32, f6 float64) {
		type mixed struct {
			Val      string
			Mod      int8
			Data     string
			Integers int16
			Float3   float32
			Float6   float64
		}
		if !utf8.ValidString(val) || !utf8.ValidString(data) || f3 != f3 || f6 != f6 {
			t.Skip()
		}
		in := mixed{Val: val, Mod: mod, Data: data, Integers: integers, Float3: f3, Float6: f6}
		enc, err := ToVec(in)
		require.NoError(t, err)
		var out mixed
		require.NoError(t, FromSlice(enc, &out))
		require.Equal(t, enc, Default.MustToVec(out))
	})
}
