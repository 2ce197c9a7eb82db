package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKinds = []Kind{Byte, Prefix, Sequence, PairSequence, Continuation, Pack, Unknown6, Unknown7}

func TestByteIdentity(t *testing.T) {
	for b := 0; b <= 0xff; b++ {
		require.Equal(t, byte(b), FromByte(byte(b)).Byte())
	}
}

func TestKindCoversAllPatterns(t *testing.T) {
	for b := 0; b <= 0xff; b++ {
		k := FromByte(byte(b)).Kind()
		assert.Contains(t, allKinds, k)
		assert.NotContains(t, k.String(), "Kind(")
	}
	assert.True(t, Pack.Known())
	assert.False(t, Unknown6.Known())
	assert.False(t, Unknown7.Known())
}

func TestDataRoundTrip(t *testing.T) {
	for _, k := range allKinds {
		for d := 0; d <= 0xff; d++ {
			tg := New(k, uint8(d))
			require.Equal(t, k, tg.Kind())
			got, ok := tg.Data()
			if d < int(DataMask) {
				require.True(t, ok)
				require.Equal(t, uint8(d), got)
			} else {
				require.False(t, ok)
				require.Equal(t, DataMask, tg.DataRaw())
			}
		}
	}
}

func TestWithLen(t *testing.T) {
	tg, ok := WithLen(Sequence, 30)
	require.True(t, ok)
	d, _ := tg.Data()
	assert.Equal(t, uint8(30), d)

	tg, ok = WithLen(Sequence, 31)
	require.False(t, ok)
	assert.Equal(t, Empty(Sequence), tg)

	_, ok = WithLen(Prefix, -1)
	assert.False(t, ok)

	_, ok = WithByte(Byte, 200)
	assert.False(t, ok)
	tg, ok = WithByte(Byte, 7)
	assert.True(t, ok)
	assert.Equal(t, byte(7), tg.Byte())
}

func TestWireValues(t *testing.T) {
	assert.Equal(t, byte(0x63), New(PairSequence, 3).Byte())
	assert.Equal(t, byte(0x9f), Empty(Continuation).Byte())
	assert.Equal(t, byte(0xa7), New(Pack, 7).Byte())
	assert.Equal(t, "Tag{kind: Prefix, data: 4}", New(Prefix, 4).String())
	assert.Equal(t, "Tag{kind: Byte, data: none}", Empty(Byte).String())
}
