package wireio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceReader(t *testing.T) {
	r := NewSliceReader([]byte{1, 2, 3, 4})
	b, err := r.PeekByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), b)
	b, err = r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), b)

	got, err := r.ReadBytes(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, got)
	assert.Equal(t, 3, r.Pos())
	assert.Equal(t, 1, r.Remaining())

	_, err = r.ReadBytes(2)
	require.ErrorIs(t, err, ErrBufferExhausted)
	assert.Equal(t, 3, r.Pos(), "failed read must not advance")

	require.ErrorIs(t, r.Skip(-1), ErrBufferExhausted)
	require.NoError(t, r.Skip(1))
	_, err = r.ReadByte()
	require.ErrorIs(t, err, ErrBufferExhausted)
	_, err = r.PeekByte()
	require.ErrorIs(t, err, ErrBufferExhausted)
}

func TestSliceReaderDoesNotGrowIntoCapacity(t *testing.T) {
	backing := make([]byte, 4, 16)
	r := NewSliceReader(backing)
	got, err := r.ReadBytes(2)
	require.NoError(t, err)
	assert.Equal(t, 2, cap(got))
}

func TestFixedBytes(t *testing.T) {
	f := NewFixedBytes(3)
	require.NoError(t, f.WriteByte(1))
	n, err := f.Write([]byte{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.ErrorIs(t, f.WriteByte(4), ErrFixedBytesFull)
	_, err = f.Write([]byte{5})
	require.ErrorIs(t, err, ErrFixedBytesFull)
	assert.Equal(t, []byte{1, 2, 3}, f.Bytes())
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 3, f.Cap())
}

func TestStreamReader(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("abcdef")))
	b, err := r.PeekByte()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)
	require.NoError(t, r.Skip(1))
	got, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, "bcd", string(got))
	assert.Equal(t, 4, r.Pos())
	assert.Equal(t, -1, r.Remaining())

	_, err = r.ReadBytes(10)
	require.ErrorIs(t, err, ErrBufferExhausted)
}

func TestStreamReaderLargeRead(t *testing.T) {
	payload := strings.Repeat("x", 3*readChunk+17)
	r := NewReader(strings.NewReader(payload))
	got, err := r.ReadBytes(len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}
