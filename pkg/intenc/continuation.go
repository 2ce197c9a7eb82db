package intenc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rawbytedev/fracwire/pkg/wireio"
)

// ErrIntegerOverflow is returned when a decoded value does not fit its
// target width.
var ErrIntegerOverflow = errors.New("intenc: integer overflow")

// MaxContinuationLen is the longest continuation encoding of a uint64.
const MaxContinuationLen = 10

// ZigZag maps signed values onto unsigned ones so that small magnitudes stay
// small: 0, -1, 1, -2 become 0, 1, 2, 3.
func ZigZag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// UnZigZag inverts ZigZag.
func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// AppendContinuation appends x in 7-bit groups, low to high, with the top
// bit set on every byte but the last. This is the uvarint form of
// encoding/binary; the readers below add the 64 bit overflow check and
// report truncation as wireio.ErrBufferExhausted.
func AppendContinuation(dst []byte, x uint64) []byte {
	return binary.AppendUvarint(dst, x)
}

// ContinuationLen returns the encoded size of x.
func ContinuationLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}

// WriteContinuation writes x to w.
func WriteContinuation(w wireio.Writer, x uint64) error {
	var scratch [MaxContinuationLen]byte
	_, err := w.Write(AppendContinuation(scratch[:0], x))
	return err
}

// ReadContinuation reads a continuation encoded uint64.
func ReadContinuation(r wireio.Reader) (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < MaxContinuationLen; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == MaxContinuationLen-1 && c > 1 {
			return 0, fmt.Errorf("%w: continuation value exceeds 64 bits", ErrIntegerOverflow)
		}
		x |= uint64(c&0x7f) << s
		if c&0x80 == 0 {
			return x, nil
		}
		s += 7
	}
	return 0, fmt.Errorf("%w: continuation value exceeds 64 bits", ErrIntegerOverflow)
}

// DecodeContinuation decodes a continuation value from the front of b and
// returns it with the number of bytes consumed.
func DecodeContinuation(b []byte) (uint64, int, error) {
	var x uint64
	var s uint
	for i, c := range b {
		if i == MaxContinuationLen || (i == MaxContinuationLen-1 && c > 1) {
			return 0, 0, fmt.Errorf("%w: continuation value exceeds 64 bits", ErrIntegerOverflow)
		}
		x |= uint64(c&0x7f) << s
		if c&0x80 == 0 {
			return x, i + 1, nil
		}
		s += 7
	}
	return 0, 0, fmt.Errorf("%w: continuation value truncated after %d bytes", wireio.ErrBufferExhausted, len(b))
}

// SkipContinuation discards a continuation value.
func SkipContinuation(r wireio.Reader) error {
	for i := 0; i < MaxContinuationLen; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return err
		}
		if c&0x80 == 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: continuation value exceeds 64 bits", ErrIntegerOverflow)
}
