// Package wireio contains the byte sinks and sources that encoders and
// decoders operate on.
package wireio

//go:generate mockgen -source=wireio.go -destination=mock_wireio/wireio.go -package=mock_wireio

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrBufferExhausted is returned when a read asks for more bytes than
	// remain in the source.
	ErrBufferExhausted = errors.New("wireio: buffer exhausted")
	// ErrFixedBytesFull is returned when a write does not fit a FixedBytes.
	ErrFixedBytesFull = errors.New("wireio: fixed bytes capacity exceeded")
)

// Writer is a byte sink. Errors are returned to the caller unchanged.
// *bytes.Buffer and *bufio.Writer satisfy it.
type Writer interface {
	io.Writer
	io.ByteWriter
}

// Reader is a byte source.
type Reader interface {
	// ReadByte consumes one byte.
	ReadByte() (byte, error)
	// PeekByte returns the next byte without consuming it.
	PeekByte() (byte, error)
	// ReadBytes consumes n bytes. The returned slice may alias the
	// underlying buffer and must not be modified.
	ReadBytes(n int) ([]byte, error)
	// Skip discards n bytes.
	Skip(n int) error
	// Pos is the number of bytes consumed so far.
	Pos() int
	// Remaining is the number of bytes left, or -1 if unknown.
	Remaining() int
}

func exhausted(pos, want, have int) error {
	return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrBufferExhausted, want, pos, have)
}

// SliceReader reads from a byte slice without copying.
type SliceReader struct {
	data []byte
	pos  int
}

// NewSliceReader returns a reader over data.
func NewSliceReader(data []byte) *SliceReader {
	return &SliceReader{data: data}
}

func (r *SliceReader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, exhausted(r.pos, 1, 0)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *SliceReader) PeekByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, exhausted(r.pos, 1, 0)
	}
	return r.data[r.pos], nil
}

func (r *SliceReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, exhausted(r.pos, n, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *SliceReader) Skip(n int) error {
	if n < 0 || n > len(r.data)-r.pos {
		return exhausted(r.pos, n, len(r.data)-r.pos)
	}
	r.pos += n
	return nil
}

func (r *SliceReader) Pos() int       { return r.pos }
func (r *SliceReader) Remaining() int { return len(r.data) - r.pos }

// Rest returns the unread bytes.
func (r *SliceReader) Rest() []byte { return r.data[r.pos:] }

// FixedBytes is a writer with a capacity fixed at construction. It never
// grows.
type FixedBytes struct {
	buf []byte
}

// NewFixedBytes returns a writer that accepts at most size bytes.
func NewFixedBytes(size int) *FixedBytes {
	return &FixedBytes{buf: make([]byte, 0, size)}
}

func (f *FixedBytes) Write(p []byte) (int, error) {
	if len(p) > cap(f.buf)-len(f.buf) {
		return 0, fmt.Errorf("%w: writing %d bytes, %d free", ErrFixedBytesFull, len(p), cap(f.buf)-len(f.buf))
	}
	f.buf = append(f.buf, p...)
	return len(p), nil
}

func (f *FixedBytes) WriteByte(c byte) error {
	if len(f.buf) == cap(f.buf) {
		return fmt.Errorf("%w: writing 1 byte, 0 free", ErrFixedBytesFull)
	}
	f.buf = append(f.buf, c)
	return nil
}

// Bytes returns the written bytes.
func (f *FixedBytes) Bytes() []byte { return f.buf }

// Len returns the number of bytes written.
func (f *FixedBytes) Len() int { return len(f.buf) }

// Cap returns the capacity.
func (f *FixedBytes) Cap() int { return cap(f.buf) }
