package wireio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// readChunk bounds the allocation made for a single ReadBytes call before the
// bytes have actually arrived, so a hostile length cannot force a huge
// allocation up front.
const readChunk = 64 << 10

type streamReader struct {
	r   *bufio.Reader
	pos int
}

// NewReader returns a Reader over an io.Reader. ReadBytes copies.
func NewReader(r io.Reader) Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &streamReader{r: br}
	}
	return &streamReader{r: bufio.NewReader(r)}
}

func (s *streamReader) fail(want int, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: need %d bytes at offset %d: %w", ErrBufferExhausted, want, s.pos, err)
	}
	return err
}

func (s *streamReader) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, s.fail(1, err)
	}
	s.pos++
	return b, nil
}

func (s *streamReader) PeekByte() (byte, error) {
	b, err := s.r.Peek(1)
	if err != nil {
		return 0, s.fail(1, err)
	}
	return b[0], nil
}

func (s *streamReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, exhausted(s.pos, n, 0)
	}
	out := make([]byte, 0, min(n, readChunk))
	for len(out) < n {
		step := min(n-len(out), readChunk)
		start := len(out)
		out = append(out, make([]byte, step)...)
		read, err := io.ReadFull(s.r, out[start:])
		s.pos += read
		if err != nil {
			return nil, s.fail(n, err)
		}
	}
	return out, nil
}

func (s *streamReader) Skip(n int) error {
	if n < 0 {
		return exhausted(s.pos, n, 0)
	}
	d, err := s.r.Discard(n)
	s.pos += d
	if err != nil {
		return s.fail(n, err)
	}
	return nil
}

func (s *streamReader) Pos() int       { return s.pos }
func (s *streamReader) Remaining() int { return -1 }
