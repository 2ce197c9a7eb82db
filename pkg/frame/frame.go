// Package frame wraps wire payloads in a checksummed envelope with optional
// compression.
//
// A frame is laid out as
//
//	magic "FW" | version | flags | codec | length u32 LE | payload | crc32 LE
//
// where length is the size of the stored (possibly compressed) payload and the
// IEEE CRC covers every byte after the magic up to the end of the payload.
// Flags are not interpreted by this package.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

const (
	Version     = 1
	HeaderSize  = 9
	TrailerSize = 4

	// DefaultLimit bounds decoded payloads when Decode is given no limit.
	DefaultLimit = 64 << 20
)

var magic = [2]byte{'F', 'W'}

var (
	ErrBadMagic     = errors.New("frame: bad magic")
	ErrVersion      = errors.New("frame: unsupported version")
	ErrChecksum     = errors.New("frame: checksum mismatch")
	ErrTruncated    = errors.New("frame: truncated")
	ErrTrailingData = errors.New("frame: trailing data")
	ErrUnknownCodec = errors.New("frame: unknown codec")
	ErrTooLarge     = errors.New("frame: payload too large")
	ErrCorrupt      = errors.New("frame: corrupt payload")

	errIncompressible = errors.New("frame: incompressible")
)

// Options controls Encode.
type Options struct {
	Codec Codec
	Flags byte
}

// Frame is a decoded frame. Payload is uncompressed and aliases the input
// when Codec is CodecNone.
type Frame struct {
	Version byte
	Flags   byte
	Codec   Codec
	Payload []byte
}

// Encode wraps payload. Payloads the codec cannot compress are stored with
// CodecNone.
func Encode(payload []byte, opts Options) ([]byte, error) {
	comp, err := Lookup(opts.Codec)
	if err != nil {
		return nil, err
	}
	body, err := comp.Compress(payload)
	switch {
	case errors.Is(err, errIncompressible):
		body, opts.Codec = payload, CodecNone
	case err != nil:
		return nil, fmt.Errorf("frame: compress %s: %w", opts.Codec, err)
	}
	if uint64(len(body)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(body))
	}

	out := make([]byte, HeaderSize, HeaderSize+len(body)+TrailerSize)
	copy(out, magic[:])
	out[2] = Version
	out[3] = opts.Flags
	out[4] = byte(opts.Codec)
	binary.LittleEndian.PutUint32(out[5:], uint32(len(body)))
	out = append(out, body...)
	out = binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out[len(magic):]))
	return out, nil
}

// Decode unwraps a single frame that spans all of data. limit bounds the
// uncompressed payload; zero or less means DefaultLimit.
func Decode(data []byte, limit int) (*Frame, error) {
	f, rest, err := Next(data, limit)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(rest))
	}
	return f, nil
}

// Next unwraps the frame at the start of data and returns the bytes after it.
func Next(data []byte, limit int) (*Frame, []byte, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(data) < len(magic) {
		return nil, nil, fmt.Errorf("%w: %d byte header", ErrTruncated, len(data))
	}
	if data[0] != magic[0] || data[1] != magic[1] {
		return nil, nil, fmt.Errorf("%w: % x", ErrBadMagic, data[:2])
	}
	if len(data) < HeaderSize {
		return nil, nil, fmt.Errorf("%w: %d byte header", ErrTruncated, len(data))
	}
	f := &Frame{Version: data[2], Flags: data[3], Codec: Codec(data[4])}
	if f.Version != Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrVersion, f.Version)
	}
	n := binary.LittleEndian.Uint32(data[5:])
	end := uint64(HeaderSize) + uint64(n)
	if end+TrailerSize > uint64(len(data)) {
		return nil, nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, end+TrailerSize, len(data))
	}
	want := binary.LittleEndian.Uint32(data[end:])
	if got := crc32.ChecksumIEEE(data[len(magic):end]); got != want {
		return nil, nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, want)
	}
	comp, err := Lookup(f.Codec)
	if err != nil {
		return nil, nil, err
	}
	f.Payload, err = comp.Uncompress(data[HeaderSize:end], limit)
	if err != nil {
		return nil, nil, err
	}
	return f, data[end+TrailerSize:], nil
}
