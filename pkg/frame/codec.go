package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies how a frame payload is compressed.
type Codec byte

const (
	CodecNone Codec = iota
	CodecZstd
	CodecSnappy
	CodecLZ4
)

var codecNames = [...]string{"none", "zstd", "snappy", "lz4"}

func (c Codec) String() string {
	if int(c) < len(codecNames) {
		return codecNames[c]
	}
	return fmt.Sprintf("codec(%d)", byte(c))
}

// ParseCodec parses a codec name as printed by String. The empty string is
// CodecNone.
func ParseCodec(s string) (Codec, error) {
	if s == "" {
		return CodecNone, nil
	}
	for i, name := range codecNames {
		if strings.EqualFold(s, name) {
			return Codec(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
}

// Compressor compresses frame payloads for one codec.
type Compressor interface {
	Code() Codec
	Compress(data []byte) ([]byte, error)
	// Uncompress fails with ErrTooLarge rather than produce more than limit
	// bytes.
	Uncompress(data []byte, limit int) ([]byte, error)
}

var compressors = map[Codec]Compressor{
	CodecNone:   noneCompressor{},
	CodecZstd:   zstdCompressor{},
	CodecSnappy: snappyCompressor{},
	CodecLZ4:    lz4Compressor{},
}

// Lookup returns the compressor for c.
func Lookup(c Codec) (Compressor, error) {
	comp, ok := compressors[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, c)
	}
	return comp, nil
}

type noneCompressor struct{}

func (noneCompressor) Code() Codec { return CodecNone }

func (noneCompressor) Compress(data []byte) ([]byte, error) { return data, nil }

func (noneCompressor) Uncompress(data []byte, limit int) ([]byte, error) {
	if len(data) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), limit)
	}
	return data, nil
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdErr  error
)

type zstdCompressor struct{}

func (zstdCompressor) Code() Codec { return CodecZstd }

func (zstdCompressor) Compress(data []byte) ([]byte, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	if zstdErr != nil {
		return nil, zstdErr
	}
	return zstdEnc.EncodeAll(data, nil), nil
}

func (zstdCompressor) Uncompress(data []byte, limit int) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(uint64(limit)+1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := io.ReadAll(io.LimitReader(dec, int64(limit)+1))
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTooLarge, err)
		}
		return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: zstd payload exceeds %d bytes", ErrTooLarge, limit)
	}
	return out, nil
}

type snappyCompressor struct{}

func (snappyCompressor) Code() Codec { return CodecSnappy }

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCompressor) Uncompress(data []byte, limit int) ([]byte, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("%w: snappy: %v", ErrCorrupt, err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, n, limit)
	}
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("%w: snappy: %v", ErrCorrupt, err)
	}
	return out, nil
}

// lz4Compressor writes lz4 blocks prefixed by the uncompressed size as a
// little endian uint32, since the block format does not carry it.
type lz4Compressor struct{}

func (lz4Compressor) Code() Codec { return CodecLZ4 }

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	buf := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	var c lz4.Compressor
	n, err := c.CompressBlock(data, buf[4:])
	if err != nil {
		return nil, err
	}
	if n == 0 && len(data) > 0 {
		return nil, errIncompressible
	}
	return buf[:4+n], nil
}

func (lz4Compressor) Uncompress(data []byte, limit int) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: lz4 size prefix", ErrTruncated)
	}
	size := binary.LittleEndian.Uint32(data)
	if uint64(size) > uint64(limit) {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, limit)
	}
	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}
	n, err := lz4.UncompressBlock(data[4:], out)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
	}
	if n != int(size) {
		return nil, fmt.Errorf("%w: lz4 produced %d of %d bytes", ErrCorrupt, n, size)
	}
	return out, nil
}
