// Package serialize adapts fracwire encodings to a byte-oriented Serializer
// interface, optionally framed and instrumented.
package serialize

import (
	"github.com/rawbytedev/fracwire"
	"github.com/rawbytedev/fracwire/pkg/frame"
)

// Serializer turns values into bytes and back.
type Serializer interface {
	Code() byte
	Encode(val any) ([]byte, error)
	Decode(data []byte, val any) error
}

const (
	CodeWire   byte = 1
	CodeFramed byte = 2
)

// Wire serializes with a fracwire Encoding. When Framed is set the payload is
// wrapped with frame.Encode using Codec, and Limit bounds decoded frames.
type Wire struct {
	Encoding fracwire.Encoding
	Framed   bool
	Codec    frame.Codec
	Limit    int
}

func (w Wire) Code() byte {
	if w.Framed {
		return CodeFramed
	}
	return CodeWire
}

func (w Wire) Encode(val any) ([]byte, error) {
	data, err := w.Encoding.ToVec(val)
	if err != nil || !w.Framed {
		return data, err
	}
	return frame.Encode(data, frame.Options{Codec: w.Codec})
}

func (w Wire) Decode(data []byte, val any) error {
	if w.Framed {
		f, err := frame.Decode(data, w.Limit)
		if err != nil {
			return err
		}
		data = f.Payload
	}
	return w.Encoding.FromSlice(data, val)
}
