package fracwire

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rawbytedev/fracwire/pkg/intenc"
	"github.com/rawbytedev/fracwire/pkg/tag"
	"github.com/rawbytedev/fracwire/pkg/wireio"
)

// Node is one tagged value found by Inspect.
type Node struct {
	Offset int
	Tag    tag.Tag
	// Len is the element, pair or byte count, depending on the kind.
	Len      int
	Value    string
	Children []*Node
}

// previewLen bounds the bytes shown for prefixed and packed values.
const previewLen = 32

// Inspect walks every top level value in data without knowing its type.
// Packed bodies are shown as bytes since they carry no tags.
func (e Encoding) Inspect(data []byte) ([]*Node, error) {
	in := &inspector{r: wireio.NewSliceReader(data), lens: e.Lengths(), maxDepth: e.MaxDepth()}
	var nodes []*Node
	for in.r.Remaining() > 0 {
		n, err := in.node(0)
		if n != nil {
			nodes = append(nodes, n)
		}
		if err != nil {
			return nodes, err
		}
	}
	return nodes, nil
}

// Inspect walks data with the default encoding.
func Inspect(data []byte) ([]*Node, error) { return Default.Inspect(data) }

type inspector struct {
	r        *wireio.SliceReader
	lens     intenc.LengthEncoding
	maxDepth int
}

func (in *inspector) node(depth int) (*Node, error) {
	off := in.r.Pos()
	b, err := in.r.ReadByte()
	if err != nil {
		return nil, err
	}
	t := tag.FromByte(b)
	n := &Node{Offset: off, Tag: t}
	switch t.Kind() {
	case tag.Byte:
		v, ok := t.Data()
		if !ok {
			if v, err = in.r.ReadByte(); err != nil {
				return n, err
			}
		}
		n.Value = fmt.Sprintf("%d", v)
	case tag.Continuation:
		d, ok := t.Data()
		v := uint64(d)
		if !ok {
			if v, err = intenc.ReadContinuation(in.r); err != nil {
				return n, err
			}
		}
		n.Value = fmt.Sprintf("%d (zigzag %d)", v, intenc.UnZigZag(v))
	case tag.Prefix:
		l, err := in.lens.ReadTaggedLen(in.r, t)
		if err != nil {
			return n, err
		}
		body, err := in.r.ReadBytes(l)
		if err != nil {
			return n, err
		}
		n.Len = l
		n.Value = preview(body)
	case tag.Pack:
		size, err := packSize(t, off)
		if err != nil {
			return n, err
		}
		body, err := in.r.ReadBytes(size)
		if err != nil {
			return n, err
		}
		n.Len = size
		n.Value = preview(body)
	case tag.Sequence, tag.PairSequence:
		l, err := in.lens.ReadTaggedLen(in.r, t)
		if err != nil {
			return n, err
		}
		if depth+1 > in.maxDepth {
			return n, fmt.Errorf("%w: %d", ErrDepthLimit, in.maxDepth)
		}
		n.Len = l
		count := l
		if t.Kind() == tag.PairSequence {
			count = 2 * l
		}
		if count > in.r.Remaining() {
			return n, fmt.Errorf("%w: %d values announced at offset %d", ErrBufferExhausted, count, off)
		}
		for i := 0; i < count; i++ {
			c, err := in.node(depth + 1)
			if c != nil {
				n.Children = append(n.Children, c)
			}
			if err != nil {
				return n, err
			}
		}
	default:
		return n, &KindError{Offset: off, Got: t}
	}
	return n, nil
}

func preview(b []byte) string {
	if utf8.Valid(b) && !strings.ContainsFunc(string(b), isControl) {
		if len(b) > previewLen {
			return fmt.Sprintf("%q...", b[:previewLen])
		}
		return fmt.Sprintf("%q", b)
	}
	if len(b) > previewLen {
		return hex.EncodeToString(b[:previewLen]) + "..."
	}
	return hex.EncodeToString(b)
}

func isControl(r rune) bool { return r < 0x20 || r == 0x7f }

// Format writes an indented listing of n and its children.
func (n *Node) Format(w io.Writer) error {
	return n.format(w, 0)
}

func (n *Node) format(w io.Writer, depth int) error {
	line := fmt.Sprintf("%s%06d %-12s", strings.Repeat("  ", depth), n.Offset, n.Tag.Kind())
	switch n.Tag.Kind() {
	case tag.Sequence, tag.PairSequence:
		line += fmt.Sprintf(" len=%d", n.Len)
	case tag.Prefix, tag.Pack:
		line += fmt.Sprintf(" len=%d %s", n.Len, n.Value)
	default:
		line += " " + n.Value
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.format(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
