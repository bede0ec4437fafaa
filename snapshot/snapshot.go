// Package snapshot encodes the content of an index using the protobuf wire
// format.
//
// A snapshot is a message made of one header (field 1) followed by repeated
// nodes (field 2):
//
//	header: 1 min_x (fixed64), 2 min_y (fixed64), 3 max_x (fixed64),
//	        4 max_y (fixed64), 5 bucket_capacity (varint),
//	        6 max_depth (varint), 7 name (bytes)
//	node:   1 x (fixed64), 2 y (fixed64), 3 id (varint), 4 label (bytes),
//	        5 data (bytes, JSON)
package snapshot

import (
	"io"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	ErrTypeInvalidSnapshot = "invalid_snapshot"

	ContentType = "application/x-protobuf"
)

const (
	fieldHeader protowire.Number = 1
	fieldNode   protowire.Number = 2

	fieldHeaderMinX           protowire.Number = 1
	fieldHeaderMinY           protowire.Number = 2
	fieldHeaderMaxX           protowire.Number = 3
	fieldHeaderMaxY           protowire.Number = 4
	fieldHeaderBucketCapacity protowire.Number = 5
	fieldHeaderMaxDepth       protowire.Number = 6
	fieldHeaderName           protowire.Number = 7

	fieldNodeX     protowire.Number = 1
	fieldNodeY     protowire.Number = 2
	fieldNodeID    protowire.Number = 3
	fieldNodeLabel protowire.Number = 4
	fieldNodeData  protowire.Number = 5
)

// Snapshot is the serializable content of an index.
type Snapshot struct {
	Name           string
	MinX           float64
	MinY           float64
	MaxX           float64
	MaxY           float64
	BucketCapacity int
	MaxDepth       int
	Nodes          []Node
}

// Node is a stored place.
type Node struct {
	X     float64
	Y     float64
	ID    uint32
	Label string
	Data  []byte
}

// Marshal encodes s.
func Marshal(s Snapshot) []byte {
	var header []byte
	header = appendFloat(header, fieldHeaderMinX, s.MinX)
	header = appendFloat(header, fieldHeaderMinY, s.MinY)
	header = appendFloat(header, fieldHeaderMaxX, s.MaxX)
	header = appendFloat(header, fieldHeaderMaxY, s.MaxY)
	header = protowire.AppendTag(header, fieldHeaderBucketCapacity, protowire.VarintType)
	header = protowire.AppendVarint(header, uint64(s.BucketCapacity))
	header = protowire.AppendTag(header, fieldHeaderMaxDepth, protowire.VarintType)
	header = protowire.AppendVarint(header, uint64(s.MaxDepth))
	if s.Name != "" {
		header = protowire.AppendTag(header, fieldHeaderName, protowire.BytesType)
		header = protowire.AppendString(header, s.Name)
	}

	b := protowire.AppendTag(nil, fieldHeader, protowire.BytesType)
	b = protowire.AppendBytes(b, header)

	var node []byte
	for _, n := range s.Nodes {
		node = node[:0]
		node = appendFloat(node, fieldNodeX, n.X)
		node = appendFloat(node, fieldNodeY, n.Y)
		node = protowire.AppendTag(node, fieldNodeID, protowire.VarintType)
		node = protowire.AppendVarint(node, uint64(n.ID))
		if n.Label != "" {
			node = protowire.AppendTag(node, fieldNodeLabel, protowire.BytesType)
			node = protowire.AppendString(node, n.Label)
		}
		if len(n.Data) != 0 {
			node = protowire.AppendTag(node, fieldNodeData, protowire.BytesType)
			node = protowire.AppendBytes(node, n.Data)
		}

		b = protowire.AppendTag(b, fieldNode, protowire.BytesType)
		b = protowire.AppendBytes(b, node)
	}

	return b
}

// Unmarshal decodes a snapshot encoded with Marshal. Unknown fields are
// skipped.
func Unmarshal(b []byte) (Snapshot, error) {
	var s Snapshot
	var hasHeader bool

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldHeader && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			hasHeader = true
			return n, unmarshalHeader(v, &s)

		case num == fieldNode && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			node, err := unmarshalNode(v)
			if err != nil {
				return n, err
			}
			s.Nodes = append(s.Nodes, node)
			return n, nil

		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return Snapshot{}, err
	}

	if !hasHeader {
		return Snapshot{}, errors.New("snapshot header is missing").
			WithType(ErrTypeInvalidSnapshot)
	}
	return s, nil
}

// Write encodes s to w.
func Write(w io.Writer, s Snapshot) error {
	if _, err := w.Write(Marshal(s)); err != nil {
		return errors.New("writing snapshot failed").Wrap(err)
	}
	return nil
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (Snapshot, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, errors.New("reading snapshot failed").Wrap(err)
	}
	return Unmarshal(b)
}

func unmarshalHeader(b []byte, s *Snapshot) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldHeaderMinX && typ == protowire.Fixed64Type:
			return consumeFloat(b, &s.MinX), nil

		case num == fieldHeaderMinY && typ == protowire.Fixed64Type:
			return consumeFloat(b, &s.MinY), nil

		case num == fieldHeaderMaxX && typ == protowire.Fixed64Type:
			return consumeFloat(b, &s.MaxX), nil

		case num == fieldHeaderMaxY && typ == protowire.Fixed64Type:
			return consumeFloat(b, &s.MaxY), nil

		case num == fieldHeaderBucketCapacity && typ == protowire.VarintType:
			return consumeInt(b, &s.BucketCapacity)

		case num == fieldHeaderMaxDepth && typ == protowire.VarintType:
			return consumeInt(b, &s.MaxDepth)

		case num == fieldHeaderName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			s.Name = v
			return n, nil

		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

func unmarshalNode(b []byte) (Node, error) {
	var node Node

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldNodeX && typ == protowire.Fixed64Type:
			return consumeFloat(b, &node.X), nil

		case num == fieldNodeY && typ == protowire.Fixed64Type:
			return consumeFloat(b, &node.Y), nil

		case num == fieldNodeID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			node.ID = uint32(v)
			return n, nil

		case num == fieldNodeLabel && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			node.Label = v
			return n, nil

		case num == fieldNodeData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				node.Data = append([]byte(nil), v...)
			}
			return n, nil

		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	return node, err
}

// consumeFields calls fn for each field of b. fn returns the number of bytes
// consumed from the field value, or a negative protowire error code.
func consumeFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return parseError(n)
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return parseError(n)
		}
		b = b[n:]
	}
	return nil
}

func parseError(n int) error {
	return errors.New("malformed snapshot").
		WithType(ErrTypeInvalidSnapshot).
		Wrap(protowire.ParseError(n))
}

// consumeInt decodes a varint into v. Values above math.MaxInt32 are rejected.
func consumeInt(b []byte, v *int) (int, error) {
	u, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n, nil
	}
	if u > math.MaxInt32 {
		return n, errors.New("snapshot header value is out of range").
			WithType(ErrTypeInvalidSnapshot).
			WithTag("value", u)
	}
	*v = int(u)
	return n, nil
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func consumeFloat(b []byte, v *float64) int {
	bits, n := protowire.ConsumeFixed64(b)
	if n >= 0 {
		*v = math.Float64frombits(bits)
	}
	return n
}
