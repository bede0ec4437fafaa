package snapshot

import (
	"bytes"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestSnapshotMarshal(t *testing.T) {
	s := Snapshot{
		Name:           "boston",
		MinX:           -10.5,
		MinY:           0,
		MaxX:           100,
		MaxY:           42.25,
		BucketCapacity: 5,
		MaxDepth:       12,
		Nodes: []Node{
			{X: 1, Y: 2, ID: 1, Label: "cafe", Data: []byte(`{"stars":4}`)},
			{X: -3.5, Y: 40, ID: 2},
		},
	}

	t.Run("snapshot is decoded", func(t *testing.T) {
		res, err := Unmarshal(Marshal(s))
		require.NoError(t, err)
		require.Equal(t, s, res)
	})

	t.Run("snapshot is read from a reader", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, s))

		res, err := Read(&buf)
		require.NoError(t, err)
		require.Equal(t, s, res)
	})

	t.Run("unknown fields are skipped", func(t *testing.T) {
		b := Marshal(s)
		b = protowire.AppendTag(b, 15, protowire.VarintType)
		b = protowire.AppendVarint(b, 42)

		res, err := Unmarshal(b)
		require.NoError(t, err)
		require.Equal(t, s, res)
	})
}

func TestSnapshotUnmarshalErrors(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		_, err := Unmarshal(nil)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidSnapshot))
	})

	t.Run("truncated snapshot", func(t *testing.T) {
		b := Marshal(Snapshot{
			Name:           "truncated",
			BucketCapacity: 1,
			Nodes:          []Node{{X: 1, Y: 1, ID: 1}},
		})

		_, err := Unmarshal(b[:len(b)-3])
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidSnapshot))
	})

	t.Run("out of range header values", func(t *testing.T) {
		for _, snap := range []Snapshot{
			{Name: "capacity", BucketCapacity: 1 << 62},
			{Name: "depth", BucketCapacity: 1, MaxDepth: 1 << 40},
		} {
			_, err := Unmarshal(Marshal(snap))
			require.Error(t, err)
			require.True(t, errors.IsType(err, ErrTypeInvalidSnapshot))
		}
	})
}
