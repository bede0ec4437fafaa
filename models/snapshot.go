package models

import (
	"context"

	"github.com/aukilabs/bento/geometry"
	"github.com/aukilabs/bento/snapshot"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Snapshot returns the serializable content of the index.
func (i *Index) Snapshot() (snapshot.Snapshot, error) {
	box := i.Box()
	s := snapshot.Snapshot{
		Name:           i.Name,
		MinX:           box.Root().MinX(),
		MinY:           box.Root().MinY(),
		MaxX:           box.Root().MaxX(),
		MaxY:           box.Root().MaxY(),
		BucketCapacity: i.BucketCapacity(),
		MaxDepth:       i.MaxDepth(),
	}

	for _, n := range i.All() {
		place := n.Payload()

		var data []byte
		if len(place.Data) != 0 {
			var err error
			if data, err = json.Marshal(place.Data); err != nil {
				return snapshot.Snapshot{}, errors.New("encoding place data failed").
					WithTag("index", i.Name).
					WithTag("place_id", place.ID).
					Wrap(err)
			}
		}

		s.Nodes = append(s.Nodes, snapshot.Node{
			X:     n.Coordinate().X(),
			Y:     n.Coordinate().Y(),
			ID:    place.ID,
			Label: place.Label,
			Data:  data,
		})
	}

	return s, nil
}

// Restore creates an index from a snapshot and adds it to the store. Nodes
// outside of the snapshot box are dropped.
func (s *IndexStore) Restore(ctx context.Context, snap snapshot.Snapshot) (*Index, error) {
	id := s.NewID()

	index, err := NewIndex(id, IndexConfig{
		Name:           snap.Name,
		Box:            geometry.NewBox(snap.MinX, snap.MinY, snap.MaxX, snap.MaxY),
		BucketCapacity: snap.BucketCapacity,
		MaxDepth:       snap.MaxDepth,
	})
	if err != nil {
		s.ids.Reuse(id)
		return nil, err
	}

	for _, n := range snap.Nodes {
		place := Place{
			ID:    n.ID,
			Label: n.Label,
		}

		if len(n.Data) != 0 {
			if err := json.Unmarshal(n.Data, &place.Data); err != nil {
				s.ids.Reuse(id)
				return nil, errors.New("decoding place data failed").
					WithType(snapshot.ErrTypeInvalidSnapshot).
					WithTag("index", snap.Name).
					WithTag("place_id", n.ID).
					Wrap(err)
			}
		}

		index.Restore(geometry.NewPoint(n.X, n.Y), place)
	}

	if err := s.Add(ctx, index); err != nil {
		s.ids.Reuse(id)
		return nil, err
	}
	return index, nil
}
