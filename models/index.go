package models

import (
	"sync"
	"time"

	"github.com/aukilabs/bento/geometry"
	"github.com/aukilabs/bento/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
)

// Place is the payload stored at each indexed coordinate.
type Place struct {
	ID    uint32         `json:"id"`
	Label string         `json:"label,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type PlaceNode = quadtree.IndexedNode[Place, geometry.Point]

type PlaceCluster = quadtree.Cluster[Place, geometry.Rect, geometry.Point]

type placeTree = quadtree.QuadTree[Place, geometry.Rect, geometry.Point]

const (
	// The largest bucket capacity an index accepts.
	MaxBucketCapacity = 1 << 16

	// The longest index name. Names are hex encoded in snapshot file names.
	MaxNameLength = 100
)

// IndexConfig describes the extent and the shape of an index.
type IndexConfig struct {
	Name           string
	Box            geometry.Box
	BucketCapacity int
	MaxDepth       int
}

// Index is a named quad-tree of places.
//
// The underlying tree has a single writer: insertions take the write lock and
// queries share the read lock.
type Index struct {
	ID        uint32
	UUID      string
	Name      string
	CreatedAt time.Time

	maxDepth int
	placeIDs SequentialIDGenerator

	mutex   sync.RWMutex
	tree    *placeTree
	count   int
	dropped int
}

// NewIndex creates an empty index.
func NewIndex(id uint32, conf IndexConfig) (*Index, error) {
	if conf.Name == "" {
		return nil, errors.New("index name is empty").
			WithType(ErrTypeInvalidIndex)
	}

	if len(conf.Name) > MaxNameLength {
		return nil, errors.New("index name is too long").
			WithType(ErrTypeInvalidIndex).
			WithTag("max_length", MaxNameLength)
	}

	// Numeric references resolve to ids.
	if _, ok := parseIndexID(conf.Name); ok {
		return nil, errors.New("index name must not be a number").
			WithType(ErrTypeInvalidIndex).
			WithTag("index", conf.Name)
	}

	if conf.BucketCapacity > MaxBucketCapacity {
		return nil, errors.New("bucket capacity is too large").
			WithType(ErrTypeInvalidIndex).
			WithTag("bucket_capacity", conf.BucketCapacity).
			WithTag("max_bucket_capacity", MaxBucketCapacity)
	}

	tree, err := quadtree.New[Place](conf.Box, conf.BucketCapacity, quadtree.WithMaxDepth(conf.MaxDepth))
	if err != nil {
		return nil, errors.New("creating index tree failed").
			WithType(ErrTypeInvalidIndex).
			WithTag("index", conf.Name).
			Wrap(err)
	}

	return &Index{
		ID:        id,
		UUID:      uuid.New().String(),
		Name:      conf.Name,
		CreatedAt: time.Now(),
		maxDepth:  conf.MaxDepth,
		tree:      tree,
	}, nil
}

func (i *Index) Box() geometry.Box {
	return i.tree.Box()
}

func (i *Index) BucketCapacity() int {
	return i.tree.BucketCapacity()
}

func (i *Index) MaxDepth() int {
	return i.maxDepth
}

// Insert stores a new place at c. It returns the stored place and whether c
// was inside the index.
func (i *Index) Insert(c geometry.Point, label string, data map[string]any) (Place, bool) {
	place := Place{
		ID:    i.placeIDs.New(),
		Label: label,
		Data:  data,
	}

	if !i.insert(c, place) {
		i.placeIDs.Reuse(place.ID)
		return Place{}, false
	}
	return place, true
}

// Restore stores a place that already has an id, such as one loaded from a
// snapshot.
func (i *Index) Restore(c geometry.Point, place Place) bool {
	if !i.insert(c, place) {
		return false
	}
	i.placeIDs.Observe(place.ID)
	return true
}

func (i *Index) insert(c geometry.Point, place Place) bool {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	stored := i.tree.Insert(quadtree.NewIndexedNode(c, place))
	if stored {
		i.count++
	} else {
		i.dropped++
		logs.WithTag("index", i.Name).
			WithTag("x", c.X()).
			WithTag("y", c.Y()).
			Debug(errors.New("node dropped").WithType(ErrTypeNodeDropped))
	}

	instrumentInsert(i.Name, stored, i.count)
	return stored
}

// Query returns the places located in r.
func (i *Index) Query(r geometry.Rect) []PlaceNode {
	defer instrumentQueryLatency(i.Name, queryKindNodes, time.Now())

	i.mutex.RLock()
	defer i.mutex.RUnlock()

	return i.tree.Nodes(r)
}

// Clusters groups the places located in r by square cells of cellSize.
func (i *Index) Clusters(r geometry.Rect, cellSize float64) []PlaceCluster {
	defer instrumentQueryLatency(i.Name, queryKindClusters, time.Now())

	i.mutex.RLock()
	defer i.mutex.RUnlock()

	return i.tree.Clusters(r, cellSize)
}

// All returns every place of the index.
func (i *Index) All() []PlaceNode {
	return i.Query(i.Box().Root())
}

// IndexStats describes the shape of an index tree.
type IndexStats struct {
	Nodes    int `json:"nodes"`
	Dropped  int `json:"dropped"`
	Leaves   int `json:"leaves"`
	Branches int `json:"branches"`
	Depth    int `json:"depth"`
}

func (i *Index) Stats() IndexStats {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	stats := IndexStats{
		Nodes:   i.count,
		Dropped: i.dropped,
	}

	i.tree.Walk(func(t *placeTree) bool {
		if t.IsLeaf() {
			stats.Leaves++
		} else {
			stats.Branches++
		}
		stats.Depth = max(stats.Depth, t.Depth())
		return true
	})
	return stats
}
