// Package quadtree implements a generic point quad-tree.
//
// The tree is independent of any concrete geometry: it works over any
// rectangle type implementing Rect and any point type implementing
// Coordinate. Leaves hold up to a bucket capacity of nodes and are split into
// four quadrants when they overflow.
//
// A QuadTree is not safe for concurrent mutation. Queries may run concurrently
// with each other as long as no insertion is in progress.
package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// The depth after which leaves stop splitting and grow past their bucket
	// capacity. Without it, more than bucket capacity nodes sharing a
	// coordinate would split forever.
	DefaultMaxDepth = 32

	ErrTypeInvalidBucketCapacity = "invalid_bucket_capacity"
	ErrTypeInvalidMaxDepth       = "invalid_max_depth"

	// Upper bound of the node slice preallocated for a new leaf.
	leafCapacityHint = 16
)

// Option configures a QuadTree.
type Option func(*config)

type config struct {
	maxDepth int
}

// WithMaxDepth sets the maximum depth of the tree. The root is at depth 0.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// QuadTree is either a leaf holding nodes directly or a branch owning four
// subtrees that partition its bounding box.
type QuadTree[P any, R Rect[R, C], C Coordinate[C]] struct {
	box            BoundingBox[R, C]
	bucketCapacity int
	maxDepth       int
	depth          int

	// Set only on leaves.
	nodes []IndexedNode[P, C]

	// Set only on branches.
	children *Quadrants[*QuadTree[P, R, C]]
}

// New returns an empty tree covering box. bucketCapacity must be positive.
func New[P any, R Rect[R, C], C Coordinate[C]](box BoundingBox[R, C], bucketCapacity int, options ...Option) (*QuadTree[P, R, C], error) {
	if bucketCapacity <= 0 {
		return nil, errors.New("bucket capacity must be positive").
			WithType(ErrTypeInvalidBucketCapacity).
			WithTag("bucket_capacity", bucketCapacity)
	}

	conf := config{maxDepth: DefaultMaxDepth}
	for _, o := range options {
		o(&conf)
	}
	if conf.maxDepth < 0 {
		return nil, errors.New("max depth must not be negative").
			WithType(ErrTypeInvalidMaxDepth).
			WithTag("max_depth", conf.maxDepth)
	}

	return newLeaf[P](box, bucketCapacity, conf.maxDepth, 0), nil
}

func newLeaf[P any, R Rect[R, C], C Coordinate[C]](box BoundingBox[R, C], bucketCapacity, maxDepth, depth int) *QuadTree[P, R, C] {
	return &QuadTree[P, R, C]{
		box:            box,
		bucketCapacity: bucketCapacity,
		maxDepth:       maxDepth,
		depth:          depth,
		nodes:          make([]IndexedNode[P, C], 0, min(bucketCapacity, leafCapacityHint)),
	}
}

// Box returns the bounding box covered by the tree.
func (t *QuadTree[P, R, C]) Box() BoundingBox[R, C] {
	return t.box
}

func (t *QuadTree[P, R, C]) BucketCapacity() int {
	return t.bucketCapacity
}

// Depth returns the depth of the tree relative to the root it was split from.
func (t *QuadTree[P, R, C]) Depth() int {
	return t.depth
}

func (t *QuadTree[P, R, C]) IsLeaf() bool {
	return t.children == nil
}

// Children returns the four subtrees of a branch. ok is false on a leaf.
func (t *QuadTree[P, R, C]) Children() (children Quadrants[*QuadTree[P, R, C]], ok bool) {
	if t.children == nil {
		return children, false
	}
	return *t.children, true
}

// LeafNodes returns the nodes held directly by a leaf, in insertion order.
// It returns nil on a branch.
func (t *QuadTree[P, R, C]) LeafNodes() []IndexedNode[P, C] {
	return t.nodes
}

// Len returns the number of nodes stored in the tree.
func (t *QuadTree[P, R, C]) Len() int {
	if t.children == nil {
		return len(t.nodes)
	}

	var n int
	for c := range t.children.All() {
		n += c.Len()
	}
	return n
}

// Insert stores node in the tree and reports whether it was stored.
//
// A node outside the tree's box is discarded. When a full leaf splits, a node
// that none of the four new quadrants contains is discarded as well; this can
// only happen when floating point rounding leaves a gap at a quadrant edge.
func (t *QuadTree[P, R, C]) Insert(node IndexedNode[P, C]) bool {
	if !t.box.ContainsCoordinate(node.coordinate) {
		return false
	}
	return t.insert(node)
}

func (t *QuadTree[P, R, C]) insert(node IndexedNode[P, C]) bool {
	if t.children != nil {
		child, ok := t.childContaining(node.coordinate)
		if !ok {
			return false
		}
		return child.insert(node)
	}

	if len(t.nodes) < t.bucketCapacity || t.depth >= t.maxDepth {
		t.nodes = append(t.nodes, node)
		return true
	}

	t.split()
	return t.insert(node)
}

// split turns a full leaf into a branch and moves its nodes to the new
// quadrants.
func (t *QuadTree[P, R, C]) split() {
	children := MapQuadrants(t.box.Quadrants(), func(box BoundingBox[R, C]) *QuadTree[P, R, C] {
		return newLeaf[P](box, t.bucketCapacity, t.maxDepth, t.depth+1)
	})

	nodes := t.nodes
	t.nodes = nil
	t.children = &children

	for _, n := range nodes {
		t.insert(n)
	}
}

func (t *QuadTree[P, R, C]) childContaining(c C) (*QuadTree[P, R, C], bool) {
	for child := range t.children.All() {
		if child.box.ContainsCoordinate(c) {
			return child, true
		}
	}
	return nil, false
}

// Nodes returns the nodes whose coordinate lies in query. Subtrees whose box
// does not intersect query are skipped. The order of the result is
// unspecified.
func (t *QuadTree[P, R, C]) Nodes(query R) []IndexedNode[P, C] {
	var nodes []IndexedNode[P, C]
	t.appendNodes(NewBoundingBox[R, C](query), &nodes)
	return nodes
}

func (t *QuadTree[P, R, C]) appendNodes(query BoundingBox[R, C], nodes *[]IndexedNode[P, C]) {
	if !t.box.Intersects(query) {
		return
	}

	if t.children != nil {
		for c := range t.children.All() {
			c.appendNodes(query, nodes)
		}
		return
	}

	for _, n := range t.nodes {
		if query.ContainsCoordinate(n.coordinate) {
			*nodes = append(*nodes, n)
		}
	}
}

// Walk calls fn for the tree and each of its subtrees, parents before
// children. Walking stops when fn returns false.
func (t *QuadTree[P, R, C]) Walk(fn func(*QuadTree[P, R, C]) bool) {
	t.walk(fn)
}

func (t *QuadTree[P, R, C]) walk(fn func(*QuadTree[P, R, C]) bool) bool {
	if !fn(t) {
		return false
	}

	if t.children == nil {
		return true
	}

	for c := range t.children.All() {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}
