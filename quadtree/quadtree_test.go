package quadtree_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aukilabs/bento/geometry"
	"github.com/aukilabs/bento/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

type testTree = quadtree.QuadTree[int, geometry.Rect, geometry.Point]

type testNode = quadtree.IndexedNode[int, geometry.Point]

func newTestTree(t *testing.T, box geometry.Box, bucketCapacity int, options ...quadtree.Option) *testTree {
	tree, err := quadtree.New[int](box, bucketCapacity, options...)
	require.NoError(t, err)
	return tree
}

func node(x, y float64, payload int) testNode {
	return quadtree.NewIndexedNode(geometry.NewPoint(x, y), payload)
}

func payloads(nodes []testNode) []int {
	res := make([]int, len(nodes))
	for i, n := range nodes {
		res[i] = n.Payload()
	}
	return res
}

func countBranches(tree *testTree) int {
	var count int
	tree.Walk(func(t *testTree) bool {
		if !t.IsLeaf() {
			count++
		}
		return true
	})
	return count
}

func TestNew(t *testing.T) {
	box := geometry.NewBox(0, 0, 10, 10)

	t.Run("new tree is an empty leaf", func(t *testing.T) {
		tree := newTestTree(t, box, 4)
		require.True(t, tree.IsLeaf())
		require.Equal(t, 4, tree.BucketCapacity())
		require.Equal(t, 0, tree.Len())
		require.Equal(t, 0, tree.Depth())
		require.Equal(t, box, tree.Box())
	})

	t.Run("non positive bucket capacity is rejected", func(t *testing.T) {
		for _, capacity := range []int{0, -1} {
			tree, err := quadtree.New[int](box, capacity)
			require.Error(t, err)
			require.True(t, errors.IsType(err, quadtree.ErrTypeInvalidBucketCapacity))
			require.Nil(t, tree)
		}
	})

	t.Run("large bucket capacity is accepted", func(t *testing.T) {
		for _, capacity := range []int{1 << 40, math.MaxInt} {
			tree := newTestTree(t, box, capacity)
			require.Equal(t, capacity, tree.BucketCapacity())
			require.True(t, tree.Insert(node(1, 1, 1)))
			require.True(t, tree.Insert(node(2, 2, 2)))
			require.True(t, tree.IsLeaf())
			require.Equal(t, 2, tree.Len())
		}
	})

	t.Run("negative max depth is rejected", func(t *testing.T) {
		_, err := quadtree.New[int](box, 1, quadtree.WithMaxDepth(-1))
		require.Error(t, err)
		require.True(t, errors.IsType(err, quadtree.ErrTypeInvalidMaxDepth))
	})
}

func TestQuadTreeInsert(t *testing.T) {
	box := geometry.NewBox(0, 0, 100, 100)

	t.Run("nodes under capacity stay in the root leaf", func(t *testing.T) {
		tree := newTestTree(t, box, 5)
		for i := 0; i < 5; i++ {
			require.True(t, tree.Insert(node(float64(i*20), float64(i*20), i)))
		}

		require.True(t, tree.IsLeaf())
		require.Equal(t, []int{0, 1, 2, 3, 4}, payloads(tree.LeafNodes()))
		require.ElementsMatch(t, []int{0, 1, 2, 3, 4}, payloads(tree.Nodes(box.Root())))
	})

	t.Run("overflow splits the leaf", func(t *testing.T) {
		tree := newTestTree(t, box, 4)
		tree.Insert(node(10, 10, 1))
		tree.Insert(node(60, 10, 2))
		tree.Insert(node(10, 60, 3))
		tree.Insert(node(60, 60, 4))
		require.True(t, tree.IsLeaf())

		require.True(t, tree.Insert(node(70, 70, 5)))
		require.False(t, tree.IsLeaf())
		require.Nil(t, tree.LeafNodes())
		require.Equal(t, 1, countBranches(tree))

		children, ok := tree.Children()
		require.True(t, ok)
		require.Equal(t, []int{1}, payloads(children.NorthWest.LeafNodes()))
		require.Equal(t, []int{2}, payloads(children.NorthEast.LeafNodes()))
		require.Equal(t, []int{3}, payloads(children.SouthWest.LeafNodes()))
		require.Equal(t, []int{4, 5}, payloads(children.SouthEast.LeafNodes()))
		for c := range children.All() {
			require.Equal(t, 1, c.Depth())
			require.Equal(t, 4, c.BucketCapacity())
		}
	})

	t.Run("overflow inside one quadrant keeps every node", func(t *testing.T) {
		tree := newTestTree(t, box, 4)
		expected := []int{}
		for i := 0; i < 5; i++ {
			require.True(t, tree.Insert(node(float64(1+i*8), float64(2+i*9), i)))
			expected = append(expected, i)
		}

		require.False(t, tree.IsLeaf())
		require.Equal(t, 5, tree.Len())

		nodes := tree.Nodes(box.Root())
		require.Len(t, nodes, 5)
		require.ElementsMatch(t, expected, payloads(nodes))

		children, _ := tree.Children()
		require.Equal(t, 5, children.NorthWest.Len())
		require.Equal(t, 0, children.NorthEast.Len())
		require.Equal(t, 0, children.SouthWest.Len())
		require.Equal(t, 0, children.SouthEast.Len())
	})

	t.Run("out of bounds insertion is a no-op", func(t *testing.T) {
		tree := newTestTree(t, geometry.NewBox(0, 0, 10, 10), 4)
		require.False(t, tree.Insert(node(20, 20, 1)))
		require.False(t, tree.Insert(node(10, 5, 2)))
		require.False(t, tree.Insert(node(-1, 5, 3)))
		require.Empty(t, tree.Nodes(tree.Box().Root()))
		require.Equal(t, 0, tree.Len())
	})

	t.Run("nodes with equal coordinates are distinct", func(t *testing.T) {
		tree := newTestTree(t, box, 4)
		tree.Insert(node(1, 1, 1))
		tree.Insert(node(1, 1, 2))
		require.ElementsMatch(t, []int{1, 2}, payloads(tree.Nodes(box.Root())))
	})

	t.Run("duplicate coordinates stop splitting at max depth", func(t *testing.T) {
		tree := newTestTree(t, box, 2, quadtree.WithMaxDepth(3))
		for i := 0; i < 10; i++ {
			require.True(t, tree.Insert(node(1, 1, i)))
		}

		require.Equal(t, 10, tree.Len())
		require.Len(t, tree.Nodes(box.Root()), 10)

		var maxDepth int
		tree.Walk(func(t *testTree) bool {
			if t.Depth() > maxDepth {
				maxDepth = t.Depth()
			}
			return true
		})
		require.Equal(t, 3, maxDepth)
	})

	t.Run("zero max depth never splits", func(t *testing.T) {
		tree := newTestTree(t, box, 1, quadtree.WithMaxDepth(0))
		tree.Insert(node(1, 1, 1))
		tree.Insert(node(90, 90, 2))
		require.True(t, tree.IsLeaf())
		require.Equal(t, 2, tree.Len())
	})
}

func TestQuadTreeNodes(t *testing.T) {
	box := geometry.NewBox(0, 0, 100, 100)
	tree := newTestTree(t, box, 5)

	rng := rand.New(rand.NewPCG(42, 1024))
	var inserted []testNode
	for i := 0; i < 500; i++ {
		n := node(rng.Float64()*100, rng.Float64()*100, i)
		require.True(t, tree.Insert(n))
		inserted = append(inserted, n)
	}
	require.Equal(t, 500, tree.Len())

	t.Run("query returns the nodes inside the range", func(t *testing.T) {
		var expected []int
		for _, n := range inserted {
			c := n.Coordinate()
			if c.X() >= 0 && c.X() < 50 && c.Y() >= 0 && c.Y() < 50 {
				expected = append(expected, n.Payload())
			}
		}
		require.NotEmpty(t, expected)

		nodes := tree.Nodes(geometry.NewRect(0, 0, 50, 50))
		require.ElementsMatch(t, expected, payloads(nodes))
	})

	t.Run("query over the root box returns every node", func(t *testing.T) {
		require.ElementsMatch(t, payloads(inserted), payloads(tree.Nodes(box.Root())))
	})

	t.Run("query outside the box returns nothing", func(t *testing.T) {
		require.Empty(t, tree.Nodes(geometry.NewRect(200, 200, 300, 300)))
	})

	t.Run("query is idempotent", func(t *testing.T) {
		query := geometry.NewRect(25, 10, 80, 65)
		first := tree.Nodes(query)
		second := tree.Nodes(query)
		require.ElementsMatch(t, payloads(first), payloads(second))
	})

	t.Run("query excludes upper bounds", func(t *testing.T) {
		tree := newTestTree(t, box, 5)
		tree.Insert(node(10, 10, 1))
		tree.Insert(node(20, 10, 2))
		tree.Insert(node(10, 20, 3))

		require.Equal(t, []int{1}, payloads(tree.Nodes(geometry.NewRect(10, 10, 20, 20))))
	})
}

func TestQuadTreeWalk(t *testing.T) {
	box := geometry.NewBox(0, 0, 100, 100)
	tree := newTestTree(t, box, 1)
	tree.Insert(node(10, 10, 1))
	tree.Insert(node(90, 90, 2))

	var visited int
	tree.Walk(func(*testTree) bool {
		visited++
		return true
	})
	require.Equal(t, 5, visited)

	visited = 0
	tree.Walk(func(*testTree) bool {
		visited++
		return visited < 2
	})
	require.Equal(t, 2, visited)
}

func BenchmarkQuadTreeInsert(b *testing.B) {
	box := geometry.NewBox(0, 0, 1000, 1000)
	rng := rand.New(rand.NewPCG(1, 2))

	tree, err := quadtree.New[int](box, 8)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(node(rng.Float64()*1000, rng.Float64()*1000, i))
	}
}

func BenchmarkQuadTreeNodes(b *testing.B) {
	box := geometry.NewBox(0, 0, 1000, 1000)
	rng := rand.New(rand.NewPCG(1, 2))

	tree, err := quadtree.New[int](box, 8)
	require.NoError(b, err)
	for i := 0; i < 100000; i++ {
		tree.Insert(node(rng.Float64()*1000, rng.Float64()*1000, i))
	}
	query := geometry.NewRect(100, 100, 200, 200)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Nodes(query)
	}
}

// gapPoint and gapRect are a minimal geometry whose Divide leaves a band of
// width 2 around the division line that belongs to neither half.
type gapPoint struct {
	x, y float64
}

func (p gapPoint) X() float64 {
	return p.x
}

func (p gapPoint) Y() float64 {
	return p.y
}

func (p gapPoint) WithXY(x, y float64) gapPoint {
	return gapPoint{x: x, y: y}
}

type gapRect struct {
	minX, minY, maxX, maxY float64
}

func (r gapRect) MinX() float64 { return r.minX }
func (r gapRect) MinY() float64 { return r.minY }
func (r gapRect) MaxX() float64 { return r.maxX }
func (r gapRect) MaxY() float64 { return r.maxY }

func (r gapRect) ContainsCoordinate(c gapPoint) bool {
	return c.x >= r.minX && c.x <= r.maxX && c.y >= r.minY && c.y <= r.maxY
}

func (r gapRect) Divide(percent float64, edge quadtree.Edge) (gapRect, gapRect) {
	slice, remainder := r, r

	switch edge {
	case quadtree.MinXEdge:
		mid := r.minX + (r.maxX-r.minX)*percent
		slice.maxX, remainder.minX = mid-1, mid+1
	case quadtree.MaxXEdge:
		mid := r.maxX - (r.maxX-r.minX)*percent
		slice.minX, remainder.maxX = mid+1, mid-1
	case quadtree.MinYEdge:
		mid := r.minY + (r.maxY-r.minY)*percent
		slice.maxY, remainder.minY = mid-1, mid+1
	case quadtree.MaxYEdge:
		mid := r.maxY - (r.maxY-r.minY)*percent
		slice.minY, remainder.maxY = mid+1, mid-1
	}
	return slice, remainder
}

func (r gapRect) Union(o gapRect) gapRect {
	return gapRect{
		minX: min(r.minX, o.minX),
		minY: min(r.minY, o.minY),
		maxX: max(r.maxX, o.maxX),
		maxY: max(r.maxY, o.maxY),
	}
}

func (r gapRect) WithOrigin(origin gapPoint, width, height float64) gapRect {
	return gapRect{
		minX: origin.x,
		minY: origin.y,
		maxX: origin.x + width,
		maxY: origin.y + height,
	}
}

func TestQuadTreeInsertDropsNodesOutsideQuadrants(t *testing.T) {
	root := gapRect{maxX: 100, maxY: 100}
	tree, err := quadtree.New[int](quadtree.NewBoundingBox[gapRect, gapPoint](root), 2)
	require.NoError(t, err)

	gapNode := func(x, y float64, payload int) quadtree.IndexedNode[int, gapPoint] {
		return quadtree.NewIndexedNode(gapPoint{x: x, y: y}, payload)
	}

	require.True(t, tree.Insert(gapNode(10, 10, 1)))
	require.True(t, tree.Insert(gapNode(50, 50, 2)))
	require.Equal(t, 2, tree.Len())

	t.Run("node in the gap is dropped on split", func(t *testing.T) {
		require.True(t, tree.Insert(gapNode(90, 90, 3)))
		require.False(t, tree.IsLeaf())
		require.Equal(t, 2, tree.Len())
	})

	t.Run("node in the gap is dropped on insert", func(t *testing.T) {
		require.False(t, tree.Insert(gapNode(50, 10, 4)))
		require.Equal(t, 2, tree.Len())
	})

	t.Run("other nodes survive", func(t *testing.T) {
		var found []int
		for _, n := range tree.Nodes(root) {
			found = append(found, n.Payload())
		}
		require.ElementsMatch(t, []int{1, 3}, found)
	})
}
