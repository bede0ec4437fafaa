package quadtree_test

import (
	"testing"

	"github.com/aukilabs/bento/geometry"
	"github.com/aukilabs/bento/quadtree"
	"github.com/stretchr/testify/require"
)

func TestNewBoundingBoxFromCorners(t *testing.T) {
	t.Run("corners in order", func(t *testing.T) {
		box := geometry.NewBox(0, 0, 10, 20)
		require.Equal(t, geometry.NewPoint(0, 0), box.MinCoordinate())
		require.Equal(t, geometry.NewPoint(10, 20), box.MaxCoordinate())
		require.Equal(t, float64(10), box.Width())
		require.Equal(t, float64(20), box.Height())
	})

	t.Run("corners are normalized", func(t *testing.T) {
		box := quadtree.NewBoundingBoxFromCorners[geometry.Rect](
			geometry.NewPoint(10, -5),
			geometry.NewPoint(-10, 5),
		)
		require.Equal(t, geometry.NewPoint(-10, -5), box.MinCoordinate())
		require.Equal(t, geometry.NewPoint(10, 5), box.MaxCoordinate())
		require.LessOrEqual(t, box.Root().MinX(), box.Root().MaxX())
		require.LessOrEqual(t, box.Root().MinY(), box.Root().MaxY())
	})

	t.Run("box from rect", func(t *testing.T) {
		rect := geometry.NewRect(1, 2, 3, 4)
		box := quadtree.NewBoundingBox[geometry.Rect, geometry.Point](rect)
		require.Equal(t, rect, box.Root())
	})
}

func TestBoundingBoxContainsCoordinate(t *testing.T) {
	x0, y0, w, h := 3.0, 7.0, 10.0, 4.0
	box := geometry.NewBox(x0, y0, x0+w, y0+h)

	require.True(t, box.ContainsCoordinate(geometry.NewPoint(x0, y0)))
	require.True(t, box.ContainsCoordinate(geometry.NewPoint(x0+w/2, y0+h/2)))
	require.False(t, box.ContainsCoordinate(geometry.NewPoint(x0+w, y0)))
	require.False(t, box.ContainsCoordinate(geometry.NewPoint(x0, y0+h)))
	require.False(t, box.ContainsCoordinate(geometry.NewPoint(x0+w, y0+h)))
	require.False(t, box.ContainsCoordinate(geometry.NewPoint(x0-1, y0)))
	require.False(t, box.ContainsCoordinate(geometry.NewPoint(x0, y0-1)))
}

func TestBoundingBoxIntersects(t *testing.T) {
	box := geometry.NewBox(0, 0, 10, 10)

	t.Run("overlapping boxes intersect", func(t *testing.T) {
		other := geometry.NewBox(5, 5, 15, 15)
		require.True(t, box.Intersects(other))
		require.True(t, other.Intersects(box))
	})

	t.Run("contained box intersects", func(t *testing.T) {
		require.True(t, box.Intersects(geometry.NewBox(2, 2, 3, 3)))
	})

	t.Run("touching boxes do not intersect", func(t *testing.T) {
		require.False(t, box.Intersects(geometry.NewBox(10, 0, 20, 10)))
		require.False(t, box.Intersects(geometry.NewBox(0, 10, 10, 20)))
	})

	t.Run("disjoint boxes do not intersect", func(t *testing.T) {
		require.False(t, box.Intersects(geometry.NewBox(20, 20, 30, 30)))
	})
}

func TestBoundingBoxQuadrants(t *testing.T) {
	box := geometry.NewBox(0, 0, 10, 10)
	q := box.Quadrants()

	require.Equal(t, geometry.NewRect(0, 0, 5, 5), q.NorthWest.Root())
	require.Equal(t, geometry.NewRect(5, 0, 10, 5), q.NorthEast.Root())
	require.Equal(t, geometry.NewRect(0, 5, 5, 10), q.SouthWest.Root())
	require.Equal(t, geometry.NewRect(5, 5, 10, 10), q.SouthEast.Root())

	t.Run("quadrants cover the box", func(t *testing.T) {
		union := q.NorthWest.Union(q.NorthEast).
			Union(q.SouthWest.Root()).
			Union(q.SouthEast.Root())
		require.Equal(t, box.Root(), union)
	})

	t.Run("each point belongs to exactly one quadrant", func(t *testing.T) {
		points := []geometry.Point{
			geometry.NewPoint(0, 0),
			geometry.NewPoint(5, 5),
			geometry.NewPoint(5, 0),
			geometry.NewPoint(0, 5),
			geometry.NewPoint(5, 9.99),
			geometry.NewPoint(9.99, 5),
			geometry.NewPoint(2.5, 7.5),
			geometry.NewPoint(9.99, 9.99),
		}

		for _, p := range points {
			var count int
			for quadrant := range q.All() {
				if quadrant.ContainsCoordinate(p) {
					count++
				}
			}
			require.Equal(t, 1, count, "point %v", p)
		}
	})

	t.Run("quadrants have equal area", func(t *testing.T) {
		for quadrant := range q.All() {
			require.Equal(t, float64(25), quadrant.Width()*quadrant.Height())
		}
	})
}

func TestBoundingBoxUnion(t *testing.T) {
	a := geometry.NewBox(0, 0, 1, 1)
	b := geometry.NewBox(5, -2, 6, 3)

	require.Equal(t, geometry.NewRect(0, -2, 6, 3), a.Union(b))
	require.Equal(t, geometry.NewRect(0, 0, 1, 1), a.Root())
}
