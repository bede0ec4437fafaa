package quadtree

import "math"

// BoundingBox wraps a normalized rectangle and provides the geometric queries
// the tree relies on.
type BoundingBox[R Rect[R, C], C Coordinate[C]] struct {
	root R
}

// NewBoundingBox returns a bounding box over root.
func NewBoundingBox[R Rect[R, C], C Coordinate[C]](root R) BoundingBox[R, C] {
	return BoundingBox[R, C]{root: root}
}

// NewBoundingBoxFromCorners returns the bounding box spanning two opposite
// corners. The corners may be given in any order.
func NewBoundingBoxFromCorners[R Rect[R, C], C Coordinate[C]](a, b C) BoundingBox[R, C] {
	minX := math.Min(a.X(), b.X())
	minY := math.Min(a.Y(), b.Y())
	maxX := math.Max(a.X(), b.X())
	maxY := math.Max(a.Y(), b.Y())

	var zeroRect R
	var zeroCoord C
	return BoundingBox[R, C]{
		root: zeroRect.WithOrigin(zeroCoord.WithXY(minX, minY), maxX-minX, maxY-minY),
	}
}

func (b BoundingBox[R, C]) Root() R {
	return b.root
}

// MinCoordinate returns the min corner of the box.
func (b BoundingBox[R, C]) MinCoordinate() C {
	var zero C
	return zero.WithXY(b.root.MinX(), b.root.MinY())
}

// MaxCoordinate returns the max corner of the box.
func (b BoundingBox[R, C]) MaxCoordinate() C {
	var zero C
	return zero.WithXY(b.root.MaxX(), b.root.MaxY())
}

func (b BoundingBox[R, C]) Width() float64 {
	return b.root.MaxX() - b.root.MinX()
}

func (b BoundingBox[R, C]) Height() float64 {
	return b.root.MaxY() - b.root.MinY()
}

// ContainsCoordinate reports whether c lies in the box. The lower bounds are
// inclusive and the upper bounds exclusive, so a coordinate on an edge shared
// by two adjacent boxes belongs to exactly one of them.
func (b BoundingBox[R, C]) ContainsCoordinate(c C) bool {
	minX := b.root.MinX()
	minY := b.root.MinY()

	return c.X() >= minX &&
		c.X() < minX+b.Width() &&
		c.Y() >= minY &&
		c.Y() < minY+b.Height()
}

// Intersects reports whether the interiors of both boxes overlap. Boxes that
// only touch do not intersect.
func (b BoundingBox[R, C]) Intersects(other BoundingBox[R, C]) bool {
	return b.root.MinX() < other.root.MaxX() && b.root.MaxX() > other.root.MinX() &&
		b.root.MinY() < other.root.MaxY() && b.root.MaxY() > other.root.MinY()
}

// Quadrants splits the box into four equal boxes. North is the min Y half and
// west the min X half.
func (b BoundingBox[R, C]) Quadrants() Quadrants[BoundingBox[R, C]] {
	north, south := b.root.Divide(0.5, MinYEdge)
	northWest, northEast := north.Divide(0.5, MinXEdge)
	southWest, southEast := south.Divide(0.5, MinXEdge)

	rects := Quadrants[R]{
		NorthWest: northWest,
		NorthEast: northEast,
		SouthWest: southWest,
		SouthEast: southEast,
	}
	return MapQuadrants(rects, NewBoundingBox[R, C])
}

// Union returns the smallest rectangle enclosing both boxes.
func (b BoundingBox[R, C]) Union(other BoundingBox[R, C]) R {
	return b.root.Union(other.root)
}
