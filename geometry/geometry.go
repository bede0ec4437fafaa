// Package geometry provides planar Point and Rect types, built on orb, that
// satisfy the quadtree capabilities.
package geometry

import (
	"math"

	"github.com/aukilabs/bento/quadtree"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Point is a planar coordinate.
type Point orb.Point

func NewPoint(x, y float64) Point {
	return Point{x, y}
}

// FromLonLat projects a WGS84 longitude/latitude onto the Web Mercator plane.
// Coordinates are in meters.
func FromLonLat(lon, lat float64) Point {
	return Point(project.WGS84.ToMercator(orb.Point{lon, lat}))
}

// LonLat returns the WGS84 longitude and latitude of a point projected with
// FromLonLat.
func (p Point) LonLat() (lon, lat float64) {
	ll := project.Mercator.ToWGS84(orb.Point(p))
	return ll.Lon(), ll.Lat()
}

func (p Point) X() float64 {
	return p[0]
}

func (p Point) Y() float64 {
	return p[1]
}

func (p Point) WithXY(x, y float64) Point {
	return Point{x, y}
}

func (p Point) Orb() orb.Point {
	return orb.Point(p)
}

// Rect is an axis aligned rectangle.
type Rect orb.Bound

// NewRect returns the rectangle spanning two opposite corners given in any
// order.
func NewRect(x1, y1, x2, y2 float64) Rect {
	return Rect(orb.MultiPoint{orb.Point{x1, y1}, orb.Point{x2, y2}}.Bound())
}

func (r Rect) MinX() float64 {
	return r.Min[0]
}

func (r Rect) MinY() float64 {
	return r.Min[1]
}

func (r Rect) MaxX() float64 {
	return r.Max[0]
}

func (r Rect) MaxY() float64 {
	return r.Max[1]
}

func (r Rect) Width() float64 {
	return r.Max[0] - r.Min[0]
}

func (r Rect) Height() float64 {
	return r.Max[1] - r.Min[1]
}

// ContainsCoordinate reports whether c is in the rectangle, edges included.
func (r Rect) ContainsCoordinate(c Point) bool {
	return orb.Bound(r).Contains(orb.Point(c))
}

// Divide splits the rectangle at percent of its extent along the axis of
// edge. The slice is the part touching edge.
func (r Rect) Divide(percent float64, edge quadtree.Edge) (slice Rect, remainder Rect) {
	percent = math.Max(0, math.Min(1, percent))

	switch edge {
	case quadtree.MinXEdge:
		at := r.Min[0] + r.Width()*percent
		return r.withX(r.Min[0], at), r.withX(at, r.Max[0])

	case quadtree.MaxXEdge:
		at := r.Max[0] - r.Width()*percent
		return r.withX(at, r.Max[0]), r.withX(r.Min[0], at)

	case quadtree.MinYEdge:
		at := r.Min[1] + r.Height()*percent
		return r.withY(r.Min[1], at), r.withY(at, r.Max[1])

	case quadtree.MaxYEdge:
		at := r.Max[1] - r.Height()*percent
		return r.withY(at, r.Max[1]), r.withY(r.Min[1], at)

	default:
		return r, Rect{Min: r.Max, Max: r.Max}
	}
}

func (r Rect) withX(minX, maxX float64) Rect {
	return Rect{
		Min: orb.Point{minX, r.Min[1]},
		Max: orb.Point{maxX, r.Max[1]},
	}
}

func (r Rect) withY(minY, maxY float64) Rect {
	return Rect{
		Min: orb.Point{r.Min[0], minY},
		Max: orb.Point{r.Max[0], maxY},
	}
}

func (r Rect) Union(other Rect) Rect {
	return Rect(orb.Bound(r).Union(orb.Bound(other)))
}

func (r Rect) WithOrigin(origin Point, width, height float64) Rect {
	return Rect{
		Min: orb.Point(origin),
		Max: orb.Point{origin[0] + width, origin[1] + height},
	}
}

func (r Rect) Orb() orb.Bound {
	return orb.Bound(r)
}

// Box is a bounding box over planar rectangles.
type Box = quadtree.BoundingBox[Rect, Point]

// NewBox returns the box spanning two opposite corners given in any order.
func NewBox(x1, y1, x2, y2 float64) Box {
	return quadtree.NewBoundingBoxFromCorners[Rect](NewPoint(x1, y1), NewPoint(x2, y2))
}
