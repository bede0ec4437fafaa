package quadtree

// Edge names a side of a rectangle.
type Edge int

const (
	MinXEdge Edge = iota
	MinYEdge
	MaxXEdge
	MaxYEdge
)

func (e Edge) String() string {
	switch e {
	case MinXEdge:
		return "min_x"
	case MinYEdge:
		return "min_y"
	case MaxXEdge:
		return "max_x"
	case MaxYEdge:
		return "max_y"
	default:
		return "unknown"
	}
}

// Coordinate is the capability a 2-D point type must provide to be indexed.
//
// WithXY acts as the constructor: it is called on the zero value of C to build
// new coordinates, and on an existing value to derive a moved copy.
type Coordinate[C any] interface {
	// The horizontal location of the coordinate.
	X() float64

	// The vertical location of the coordinate.
	Y() float64

	// Returns a coordinate located at x, y.
	WithXY(x, y float64) C
}

// Rect is the capability a rectangle type must provide to back a bounding box.
type Rect[R any, C Coordinate[C]] interface {
	MinX() float64
	MinY() float64
	MaxX() float64
	MaxY() float64

	// Reports whether the rectangle contains the given coordinate. Providers
	// are free to use their native semantics; BoundingBox does not rely on it.
	ContainsCoordinate(c C) bool

	// Divides the rectangle at percent of its extent, measured from edge.
	// Returns the slice touching edge and the remainder.
	Divide(percent float64, edge Edge) (slice R, remainder R)

	// Returns the smallest rectangle enclosing both rectangles.
	Union(other R) R

	// Returns a rectangle with origin as its min corner and the given size.
	WithOrigin(origin C, width, height float64) R
}
