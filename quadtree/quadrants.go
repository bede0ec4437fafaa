package quadtree

import "iter"

// Quadrants groups four values laid out as the quadrants of a rectangle. It
// describes both the four boxes of a split and the four subtrees of a branch.
type Quadrants[T any] struct {
	NorthWest T
	NorthEast T
	SouthWest T
	SouthEast T
}

// MapQuadrants applies f to each quadrant and returns the results grouped the
// same way.
func MapQuadrants[T, U any](q Quadrants[T], f func(T) U) Quadrants[U] {
	return Quadrants[U]{
		NorthWest: f(q.NorthWest),
		NorthEast: f(q.NorthEast),
		SouthWest: f(q.SouthWest),
		SouthEast: f(q.SouthEast),
	}
}

// All iterates over the quadrants in NW, NE, SW, SE order.
func (q Quadrants[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range [4]T{q.NorthWest, q.NorthEast, q.SouthWest, q.SouthEast} {
			if !yield(v) {
				return
			}
		}
	}
}
