package quadtree

import (
	"cmp"
	"math"
	"slices"
)

// Cluster is a group of nodes falling in the same cell of a clustering grid.
type Cluster[P any, R Rect[R, C], C Coordinate[C]] struct {
	nodes []IndexedNode[P, C]
}

func (c Cluster[P, R, C]) Nodes() []IndexedNode[P, C] {
	return c.nodes
}

// IsSingle reports whether the cluster holds exactly one node.
func (c Cluster[P, R, C]) IsSingle() bool {
	return len(c.nodes) == 1
}

// Origin returns the mean coordinate of the clustered nodes. An empty cluster
// returns the zero coordinate.
func (c Cluster[P, R, C]) Origin() C {
	var zero C
	if len(c.nodes) == 0 {
		return zero
	}

	var sumX, sumY float64
	for _, n := range c.nodes {
		sumX += n.coordinate.X()
		sumY += n.coordinate.Y()
	}

	count := float64(len(c.nodes))
	return zero.WithXY(sumX/count, sumY/count)
}

// Bounds returns the smallest rectangle enclosing every clustered node. An
// empty cluster returns the zero rectangle.
func (c Cluster[P, R, C]) Bounds() R {
	var zero R
	if len(c.nodes) == 0 {
		return zero
	}

	bounds := zero.WithOrigin(c.nodes[0].coordinate, 0, 0)
	for _, n := range c.nodes[1:] {
		bounds = bounds.Union(zero.WithOrigin(n.coordinate, 0, 0))
	}
	return bounds
}

type cellIndex struct {
	row int
	col int
}

// Clusters tiles query with square cells of cellSize, starting at its min
// corner, and groups the nodes of each non-empty cell. Clusters are returned
// row by row. A non-positive cellSize returns nil.
func (t *QuadTree[P, R, C]) Clusters(query R, cellSize float64) []Cluster[P, R, C] {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		return nil
	}

	minX := query.MinX()
	minY := query.MinY()

	cells := make(map[cellIndex][]IndexedNode[P, C])
	for _, n := range t.Nodes(query) {
		idx := cellIndex{
			row: int(math.Floor((n.coordinate.Y() - minY) / cellSize)),
			col: int(math.Floor((n.coordinate.X() - minX) / cellSize)),
		}
		cells[idx] = append(cells[idx], n)
	}

	indexes := make([]cellIndex, 0, len(cells))
	for idx := range cells {
		indexes = append(indexes, idx)
	}
	slices.SortFunc(indexes, func(a, b cellIndex) int {
		if c := cmp.Compare(a.row, b.row); c != 0 {
			return c
		}
		return cmp.Compare(a.col, b.col)
	})

	clusters := make([]Cluster[P, R, C], len(indexes))
	for i, idx := range indexes {
		clusters[i] = Cluster[P, R, C]{nodes: cells[idx]}
	}
	return clusters
}
