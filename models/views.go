package models

import (
	"time"

	"github.com/aukilabs/bento/geometry"
)

// JSON representations shared by the HTTP and the WebSocket APIs.

type CoordinateView struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewCoordinateView(p geometry.Point) CoordinateView {
	return CoordinateView{X: p.X(), Y: p.Y()}
}

func (c CoordinateView) Point() geometry.Point {
	return geometry.NewPoint(c.X, c.Y)
}

type RectView struct {
	Min CoordinateView `json:"min"`
	Max CoordinateView `json:"max"`
}

func NewRectView(r geometry.Rect) RectView {
	return RectView{
		Min: CoordinateView{X: r.MinX(), Y: r.MinY()},
		Max: CoordinateView{X: r.MaxX(), Y: r.MaxY()},
	}
}

// Rect returns the rectangle spanned by the view corners, normalized.
func (r RectView) Rect() geometry.Rect {
	return geometry.NewRect(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

type NodeInput struct {
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Label string         `json:"label,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type NodeView struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Place Place   `json:"place"`
}

func NewNodeView(n PlaceNode) NodeView {
	return NodeView{
		X:     n.Coordinate().X(),
		Y:     n.Coordinate().Y(),
		Place: n.Payload(),
	}
}

func NewNodeViews(nodes []PlaceNode) []NodeView {
	views := make([]NodeView, len(nodes))
	for i, n := range nodes {
		views[i] = NewNodeView(n)
	}
	return views
}

type ClusterView struct {
	Origin CoordinateView `json:"origin"`
	Bounds RectView       `json:"bounds"`
	Count  int            `json:"count"`
	Nodes  []NodeView     `json:"nodes"`
}

func NewClusterViews(clusters []PlaceCluster) []ClusterView {
	views := make([]ClusterView, len(clusters))
	for i, c := range clusters {
		views[i] = ClusterView{
			Origin: NewCoordinateView(c.Origin()),
			Bounds: NewRectView(c.Bounds()),
			Count:  len(c.Nodes()),
			Nodes:  NewNodeViews(c.Nodes()),
		}
	}
	return views
}

// InsertResult reports the outcome of a batch insertion.
type InsertResult struct {
	Stored  []NodeView `json:"stored"`
	Dropped int        `json:"dropped"`
}

// InsertNodes inserts a batch of nodes in index.
func InsertNodes(index *Index, nodes []NodeInput) InsertResult {
	res := InsertResult{
		Stored: make([]NodeView, 0, len(nodes)),
	}

	for _, n := range nodes {
		c := geometry.NewPoint(n.X, n.Y)
		place, ok := index.Insert(c, n.Label, n.Data)
		if !ok {
			res.Dropped++
			continue
		}

		res.Stored = append(res.Stored, NodeView{X: n.X, Y: n.Y, Place: place})
	}
	return res
}

type IndexView struct {
	ID             uint32     `json:"id"`
	UUID           string     `json:"uuid"`
	Name           string     `json:"name"`
	CreatedAt      time.Time  `json:"created_at"`
	Bounds         RectView   `json:"bounds"`
	BucketCapacity int        `json:"bucket_capacity"`
	MaxDepth       int        `json:"max_depth"`
	Stats          IndexStats `json:"stats"`
}

func NewIndexView(index *Index) IndexView {
	return IndexView{
		ID:             index.ID,
		UUID:           index.UUID,
		Name:           index.Name,
		CreatedAt:      index.CreatedAt,
		Bounds:         NewRectView(index.Box().Root()),
		BucketCapacity: index.BucketCapacity(),
		MaxDepth:       index.MaxDepth(),
		Stats:          index.Stats(),
	}
}
