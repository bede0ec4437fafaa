package quadtree

// IndexedNode pairs a coordinate with the payload stored at it.
type IndexedNode[P any, C Coordinate[C]] struct {
	coordinate C
	payload    P
}

func NewIndexedNode[P any, C Coordinate[C]](coordinate C, payload P) IndexedNode[P, C] {
	return IndexedNode[P, C]{
		coordinate: coordinate,
		payload:    payload,
	}
}

// Coordinate returns the location of the node.
func (n IndexedNode[P, C]) Coordinate() C {
	return n.coordinate
}

// Payload returns the data associated with the node.
func (n IndexedNode[P, C]) Payload() P {
	return n.payload
}
