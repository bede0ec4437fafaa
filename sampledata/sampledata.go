// Package sampledata generates random places for demos and benchmarks.
package sampledata

import (
	"context"
	"math/rand/v2"
	"strconv"

	"github.com/aukilabs/bento/geometry"
	"github.com/aukilabs/bento/models"
)

const (
	bostonLongitude = -71.0597700
	bostonLatitude  = 42.3584300
	bostonSpread    = 0.5

	// SampleIndexName is the name of the index created by Seed.
	SampleIndexName = "sample"

	SampleBucketCapacity = 5
	SampleSize           = 5000
)

// BostonBox returns the box spanning half a degree around Boston, projected
// with geometry.FromLonLat.
func BostonBox() geometry.Box {
	southWest := geometry.FromLonLat(bostonLongitude-bostonSpread, bostonLatitude-bostonSpread)
	northEast := geometry.FromLonLat(bostonLongitude+bostonSpread, bostonLatitude+bostonSpread)
	return geometry.NewBox(southWest.X(), southWest.Y(), northEast.X(), northEast.Y())
}

// Points returns n points picked uniformly in r. Points lie in the half-open
// extent of r.
func Points(r geometry.Rect, n int, rng *rand.Rand) []geometry.Point {
	points := make([]geometry.Point, n)
	for i := range points {
		points[i] = geometry.NewPoint(
			r.MinX()+rng.Float64()*r.Width(),
			r.MinY()+rng.Float64()*r.Height(),
		)
	}
	return points
}

// BostonPlaces returns n places picked uniformly in longitude and latitude
// around Boston.
func BostonPlaces(n int, rng *rand.Rand) []models.NodeInput {
	nodes := make([]models.NodeInput, n)
	for i := range nodes {
		lon := bostonLongitude - bostonSpread + rng.Float64()*2*bostonSpread
		lat := bostonLatitude - bostonSpread + rng.Float64()*2*bostonSpread
		p := geometry.FromLonLat(lon, lat)

		nodes[i] = models.NodeInput{
			X:     p.X(),
			Y:     p.Y(),
			Label: "place-" + strconv.Itoa(i+1),
			Data: map[string]any{
				"lon": lon,
				"lat": lat,
			},
		}
	}
	return nodes
}

// Seed creates the sample index and fills it with n random places around
// Boston.
func Seed(ctx context.Context, store *models.IndexStore, n int, maxDepth int, rng *rand.Rand) (*models.Index, models.InsertResult, error) {
	index, err := store.Create(ctx, models.IndexConfig{
		Name:           SampleIndexName,
		Box:            BostonBox(),
		BucketCapacity: SampleBucketCapacity,
		MaxDepth:       maxDepth,
	})
	if err != nil {
		return nil, models.InsertResult{}, err
	}

	res := models.InsertNodes(index, BostonPlaces(n, rng))
	return index, res, nil
}
