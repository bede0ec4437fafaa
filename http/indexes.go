package http

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/aukilabs/bento/featureflag"
	"github.com/aukilabs/bento/geometry"
	"github.com/aukilabs/bento/models"
	"github.com/aukilabs/bento/quadtree"
	"github.com/aukilabs/bento/snapshot"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/hagall-common/http"
	hlogs "github.com/aukilabs/hagall-common/logs"
	"github.com/segmentio/encoding/json"
)

const (
	indexesPath = "/indexes"

	// MaxBodySize is the maximum size of a request body.
	MaxBodySize = 32 << 20
)

type createIndexRequest struct {
	Name           string          `json:"name"`
	Bounds         models.RectView `json:"bounds"`
	BucketCapacity int             `json:"bucket_capacity,omitempty"`
	MaxDepth       *int            `json:"max_depth,omitempty"`
}

type insertNodesRequest struct {
	Nodes []models.NodeInput `json:"nodes"`
}

type errorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// IndexAPI serves the REST endpoints to manage indexes and their places.
type IndexAPI struct {
	Indexes *models.IndexStore

	// The bucket capacity of indexes created without an explicit one.
	DefaultBucketCapacity int

	// The max depth of indexes created without an explicit one.
	DefaultMaxDepth int

	FeatureFlags featureflag.FeatureFlag
}

// Register registers the index endpoints on mux.
func (a *IndexAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+indexesPath, a.HandleCreateIndex)
	mux.HandleFunc("GET "+indexesPath, a.HandleListIndexes)
	mux.HandleFunc("GET "+indexesPath+"/{index}", a.HandleGetIndex)
	mux.HandleFunc("DELETE "+indexesPath+"/{index}", a.HandleDeleteIndex)
	mux.HandleFunc("POST "+indexesPath+"/{index}/nodes", a.HandleInsertNodes)
	mux.HandleFunc("GET "+indexesPath+"/{index}/nodes", a.HandleQueryNodes)

	a.FeatureFlags.IfNotSet(featureflag.FlagDisableClusterEndpoint, func() {
		mux.HandleFunc("GET "+indexesPath+"/{index}/clusters", a.HandleClusters)
	})

	a.FeatureFlags.IfNotSet(featureflag.FlagDisableSnapshotEndpoint, func() {
		mux.HandleFunc("GET "+indexesPath+"/{index}/snapshot", a.HandleGetSnapshot)
		mux.HandleFunc("PUT "+indexesPath+"/{index}/snapshot", a.HandlePutSnapshot)
	})
}

func (a *IndexAPI) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	var req createIndexRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conf := models.IndexConfig{
		Name:           req.Name,
		Box:            geometry.NewBox(req.Bounds.Min.X, req.Bounds.Min.Y, req.Bounds.Max.X, req.Bounds.Max.Y),
		BucketCapacity: req.BucketCapacity,
		MaxDepth:       a.DefaultMaxDepth,
	}
	if conf.BucketCapacity == 0 {
		conf.BucketCapacity = a.DefaultBucketCapacity
	}
	if req.MaxDepth != nil {
		conf.MaxDepth = *req.MaxDepth
	}

	index, err := a.Indexes.Create(r.Context(), conf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.NewIndexView(index))
}

func (a *IndexAPI) HandleListIndexes(w http.ResponseWriter, r *http.Request) {
	indexes := a.Indexes.List()

	views := make([]models.IndexView, len(indexes))
	for i, index := range indexes {
		views[i] = models.NewIndexView(index)
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *IndexAPI) HandleGetIndex(w http.ResponseWriter, r *http.Request) {
	index, ok := a.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.NewIndexView(index))
}

func (a *IndexAPI) HandleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	index, ok := a.lookup(w, r)
	if !ok {
		return
	}

	a.Indexes.Remove(r.Context(), index)
	w.WriteHeader(http.StatusNoContent)
}

func (a *IndexAPI) HandleInsertNodes(w http.ResponseWriter, r *http.Request) {
	index, ok := a.lookup(w, r)
	if !ok {
		return
	}

	var req insertNodesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res := models.InsertNodes(index, req.Nodes)
	if res.Dropped != 0 {
		logs.WithTag("index", index.Name).
			WithTag("dropped", res.Dropped).
			Debug(errors.New("places dropped").WithType(models.ErrTypeNodeDropped))
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *IndexAPI) HandleQueryNodes(w http.ResponseWriter, r *http.Request) {
	index, ok := a.lookup(w, r)
	if !ok {
		return
	}

	rect, err := parseRect(r, index.Box())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewNodeViews(index.Query(rect)))
}

func (a *IndexAPI) HandleClusters(w http.ResponseWriter, r *http.Request) {
	index, ok := a.lookup(w, r)
	if !ok {
		return
	}

	rect, err := parseRect(r, index.Box())
	if err != nil {
		writeError(w, r, err)
		return
	}

	cellSize, err := parseFloat(r, "cell_size")
	if err == nil && cellSize <= 0 {
		err = errors.New("cell size must be positive").
			WithType(ErrTypeInvalidParameter).
			WithTag("cell_size", cellSize)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.NewClusterViews(index.Clusters(rect, cellSize)))
}

func (a *IndexAPI) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	index, ok := a.lookup(w, r)
	if !ok {
		return
	}

	snap, err := index.Snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", snapshot.ContentType)
	w.WriteHeader(http.StatusOK)
	if err := snapshot.Write(w, snap); err != nil {
		logs.WithTag("index", index.Name).
			Warn(errors.New("writing snapshot failed").Wrap(err))
	}
}

// HandlePutSnapshot restores the snapshot in the request body as a new index
// named after the path.
func (a *IndexAPI) HandlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		httpcmn.BadRequest(w, httpcmn.ErrBadRequest)
		return
	}

	snap, err := snapshot.Read(bytes.NewReader(b))
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap.Name = r.PathValue("index")

	index, err := a.Indexes.Restore(r.Context(), snap)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.NewIndexView(index))
}

func (a *IndexAPI) lookup(w http.ResponseWriter, r *http.Request) (*models.Index, bool) {
	index, err := a.Indexes.Lookup(r.PathValue("index"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return index, true
}

const ErrTypeInvalidParameter = "invalid_parameter"

// parseRect reads the query rectangle from the min_x, min_y, max_x and
// max_y query parameters. Missing parameters default to the matching side
// of box.
func parseRect(r *http.Request, box geometry.Box) (geometry.Rect, error) {
	root := box.Root()
	minX, minY, maxX, maxY := root.MinX(), root.MinY(), root.MaxX(), root.MaxY()

	params := []struct {
		name  string
		value *float64
	}{
		{name: "min_x", value: &minX},
		{name: "min_y", value: &minY},
		{name: "max_x", value: &maxX},
		{name: "max_y", value: &maxY},
	}

	for _, p := range params {
		if !r.URL.Query().Has(p.name) {
			continue
		}

		v, err := parseFloat(r, p.name)
		if err != nil {
			return geometry.Rect{}, err
		}
		*p.value = v
	}

	return geometry.NewRect(minX, minY, maxX, maxY), nil
}

func parseFloat(r *http.Request, name string) (float64, error) {
	s := r.URL.Query().Get(name)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("invalid query parameter").
			WithType(ErrTypeInvalidParameter).
			WithTag("name", name).
			WithTag("value", s).
			Wrap(err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("query parameter is not finite").
			WithType(ErrTypeInvalidParameter).
			WithTag("name", name).
			WithTag("value", s)
	}
	return v, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		httpcmn.BadRequest(w, httpcmn.ErrBadRequest)
		return false
	}

	if err := json.Unmarshal(b, v); err != nil {
		logs.Debug(errors.New("decoding request body failed").Wrap(err))
		httpcmn.BadRequest(w, httpcmn.ErrBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		httpcmn.InternalServerError(w, errors.New("encoding response failed").Wrap(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(b)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var statusCode int

	switch errors.Type(err) {
	case models.ErrTypeIndexNotFound:
		statusCode = http.StatusNotFound

	case models.ErrTypeIndexExists:
		statusCode = http.StatusConflict

	case models.ErrTypeInvalidIndex,
		quadtree.ErrTypeInvalidBucketCapacity,
		quadtree.ErrTypeInvalidMaxDepth,
		snapshot.ErrTypeInvalidSnapshot,
		ErrTypeInvalidParameter:
		statusCode = http.StatusBadRequest

	default:
		hlogs.WithClientID(r.Header.Get(httpcmn.HeaderPosemeshClientID)).Error(err)
		httpcmn.InternalServerError(w, err)
		return
	}

	logs.WithTag("method", r.Method).
		WithTag("path", r.URL.Path).
		Debug(err)

	writeJSON(w, statusCode, errorResponse{
		Type:    errors.Type(err),
		Message: err.Error(),
	})
}
