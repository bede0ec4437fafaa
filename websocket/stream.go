package websocket

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/aukilabs/bento/featureflag"
	"github.com/aukilabs/bento/geometry"
	"github.com/aukilabs/bento/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// StreamHandler answers the queries of a client streaming against a single
// index.
type StreamHandler struct {
	// The index served on the stream.
	Index *models.Index

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	FeatureFlags featureflag.FeatureFlag

	conn     *websocket.Conn
	clientID string
}

func (h *StreamHandler) HandleConnect(conn *websocket.Conn) {
	h.conn = conn

	if req := conn.Request(); req != nil {
		h.clientID = req.Header.Get(httpcmn.HeaderPosemeshClientID)
	}
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}
}

func (h *StreamHandler) HandleDisconnect(err error) {
}

func (h *StreamHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	respond.Send(Msg{
		Type:      MsgTypePong,
		RequestID: msg.RequestID,
	})
	return nil
}

func (h *StreamHandler) HandleInsert(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req InsertRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	res := models.InsertNodes(h.Index, req.Nodes)
	return h.respond(respond, MsgTypeInsertResponse, msg.RequestID, res)
}

func (h *StreamHandler) HandleQuery(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req QueryRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	nodes := h.Index.Query(h.rect(req.Bounds))
	return h.respond(respond, MsgTypeQueryResponse, msg.RequestID, models.NewNodeViews(nodes))
}

func (h *StreamHandler) HandleClusters(ctx context.Context, respond ResponseSender, msg Msg) error {
	if h.FeatureFlags.IsSet(featureflag.FlagDisableClusterEndpoint) {
		return errors.New("clustering is disabled").
			WithType(ErrTypeMsgUnsupported).
			WithTag("msg_type", msg.TypeString())
	}

	var req ClustersRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}
	if !(req.CellSize > 0) || math.IsInf(req.CellSize, 0) {
		return errors.New("cell size must be a positive number").
			WithType(ErrTypeMsgInvalid).
			WithTag("cell_size", req.CellSize)
	}

	clusters := h.Index.Clusters(h.rect(req.Bounds), req.CellSize)
	return h.respond(respond, MsgTypeClustersResponse, msg.RequestID, models.NewClusterViews(clusters))
}

func (h *StreamHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		var b []byte
		if err := websocket.Message.Receive(h.conn, &b); err != nil {
			return Msg{}, 0, err
		}

		var msg Msg
		if err := json.Unmarshal(b, &msg); err != nil {
			return Msg{}, len(b), errors.New("decoding message failed").
				WithType(ErrTypeMsgInvalid).
				Wrap(err)
		}
		return msg, len(b), nil
	}
}

func (h *StreamHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		b, err := json.Marshal(msg)
		if err != nil {
			return 0, errors.New("encoding message failed").
				WithTag("msg_type", msg.TypeString()).
				Wrap(err)
		}

		if err := websocket.Message.Send(h.conn, string(b)); err != nil {
			return 0, err
		}
		return len(b), nil
	}
}

func (h *StreamHandler) Close() {
}

func (h *StreamHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *StreamHandler) GetIndex() *models.Index {
	return h.Index
}

func (h *StreamHandler) GetClientID() string {
	return h.clientID
}

func (h *StreamHandler) rect(bounds *models.RectView) geometry.Rect {
	if bounds == nil {
		return h.Index.Box().Root()
	}
	return bounds.Rect()
}

func (h *StreamHandler) respond(respond ResponseSender, t MsgType, requestID uint32, data any) error {
	msg, err := NewMsg(t, requestID, data)
	if err != nil {
		return err
	}

	respond.Send(msg)
	return nil
}

// HandleStream returns an HTTP handler that upgrades requests to a WebSocket
// stream on the index referenced by the "index" path value.
func HandleStream(ctx context.Context, indexes *models.IndexStore, newHandler func(*models.Index) Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := indexes.Lookup(r.PathValue("index"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		websocket.Server{
			Handshake: func(c *websocket.Config, r *http.Request) error {
				return nil
			},
			Handler: func(conn *websocket.Conn) {
				defer conn.Close()

				h := newHandler(index)
				defer h.Close()

				Handle(ctx, conn, h)
			},
		}.ServeHTTP(w, r)
	}
}
