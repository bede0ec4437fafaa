package websocket

import (
	"github.com/aukilabs/bento/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeMsgInvalid     = "msg_invalid"
	ErrTypeMsgUnsupported = "msg_unsupported"
)

// MsgType identifies the kind of a stream message.
type MsgType string

const (
	MsgTypePing             MsgType = "ping"
	MsgTypePong             MsgType = "pong"
	MsgTypeInsert           MsgType = "insert"
	MsgTypeInsertResponse   MsgType = "insert_response"
	MsgTypeQuery            MsgType = "query"
	MsgTypeQueryResponse    MsgType = "query_response"
	MsgTypeClusters         MsgType = "clusters"
	MsgTypeClustersResponse MsgType = "clusters_response"
	MsgTypeError            MsgType = "error"
	msgTypeUnknown          MsgType = "unknown"
)

// Msg is a JSON message exchanged on an index stream. Responses carry the
// request id of the message they answer.
type Msg struct {
	Type      MsgType         `json:"type"`
	RequestID uint32          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// TypeString returns the message type, suited for logs and metric labels.
func (m Msg) TypeString() string {
	if m.Type == "" {
		return string(msgTypeUnknown)
	}
	return string(m.Type)
}

// DataTo decodes the message data into v.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeMsgInvalid).
			WithTag("msg_type", m.TypeString()).
			Wrap(err)
	}
	return nil
}

// NewMsg creates a message with data encoded in JSON.
func NewMsg(t MsgType, requestID uint32, data any) (Msg, error) {
	msg := Msg{
		Type:      t,
		RequestID: requestID,
	}
	if data == nil {
		return msg, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithTag("msg_type", string(t)).
			Wrap(err)
	}
	msg.Data = b
	return msg, nil
}

// Receiver is a function that reads a message from a connection. It returns
// the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender is a function that writes a message to a connection. It returns the
// number of bytes written.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to be sent to the connected client.
type ResponseSender interface {
	Send(Msg)
}

type InsertRequest struct {
	Nodes []models.NodeInput `json:"nodes"`
}

// QueryRequest describes a range query. A nil Bounds queries the whole
// index.
type QueryRequest struct {
	Bounds *models.RectView `json:"bounds,omitempty"`
}

type ClustersRequest struct {
	Bounds   *models.RectView `json:"bounds,omitempty"`
	CellSize float64          `json:"cell_size"`
}

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
