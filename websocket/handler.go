package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/bento/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 512
	receiveChanSize = 64
)

// Handler represents an index stream handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Handles a ping request.
	HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to insert places in the index.
	HandleInsert(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a range query.
	HandleQuery(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to cluster the places in a range.
	HandleClusters(ctx context.Context, respond ResponseSender, msg Msg) error

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender used to send responses.
	Sender() Sender

	// Closes the handler and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// The index served on the stream.
	GetIndex() *models.Index

	GetClientID() string
}

// Handle handles the given stream handler until the connection is closed or
// ctx is canceled.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The stream handler.
	Handler Handler

	done           <-chan struct{}
	sendChan       chan Msg
	receiveChan    chan Msg
	sender         Sender
	receiver       Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Handler.HandleConnect(h.Conn)

	h.done = ctx.Done()
	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan Msg, receiveChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	responder := responseSender{
		send: h.send,
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			// closing the connection unblocks the receiving goroutine
			h.handleDisconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", idleTimeout))

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				logs.WithTag("msg_type", msg.TypeString()).
					WithTag("request_id", msg.RequestID).
					WithClientID(h.Handler.GetClientID()).
					Debug(err)
				responder.Send(newErrorMsg(msg.RequestID, err))
			}

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	wg.Wait()
}

func (h *handler) send(msg Msg) {
	select {
	case h.sendChan <- msg:
	case <-h.done:
	}
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		default:
			msg, _, err := h.receiver()
			if errors.IsType(err, ErrTypeMsgInvalid) {
				h.send(newErrorMsg(0, err))
				continue
			}
			if err != nil {
				h.disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}

			select {
			case h.receiveChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg Msg, responder ResponseSender) error {
	switch msg.Type {
	case MsgTypePing:
		return h.Handler.HandlePing(ctx, responder, msg)

	case MsgTypeInsert:
		return h.Handler.HandleInsert(ctx, responder, msg)

	case MsgTypeQuery:
		return h.Handler.HandleQuery(ctx, responder, msg)

	case MsgTypeClusters:
		return h.Handler.HandleClusters(ctx, responder, msg)

	default:
		return errors.New("unsupported message type").
			WithType(ErrTypeMsgUnsupported).
			WithTag("msg_type", msg.TypeString())
	}
}

func (h *handler) disconnect(err error) {
	h.disconnectChan <- err
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

func newErrorMsg(requestID uint32, err error) Msg {
	msg, encodeErr := NewMsg(MsgTypeError, requestID, ErrorResponse{
		Type:    errors.Type(err),
		Message: err.Error(),
	})
	if encodeErr != nil {
		return Msg{Type: MsgTypeError, RequestID: requestID}
	}
	return msg
}

type responseSender struct {
	send func(Msg)
}

func (r responseSender) Send(msg Msg) {
	r.send(msg)
}
