package websocket

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/hagall-common/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/hagall-common/logs"
	"golang.org/x/net/websocket"
)

// HandlerWithLogs decorates h with connection logs and a periodic summary of
// the received messages.
func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	originalRequest *http.Request

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	h.originalRequest = conn.Request()
	if h.originalRequest == nil {
		h.originalRequest = &http.Request{Header: http.Header{}}
	}

	logs.WithClientID(h.GetClientID()).
		WithTag("index", h.indexName()).
		WithTag("http_headers", struct {
			UserAgent     string `json:"user_agent,omitempty"`
			XForwardedFor string `json:"x_forwarded_for,omitempty"`
		}{
			UserAgent:     h.originalRequest.UserAgent(),
			XForwardedFor: h.originalRequest.Header.Get(httpcmn.XForwardedForHeaderKey),
		}).
		Info("new client is connected")
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	entry := logs.WithClientID(h.GetClientID()).
		WithTag("index", h.indexName())
	if err != nil {
		entry = entry.WithTag("reason", err.Error())
	}
	entry.Info("client disconnected")
}

func (h *handlerWithLogs) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			logs.WithClientID(h.GetClientID()).
				WithTag("index", h.indexName()).
				Error(errors.New("receiving message failed").Wrap(err))
		} else if err == nil {
			logs.WithClientID(h.GetClientID()).
				WithTag("index", h.indexName()).
				WithTag("msg_type", msg.TypeString()).
				WithTag("request_id", msg.RequestID).
				Debug("message received")
			h.incCounter(msg.TypeString())
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			logs.WithClientID(h.GetClientID()).
				WithTag("index", h.indexName()).
				WithTag("msg_type", msgType).
				Error(errors.New("sending message failed").Wrap(err))
		} else if err == nil {
			logs.WithClientID(h.GetClientID()).
				WithTag("index", h.indexName()).
				WithTag("msg_type", msgType).
				WithTag("request_id", msg.RequestID).
				Debug("message sent")
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) indexName() string {
	if index := h.GetIndex(); index != nil {
		return index.Name
	}
	return ""
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(msgType string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[msgType]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 {
		return
	}

	entry := logs.
		WithClientID(h.GetClientID()).
		WithTag("index", h.indexName()).
		WithTag("time_interval", h.summaryInterval)

	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	entry.Info("inbound message summary")
}
