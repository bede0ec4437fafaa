package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const (
	errTypeLabel = "error_type"
	msgTypeLabel = "msg_type"
	indexLabel   = "index"
	resultLabel  = "result"
)

var (
	wsConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected clients.",
	}, []string{
		indexLabel,
	})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_msgs",
		Help: "The number of messages received from WebSocket connections.",
	}, []string{
		indexLabel,
		msgTypeLabel,
	})

	wsReceivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_bytes",
		Help: "The number of bytes received from WebSocket connections.",
	}, []string{
		indexLabel,
		msgTypeLabel,
	})

	wsReceiveError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_receive_errors",
		Help: "The errors that occured while receiving a websocket message.",
	}, []string{
		indexLabel,
		errTypeLabel,
	})

	wsSentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of messages sent to WebSocket connections.",
	}, []string{
		indexLabel,
		msgTypeLabel,
	})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	}, []string{
		indexLabel,
		msgTypeLabel,
	})

	wsSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while sending a websocket message.",
	}, []string{
		indexLabel,
		errTypeLabel,
		msgTypeLabel,
	})

	wsMsgLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ws_msg_latency",
		Help: "The time to process a WebSocket msg.",
	}, []string{
		indexLabel,
		msgTypeLabel,
		resultLabel,
	})
)

// HandlerWithMetrics decorates h with Prometheus metrics labeled by index.
func HandlerWithMetrics(h Handler) Handler {
	return &handlerWithMetrics{
		Handler: h,
	}
}

type handlerWithMetrics struct {
	Handler

	index string
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	if index := h.GetIndex(); index != nil {
		h.index = index.Name
	}

	wsConnectedClients.
		With(prometheus.Labels{
			indexLabel: h.index,
		}).
		Inc()

	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	wsConnectedClients.
		With(prometheus.Labels{
			indexLabel: h.index,
		}).
		Dec()

	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandlePing(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleInsert(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandleInsert(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleQuery(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandleQuery(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleClusters(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandleClusters(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil {
			wsReceiveError.
				With(prometheus.Labels{
					indexLabel:   h.index,
					errTypeLabel: errors.Type(err),
				}).
				Inc()
		} else {
			wsReceivedMsgs.
				With(prometheus.Labels{
					indexLabel:   h.index,
					msgTypeLabel: msg.TypeString(),
				}).
				Inc()
		}

		if n != 0 {
			wsReceivedBytes.
				With(prometheus.Labels{
					indexLabel:   h.index,
					msgTypeLabel: msg.TypeString(),
				}).
				Add(float64(n))
		}

		return msg, n, err
	}
}

func (h *handlerWithMetrics) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil {
			wsSendError.
				With(prometheus.Labels{
					indexLabel:   h.index,
					msgTypeLabel: msgType,
					errTypeLabel: errors.Type(err),
				}).
				Inc()
		}

		if n != 0 {
			wsSentMsgs.
				With(prometheus.Labels{
					indexLabel:   h.index,
					msgTypeLabel: msgType,
				}).
				Inc()
			wsSentBytes.
				With(prometheus.Labels{
					indexLabel:   h.index,
					msgTypeLabel: msgType,
				}).
				Add(float64(n))
		}

		return n, err
	}
}

func (h *handlerWithMetrics) measureLatency(msg Msg, f func() error) error {
	start := time.Now()

	err := f()
	result := "success"
	if err != nil {
		result = "error"
	}

	wsMsgLatency.With(prometheus.Labels{
		indexLabel:   h.index,
		msgTypeLabel: msg.TypeString(),
		resultLabel:  result,
	}).Observe(time.Since(start).Seconds())

	return err
}
