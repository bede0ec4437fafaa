package models

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	indexLabel  = "index"
	resultLabel = "result"
	kindLabel   = "kind"

	resultStored  = "stored"
	resultDropped = "dropped"

	queryKindNodes    = "nodes"
	queryKindClusters = "clusters"
)

var (
	bentoIndexCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "index_count",
		Help: "The number of indexes.",
	})

	bentoIndexCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "index_count_total",
		Help: "The total number of indexes.",
	})

	bentoIndexInserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "index_inserts",
		Help: "The number of node insertions, by result.",
	}, []string{indexLabel, resultLabel})

	bentoIndexNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "index_nodes",
		Help: "The number of nodes stored in an index.",
	}, []string{indexLabel})

	bentoIndexQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "index_query_latency",
		Help: "The time to run a query on an index.",
	}, []string{indexLabel, kindLabel})
)

func instrumentIncreaseIndexGauge() {
	bentoIndexCount.Inc()
}

func instrumentDecreaseIndexGauge(index string) {
	bentoIndexCount.Dec()
	bentoIndexNodes.DeleteLabelValues(index)
}

func instrumentCountIndex() {
	bentoIndexCountTotal.Inc()
}

func instrumentInsert(index string, stored bool, nodeCount int) {
	result := resultDropped
	if stored {
		result = resultStored
	}

	bentoIndexInserts.
		With(prometheus.Labels{indexLabel: index, resultLabel: result}).
		Inc()

	bentoIndexNodes.
		With(prometheus.Labels{indexLabel: index}).
		Set(float64(nodeCount))
}

func instrumentQueryLatency(index, kind string, start time.Time) {
	bentoIndexQueryLatency.
		With(prometheus.Labels{indexLabel: index, kindLabel: kind}).
		Observe(time.Since(start).Seconds())
}
