package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/bento/featureflag"
	bentohttp "github.com/aukilabs/bento/http"
	"github.com/aukilabs/bento/models"
	"github.com/aukilabs/bento/quadtree"
	"github.com/aukilabs/bento/sampledata"
	bwebsocket "github.com/aukilabs/bento/websocket"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Bento version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "bento_info",
		Help:        "Bento information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"BENTO_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"BENTO_ADMIN_ADDR"           help:"Admin listening address."`
	LogLevel           string        `cli:""        env:"BENTO_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"BENTO_LOG_INDENT"           help:"Indent logs."`
	BucketCapacity     int           `cli:""        env:"BENTO_BUCKET_CAPACITY"      help:"Default number of places a tree leaf holds before splitting."`
	MaxDepth           int           `cli:""        env:"BENTO_MAX_DEPTH"            help:"Default maximum depth of index trees."`
	SnapshotDir        string        `cli:""        env:"BENTO_SNAPSHOT_DIR"         help:"Directory where index snapshots are loaded at startup and saved at shutdown."`
	SampleSize         int           `cli:",hidden" env:"BENTO_SAMPLE_SIZE"          help:"Number of places in the sample index."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"BENTO_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle stream client will be disconnected."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"BENTO_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	Events             eventsConfig  `cli:",hidden" env:"-"                          help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"BENTO_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                          help:"Show version."`
	Help               bool          `cli:""        env:"-"                          help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"BENTO_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"BENTO_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"BENTO_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"BENTO_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		LogLevel:           logs.InfoLevel.String(),
		BucketCapacity:     8,
		MaxDepth:           quadtree.DefaultMaxDepth,
		SampleSize:         sampledata.SampleSize,
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Bento spatial index server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "bento",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	featureFlags := featureflag.New(conf.FeatureFlags)

	var indexes models.IndexStore
	var ready atomic.Bool

	if conf.SnapshotDir != "" {
		if err := loadSnapshots(ctx, conf.SnapshotDir, &indexes); err != nil {
			logs.Fatal(errors.New("loading snapshots failed").Wrap(err))
		}
	}

	featureFlags.IfSet(featureflag.FlagSeedSampleIndex, func() {
		if _, ok := indexes.GetByName(sampledata.SampleIndexName); ok {
			return
		}

		rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
		index, res, err := sampledata.Seed(ctx, &indexes, conf.SampleSize, conf.MaxDepth, rng)
		if err != nil {
			logs.Fatal(errors.New("seeding sample index failed").Wrap(err))
		}

		logs.WithTag("index", index.Name).
			WithTag("stored", len(res.Stored)).
			WithTag("dropped", res.Dropped).
			Info("sample index seeded")
	})

	ready.Store(true)
	readinessCheck := ready.Load

	var service http.ServeMux

	service.HandleFunc("/health", bentohttp.HandleHealthCheck)
	service.HandleFunc("/version", bentohttp.HandleVersion(version))
	service.HandleFunc("/ready", bentohttp.HandleReadyCheck(readinessCheck))

	api := bentohttp.IndexAPI{
		Indexes:               &indexes,
		DefaultBucketCapacity: conf.BucketCapacity,
		DefaultMaxDepth:       conf.MaxDepth,
		FeatureFlags:          featureFlags,
	}
	api.Register(&service)

	featureFlags.IfNotSet(featureflag.FlagDisableStreamEndpoint, func() {
		service.Handle("GET /indexes/{index}/stream", bwebsocket.HandleStream(ctx, &indexes, func(index *models.Index) bwebsocket.Handler {
			var h bwebsocket.Handler = &bwebsocket.StreamHandler{
				Index:             index,
				ClientIdleTimeout: conf.ClientIdleTimeout,
				FeatureFlags:      featureFlags,
			}
			h = bwebsocket.HandlerWithLogs(h, conf.LogSummaryInterval)
			h = bwebsocket.HandlerWithMetrics(h)
			return h
		}))
	})

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", bentohttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", bentohttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("indexes", len(indexes.List())).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting bento server")

	bentohttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(bentohttp.HandleWithCORS(&service),
			bentohttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)

	if conf.SnapshotDir != "" {
		if err := saveSnapshots(conf.SnapshotDir, &indexes); err != nil {
			logs.Warn(errors.New("saving snapshots failed").Wrap(err))
		}
	}
}

func validateConfig(conf config) error {
	if conf.BucketCapacity <= 0 {
		return errors.New("bucket capacity must be greater than 0").
			WithTag("bucket_capacity", conf.BucketCapacity)
	}

	if conf.BucketCapacity > models.MaxBucketCapacity {
		return errors.New("bucket capacity is too large").
			WithTag("bucket_capacity", conf.BucketCapacity).
			WithTag("max_bucket_capacity", models.MaxBucketCapacity)
	}

	if conf.MaxDepth < 0 {
		return errors.New("max depth must not be negative").
			WithTag("max_depth", conf.MaxDepth)
	}

	if conf.SampleSize < 0 {
		return errors.New("sample size must not be negative").
			WithTag("sample_size", conf.SampleSize)
	}

	if conf.ClientIdleTimeout <= 0 {
		return errors.New("client idle timeout must be greater than 0").
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}

	if conf.LogSummaryInterval <= 0 {
		return errors.New("log summary interval must be greater than 0").
			WithTag("log_summary_interval", conf.LogSummaryInterval)
	}
	return nil
}
