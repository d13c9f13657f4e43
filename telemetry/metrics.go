// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons recorded on EventsDropped.
const (
	DropNotChat     = "not_chat"
	DropEmpty       = "empty"
	DropMeaningless = "meaningless"
	DropNoKeyword   = "no_keyword"
	DropAIFailed    = "ai_failed"
	DropAIEmpty     = "ai_empty"
	DropQueueFull   = "queue_full"
)

var (
	once sync.Once

	// Counters
	ChatEventsReceived     prometheus.Counter
	EventsDropped          *prometheus.CounterVec
	RepliesProduced        prometheus.Counter
	TTSFailures            prometheus.Counter
	BroadcastSendFailures  prometheus.Counter
	ConfigReplacements     prometheus.Counter
	ConnectionsRejected    prometheus.Counter
	MalformedFramesIgnored prometheus.Counter

	// Histograms (seconds)
	AIDuration        prometheus.Observer
	TTSDuration       prometheus.Observer
	BroadcastDuration prometheus.Observer

	// Gauges
	ConnectedClients prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ChatEventsReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "livereply_chat_events_received_total", Help: "Number of chat events received from all sources"})
		EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "livereply_events_dropped_total", Help: "Number of chat events that produced no reply, by reason"}, []string{"reason"})
		RepliesProduced = promauto.NewCounter(prometheus.CounterOpts{Name: "livereply_replies_produced_total", Help: "Number of reply artifacts produced"})
		TTSFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "livereply_tts_failures_total", Help: "Number of speech synthesis failures (reply delivered without audio)"})
		BroadcastSendFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "livereply_broadcast_send_failures_total", Help: "Number of per-client send failures during broadcast"})
		ConfigReplacements = promauto.NewCounter(prometheus.CounterOpts{Name: "livereply_config_replacements_total", Help: "Number of persona configuration replacements"})
		ConnectionsRejected = promauto.NewCounter(prometheus.CounterOpts{Name: "livereply_connections_rejected_total", Help: "Number of websocket connections rejected (capacity or rate limit)"})
		MalformedFramesIgnored = promauto.NewCounter(prometheus.CounterOpts{Name: "livereply_malformed_frames_total", Help: "Number of inbound frames ignored as malformed"})
		AIDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "livereply_ai_duration_seconds", Help: "GenerateReply call duration seconds", Buckets: prometheus.DefBuckets})
		TTSDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "livereply_tts_duration_seconds", Help: "Synthesize call duration seconds", Buckets: prometheus.DefBuckets})
		BroadcastDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "livereply_broadcast_duration_seconds", Help: "Time for one broadcast to finish on all clients", Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10}})
		ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{Name: "livereply_connected_clients", Help: "Current number of registered websocket clients"})
	})
}

// Inc increments c if it has been initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// RecordDrop counts an event that produced no reply.
func RecordDrop(reason string) {
	if EventsDropped != nil {
		EventsDropped.WithLabelValues(reason).Inc()
	}
}

// SetConnectedClients records the registry size.
func SetConnectedClients(n int) {
	if ConnectedClients != nil {
		ConnectedClients.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
