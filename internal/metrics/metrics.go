// Package metrics provides Prometheus metrics for the AEAD codec and the
// tunnel endpoint built on top of it.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shadowcodec"

// Metrics contains every Prometheus metric the codec and its callers
// record. Labels carry the cipher method name so a process handling
// several methods at once (e.g. a server accepting peers configured with
// different methods) still reports per-method breakdowns.
type Metrics struct {
	ChunksEncrypted *prometheus.CounterVec
	ChunksDecrypted *prometheus.CounterVec
	BytesEncrypted  *prometheus.CounterVec
	BytesDecrypted  *prometheus.CounterVec

	DatagramsEncrypted *prometheus.CounterVec
	DatagramsDecrypted *prometheus.CounterVec

	AuthFailures    *prometheus.CounterVec
	ReplayRejected  *prometheus.CounterVec
	MalformedFrames *prometheus.CounterVec

	NeedMoreStalls prometheus.Counter

	SessionsActive prometheus.Gauge
	SessionLatency prometheus.Histogram
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the process-wide metrics instance, registered against
// prometheus.DefaultRegisterer on first use.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics registers a fresh Metrics instance against the default
// registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers a fresh Metrics instance against reg,
// letting tests use a private registry instead of the process default.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksEncrypted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_encrypted_total",
			Help:      "TCP chunks sealed, by cipher method.",
		}, []string{"method"}),
		ChunksDecrypted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_decrypted_total",
			Help:      "TCP chunks authenticated and opened, by cipher method.",
		}, []string{"method"}),
		BytesEncrypted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_encrypted_total",
			Help:      "Plaintext bytes sealed into TCP chunks, by cipher method.",
		}, []string{"method"}),
		BytesDecrypted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_decrypted_total",
			Help:      "Plaintext bytes recovered from TCP chunks, by cipher method.",
		}, []string{"method"}),

		DatagramsEncrypted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_encrypted_total",
			Help:      "UDP datagrams sealed, by cipher method.",
		}, []string{"method"}),
		DatagramsDecrypted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_decrypted_total",
			Help:      "UDP datagrams authenticated and opened, by cipher method.",
		}, []string{"method"}),

		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "AEAD tag verification failures, by cipher method.",
		}, []string{"method"}),
		ReplayRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_rejected_total",
			Help:      "Frames rejected by the salt replay guard, by cipher method.",
		}, []string{"method"}),
		MalformedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Frames rejected for a malformed length field, by cipher method.",
		}, []string{"method"}),

		NeedMoreStalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "need_more_stalls_total",
			Help:      "Decrypt calls that returned ErrNeedMore (no complete chunk yet).",
		}),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "SessionCipherContexts currently open.",
		}),
		SessionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_lifetime_seconds",
			Help:      "Wall-clock lifetime of a SessionCipherContext, from init to release.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
