// Package metrics exposes the relay's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SessionsActive prometheus.Gauge
	SessionsTotal  *prometheus.CounterVec
	FramesRelayed  *prometheus.CounterVec
	FramesDropped  prometheus.Counter
	BargeIns       prometheus.Counter
	FunctionCalls  *prometheus.CounterVec
	SessionSeconds prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voicebridge_sessions_active",
			Help: "Call sessions currently relaying.",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_sessions_total",
			Help: "Completed call sessions by outcome.",
		}, []string{"outcome"}),
		FramesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_frames_relayed_total",
			Help: "Audio frames relayed by direction.",
		}, []string{"direction"}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_frames_dropped_total",
			Help: "Inbound audio frames evicted under backpressure.",
		}),
		BargeIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_barge_ins_total",
			Help: "Barge-in events that cleared queued playback.",
		}),
		FunctionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_function_calls_total",
			Help: "Agent function calls dispatched by function name.",
		}, []string{"function"}),
		SessionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicebridge_session_duration_seconds",
			Help:    "Call session duration.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	reg.MustRegister(
		m.SessionsActive,
		m.SessionsTotal,
		m.FramesRelayed,
		m.FramesDropped,
		m.BargeIns,
		m.FunctionCalls,
		m.SessionSeconds,
	)
	return m
}

// Handler serves the scrape endpoint for this registry only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	OutcomeCompleted = "completed"
	OutcomeError     = "error"
)

// SessionEnded folds one finished session's counters into the registry. All
// methods are nil-safe so call sites stay unconditional when metrics are off.
func (m *Metrics) SessionEnded(outcome string, seconds float64, framesIn, framesOut, framesDropped, bargeIns int64) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(outcome).Inc()
	m.SessionSeconds.Observe(seconds)
	m.FramesRelayed.WithLabelValues(DirectionInbound).Add(float64(framesIn))
	m.FramesRelayed.WithLabelValues(DirectionOutbound).Add(float64(framesOut))
	m.FramesDropped.Add(float64(framesDropped))
	m.BargeIns.Add(float64(bargeIns))
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

func (m *Metrics) SessionStopped() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) FunctionCalled(name string) {
	if m == nil {
		return
	}
	m.FunctionCalls.WithLabelValues(name).Inc()
}
