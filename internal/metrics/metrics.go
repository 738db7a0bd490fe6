// Package metrics exposes Prometheus series for the engine. A Collector
// turns bus events into counter and histogram updates so the pipeline never
// touches Prometheus directly.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine series.
type Metrics struct {
	Messages        *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	ToolExecutions  *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	Fallbacks       prometheus.Counter
	PipelineErrors  prometheus.Counter
	SessionsSwept   prometheus.Counter
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// SessionCounter reports how many sessions are live.
type SessionCounter interface {
	Len() int
}

// New registers the series on reg. sessions feeds rubot_active_sessions and
// may be nil.
func New(reg prometheus.Registerer, sessions SessionCounter) *Metrics {
	f := promauto.With(reg)

	m := &Metrics{
		Messages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rubot_messages_total",
				Help: "Total number of processed messages by response type and intent",
			},
			[]string{"type", "intent"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rubot_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"stage"},
		),
		ToolExecutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rubot_tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool", "success"},
		),
		ToolDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "rubot_tool_duration_seconds",
				Help: "Tool execution duration in seconds",
			},
			[]string{"tool"},
		),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "rubot_fallbacks_total",
			Help: "Total number of responses replaced by the keyword fallback",
		}),
		PipelineErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "rubot_pipeline_errors_total",
			Help: "Total number of messages answered with an error response",
		}),
		SessionsSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "rubot_sessions_swept_total",
			Help: "Total number of expired sessions removed by the sweep",
		}),
		RequestCount: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rubot_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "rubot_http_request_duration_seconds",
				Help: "HTTP request duration in seconds",
			},
			[]string{"method", "route"},
		),
	}

	if sessions != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rubot_active_sessions",
			Help: "Number of sessions in the session table",
		}, func() float64 { return float64(sessions.Len()) })
	}
	return m
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	m.RequestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}
