// Package metrics defines the prometheus collectors of the ballot box. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ballotbox"

// Operation label values.
const (
	OpCreate = "create"
	OpEnd    = "end"
	OpCommit = "commit"
	OpReveal = "reveal"
	OpCast   = "cast"
)

// Metrics groups the ballot box collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec
	votes      *prometheus.CounterVec
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inflight   prometheus.Gauge
}

// New creates the collectors and registers them in a new registry.
func New() (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates the collectors and registers them in reg.
func NewWithRegistry(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		gatherer: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "number of committed ledger operations",
		}, []string{"kind", "op"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "number of rejected ledger operations",
		}, []string{"kind", "op", "reason"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tallied_votes_total",
			Help:      "number of votes added to a tally",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "number of API requests",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_requests_inflight",
			Help:      "number of inflight API requests",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.operations, m.rejections, m.votes, m.requests, m.duration, m.inflight,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Operation records a committed operation. Votes that change a tally
// (reveal and cast) also count as tallied votes.
func (m *Metrics) Operation(kind, op string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind, op).Inc()
	if op == OpReveal || op == OpCast {
		m.votes.WithLabelValues(kind).Inc()
	}
}

// Rejection records a failed operation and the reason it failed.
func (m *Metrics) Rejection(kind, op, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(kind, op, reason).Inc()
}

// Handler returns the HTTP handler that exposes the collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// statusRecorder keeps the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware instruments every request served by next.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inflight.Inc()
		defer m.inflight.Dec()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
