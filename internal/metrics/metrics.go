// Package metrics exposes Prometheus counters for note operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Results recorded by Observe.
const (
	ResultOK       = "ok"
	ResultEmpty    = "empty"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	reg   *prometheus.Registry
	ops   *prometheus.CounterVec
	notes prometheus.Gauge
	sse   prometheus.GaugeFunc
}

// New registers the collectors. clients, if non-nil, reports connected
// event-stream clients.
func New(clients func() int) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quill",
			Name:      "note_operations_total",
			Help:      "Note operations by kind and result.",
		}, []string{"op", "result"}),
		notes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quill",
			Name:      "notes",
			Help:      "Notes currently in the collection.",
		}),
	}
	m.reg.MustRegister(
		m.ops,
		m.notes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if clients != nil {
		m.sse = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "quill",
			Name:      "event_clients",
			Help:      "Connected event-stream clients.",
		}, func() float64 { return float64(clients()) })
		m.reg.MustRegister(m.sse)
	}
	return m
}

// Observe counts one operation.
func (m *Metrics) Observe(op, result string) {
	m.ops.WithLabelValues(op, result).Inc()
}

// SetNotes records the collection size.
func (m *Metrics) SetNotes(n int) {
	m.notes.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
