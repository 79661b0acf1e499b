// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the pipeline collectors on a private Prometheus registry.
type Registry struct {
	reg           *prometheus.Registry
	Received      prometheus.Counter
	Stored        prometheus.Counter
	Dropped       prometheus.Counter
	Invalid       prometheus.Counter
	FieldDefaults *prometheus.CounterVec
	StoreLatency  prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookpipe_items_received_total",
		Help: "Items read from the crawler feed.",
	})
	stored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookpipe_items_stored_total",
		Help: "Items persisted to the libri table.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookpipe_items_dropped_total",
		Help: "Items discarded after a storage failure.",
	})
	invalid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookpipe_items_invalid_total",
		Help: "Feed lines that were not JSON objects.",
	})
	defaults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookpipe_field_defaults_total",
		Help: "Fields replaced by their default value.",
	}, []string{"field", "reason"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookpipe_store_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(received, stored, dropped, invalid, defaults, latency)
	return &Registry{
		reg:           r,
		Received:      received,
		Stored:        stored,
		Dropped:       dropped,
		Invalid:       invalid,
		FieldDefaults: defaults,
		StoreLatency:  latency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry for tests and pushers.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
