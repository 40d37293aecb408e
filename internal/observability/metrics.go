// Package observability exposes the pipeline's Prometheus metrics.
package observability

import (
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Pipeline  *metrics.PipelineMetrics
	Datastore *metrics.DatastoreMetrics
}

// NewMetrics creates a registry with every collector registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	pipeline, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, errors.New(err).
			Component("observability").
			Category(errors.CategorySystem).
			Context("collector", "pipeline").
			Build()
	}

	datastore, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, errors.New(err).
			Component("observability").
			Category(errors.CategorySystem).
			Context("collector", "datastore").
			Build()
	}

	return &Metrics{
		registry:  registry,
		Pipeline:  pipeline,
		Datastore: datastore,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", m.metricsHandler)
}

func (m *Metrics) metricsHandler(w http.ResponseWriter, r *http.Request) {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	h.ServeHTTP(w, r)
}
