package api

import (
	"context"
	"net/http"

	"github.com/okian/imagestub/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath is where the metrics listener exposes the registry.
const MetricsPath = "/metrics"

// MetricsHandler serves the responder's Prometheus registry.
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler creates a new metrics handler backed by the custom registry.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{
		handler: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleMetrics handles GET /metrics requests.
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// RegisterMetrics attaches GET /metrics to mux.
func RegisterMetrics(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc(http.MethodGet+" "+MetricsPath, NewMetricsHandler().HandleMetrics)
}
