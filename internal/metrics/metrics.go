// Package metrics exports pipeline metrics to Prometheus. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace   = "docscan"
	statusLabel = "status"
	stageLabel  = "stage"
	formatLabel = "format"
	targetLabel = "target"
)

type Metrics struct {
	registry *prometheus.Registry

	pipelinePagesTotal   *prometheus.CounterVec
	pipelineStageSeconds *prometheus.HistogramVec
	exportArtifactsTotal *prometheus.CounterVec
	dispatchItemsTotal   *prometheus.CounterVec
}

func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	return &Metrics{
		registry: reg,
		pipelinePagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "pages_total",
			Help:      "The total number of scanned pages by outcome.",
		}, []string{statusLabel}),
		pipelineStageSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_seconds",
			Help:      "The time spent in each page processing stage.",
		}, []string{stageLabel}),
		exportArtifactsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "artifacts_total",
			Help:      "The total number of export artifacts by format and outcome.",
		}, []string{formatLabel, statusLabel}),
		dispatchItemsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "items_total",
			Help:      "The total number of dispatched items by target and outcome.",
		}, []string{targetLabel, statusLabel}),
	}, nil
}

func (m *Metrics) AddPage(status string) {
	if m == nil {
		return
	}
	m.pipelinePagesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveStage(stage string, since time.Time) {
	if m == nil {
		return
	}
	m.pipelineStageSeconds.WithLabelValues(stage).Observe(time.Since(since).Seconds())
}

func (m *Metrics) AddArtifact(format, status string) {
	if m == nil {
		return
	}
	m.exportArtifactsTotal.WithLabelValues(format, status).Inc()
}

func (m *Metrics) AddDispatch(target, status string) {
	if m == nil {
		return
	}
	m.dispatchItemsTotal.WithLabelValues(target, status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
