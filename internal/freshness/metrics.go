package freshness

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Report kinds used as metric labels.
const (
	kindCatalog = "catalog"
	kindObject  = "object"
)

// Report outcomes used as metric labels.
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// Metrics records report activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reportsTotal    *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec
	laggingObjects  prometheus.Gauge
	maxLagSeconds   prometheus.Gauge
	criticalEdges   prometheus.Gauge
	chainDependency prometheus.Histogram
}

// NewMetrics registers the freshness collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mzfresh_reports_total",
			Help: "Freshness reports produced by kind and outcome",
		}, []string{"kind", "outcome"}),
		reportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mzfresh_report_duration_seconds",
			Help:    "Time spent producing a freshness report",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		laggingObjects: f.NewGauge(prometheus.GaugeOpts{
			Name: "mzfresh_lagging_objects",
			Help: "Objects exceeding the threshold in the last catalog report",
		}),
		maxLagSeconds: f.NewGauge(prometheus.GaugeOpts{
			Name: "mzfresh_max_lag_seconds",
			Help: "Largest lag among lagging objects in the last catalog report",
		}),
		criticalEdges: f.NewGauge(prometheus.GaugeOpts{
			Name: "mzfresh_critical_path_edges",
			Help: "Critical path edges in the last catalog report",
		}),
		chainDependency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mzfresh_object_chain_dependencies",
			Help:    "Dependency chain length of single-object reports",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
	}
}

func (m *Metrics) observeReport(kind, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(kind, outcome).Inc()
	m.reportDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeCatalog(r *DiagnosticReport) {
	if m == nil {
		return
	}
	m.laggingObjects.Set(float64(len(r.LaggingObjects)))
	maxLag := 0.0
	for _, o := range r.LaggingObjects {
		if o.LagSeconds > maxLag {
			maxLag = o.LagSeconds
		}
	}
	m.maxLagSeconds.Set(maxLag)
	m.criticalEdges.Set(float64(len(r.CriticalPaths)))
}

func (m *Metrics) observeObject(r *ObjectDiagnosticReport) {
	if m == nil {
		return
	}
	m.chainDependency.Observe(float64(r.FreshnessSummary.TotalDependencies))
}
