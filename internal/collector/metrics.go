package collector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/illenko/blacklight/internal/analyzer"
)

// Refresh outcomes.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultFailure = "failure"
)

// Tree fetch outcomes.
const (
	TreeStored    = "stored"
	TreeDiscarded = "discarded"
	TreeFailed    = "failed"
)

// Metrics is blacklight's own instrumentation. A nil *Metrics records
// nothing.
type Metrics struct {
	Registry *prometheus.Registry

	refreshes       *prometheus.CounterVec
	fetchErrors     *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	headSeries      prometheus.Gauge
	targets         *prometheus.GaugeVec
	findings        *prometheus.GaugeVec
	treeFetches     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blacklight",
			Name:      "refreshes_total",
			Help:      "Snapshot refreshes by outcome.",
		}, []string{"result"}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blacklight",
			Name:      "fetch_errors_total",
			Help:      "Failed Prometheus API fetches by endpoint.",
		}, []string{"endpoint"}),
		refreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blacklight",
			Name:      "refresh_duration_seconds",
			Help:      "Time spent fetching a snapshot and its targets.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		headSeries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "blacklight",
			Name:      "observed_head_series",
			Help:      "Head series reported by the last snapshot.",
		}),
		targets: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "blacklight",
			Name:      "observed_targets",
			Help:      "Scrape targets in the last target set by health.",
		}, []string{"health"}),
		findings: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "blacklight",
			Name:      "findings",
			Help:      "Findings for the last snapshot by severity.",
		}, []string{"severity"}),
		treeFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blacklight",
			Name:      "tree_fetches_total",
			Help:      "Raw-series fetches for multiplier trees by outcome.",
		}, []string{"result"}),
	}
}

func (m *Metrics) observeRefresh(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(d.Seconds())
}

func (m *Metrics) observeFetchError(endpoint string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) observeSnapshot(s *analyzer.Snapshot, findings []analyzer.Finding) {
	if m == nil {
		return
	}
	m.headSeries.Set(float64(s.TotalSeries()))

	counts := map[analyzer.Severity]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}
	for _, sev := range analyzer.Severities {
		m.findings.WithLabelValues(string(sev)).Set(float64(counts[sev]))
	}
}

func (m *Metrics) observeTargets(t *analyzer.TargetSet) {
	if m == nil {
		return
	}
	counts := map[analyzer.Health]int{}
	for _, target := range t.Targets() {
		counts[target.Health]++
	}
	for _, h := range []analyzer.Health{analyzer.HealthUp, analyzer.HealthDown, analyzer.HealthUnknown} {
		m.targets.WithLabelValues(string(h)).Set(float64(counts[h]))
	}
}

func (m *Metrics) observeTree(result string) {
	if m == nil {
		return
	}
	m.treeFetches.WithLabelValues(result).Inc()
}
