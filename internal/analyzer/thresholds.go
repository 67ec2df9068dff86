package analyzer

import (
	"strings"
	"time"
)

// DynamicLabelPatterns are substrings that mark a label name as carrying
// ephemeral identifiers. Matching is case-insensitive substring
// containment, so "rapid" matches "id".
var DynamicLabelPatterns = []string{
	"url", "path", "uri", "id", "uuid", "uid", "session",
	"request_id", "pod", "pid", "container_id", "trace_id", "span_id",
}

// IsDynamicLabel reports whether a label name contains any of
// DynamicLabelPatterns.
func IsDynamicLabel(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range DynamicLabelPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Thresholds is the single table of tuning constants shared by the
// histogram scorer, the label classifier, the recommendation engine and the
// derived views. A zero field means "use the default".
type Thresholds struct {
	// Label classifier: values strictly above are high cardinality.
	HighCardinalityValues int64 `mapstructure:"high_cardinality_values" json:"highCardinalityValues"`

	// Histogram risk bands: strictly above.
	HistogramCriticalRisk int `mapstructure:"histogram_critical_risk" json:"histogramCriticalRisk"`
	HistogramModerateRisk int `mapstructure:"histogram_moderate_risk" json:"histogramModerateRisk"`

	MetricSeriesHigh     int64 `mapstructure:"metric_series_high" json:"metricSeriesHigh"`
	MetricSeriesCritical int64 `mapstructure:"metric_series_critical" json:"metricSeriesCritical"`

	BucketSeriesHigh     int64 `mapstructure:"bucket_series_high" json:"bucketSeriesHigh"`
	BucketSeriesCritical int64 `mapstructure:"bucket_series_critical" json:"bucketSeriesCritical"`

	DynamicLabelModerate int64 `mapstructure:"dynamic_label_moderate" json:"dynamicLabelModerate"`
	DynamicLabelHigh     int64 `mapstructure:"dynamic_label_high" json:"dynamicLabelHigh"`
	DynamicLabelCritical int64 `mapstructure:"dynamic_label_critical" json:"dynamicLabelCritical"`

	// Scrape intervals strictly below are fast.
	FastScrapeInterval     time.Duration `mapstructure:"fast_scrape_interval" json:"fastScrapeInterval"`
	VeryFastScrapeInterval time.Duration `mapstructure:"very_fast_scrape_interval" json:"veryFastScrapeInterval"`

	HeadSeriesModerate int64 `mapstructure:"head_series_moderate" json:"headSeriesModerate"`
	HeadSeriesCritical int64 `mapstructure:"head_series_critical" json:"headSeriesCritical"`

	ChurnSeriesModerate int64   `mapstructure:"churn_series_moderate" json:"churnSeriesModerate"`
	ChurnSeriesCritical int64   `mapstructure:"churn_series_critical" json:"churnSeriesCritical"`
	ChurnChunksModerate int64   `mapstructure:"churn_chunks_moderate" json:"churnChunksModerate"`
	ChurnChunksCritical int64   `mapstructure:"churn_chunks_critical" json:"churnChunksCritical"`
	NetChurnModerate    float64 `mapstructure:"net_churn_moderate" json:"netChurnModerate"`
	NetChurnCritical    float64 `mapstructure:"net_churn_critical" json:"netChurnCritical"`
}

// DefaultThresholds holds the stock values. The label classifier's
// high-cardinality cut (1000) and the recommendation engine's "high" cut for
// dynamic labels are the same number and stay separate fields.
var DefaultThresholds = Thresholds{
	HighCardinalityValues: 1000,

	HistogramCriticalRisk: 70,
	HistogramModerateRisk: 40,

	MetricSeriesHigh:     10000,
	MetricSeriesCritical: 50000,

	BucketSeriesHigh:     5000,
	BucketSeriesCritical: 20000,

	DynamicLabelModerate: 100,
	DynamicLabelHigh:     1000,
	DynamicLabelCritical: 10000,

	FastScrapeInterval:     15 * time.Second,
	VeryFastScrapeInterval: 5 * time.Second,

	HeadSeriesModerate: 500000,
	HeadSeriesCritical: 1000000,

	ChurnSeriesModerate: 500000,
	ChurnSeriesCritical: 2000000,
	ChurnChunksModerate: 3000000,
	ChurnChunksCritical: 10000000,
	NetChurnModerate:    1,
	NetChurnCritical:    10,
}

const (
	// dropLabelSeriesFraction is the share of all series assumed to carry a
	// dropped label in the rough drop_label estimate.
	dropLabelSeriesFraction = 0.1
	maxReductionPercent     = 99
	sampleValuesLimit       = 5
	maxRiskScore            = 100
)

// WithDefaults returns t with every zero field replaced by its default.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds
	if t.HighCardinalityValues == 0 {
		t.HighCardinalityValues = d.HighCardinalityValues
	}
	if t.HistogramCriticalRisk == 0 {
		t.HistogramCriticalRisk = d.HistogramCriticalRisk
	}
	if t.HistogramModerateRisk == 0 {
		t.HistogramModerateRisk = d.HistogramModerateRisk
	}
	if t.MetricSeriesHigh == 0 {
		t.MetricSeriesHigh = d.MetricSeriesHigh
	}
	if t.MetricSeriesCritical == 0 {
		t.MetricSeriesCritical = d.MetricSeriesCritical
	}
	if t.BucketSeriesHigh == 0 {
		t.BucketSeriesHigh = d.BucketSeriesHigh
	}
	if t.BucketSeriesCritical == 0 {
		t.BucketSeriesCritical = d.BucketSeriesCritical
	}
	if t.DynamicLabelModerate == 0 {
		t.DynamicLabelModerate = d.DynamicLabelModerate
	}
	if t.DynamicLabelHigh == 0 {
		t.DynamicLabelHigh = d.DynamicLabelHigh
	}
	if t.DynamicLabelCritical == 0 {
		t.DynamicLabelCritical = d.DynamicLabelCritical
	}
	if t.FastScrapeInterval == 0 {
		t.FastScrapeInterval = d.FastScrapeInterval
	}
	if t.VeryFastScrapeInterval == 0 {
		t.VeryFastScrapeInterval = d.VeryFastScrapeInterval
	}
	if t.HeadSeriesModerate == 0 {
		t.HeadSeriesModerate = d.HeadSeriesModerate
	}
	if t.HeadSeriesCritical == 0 {
		t.HeadSeriesCritical = d.HeadSeriesCritical
	}
	if t.ChurnSeriesModerate == 0 {
		t.ChurnSeriesModerate = d.ChurnSeriesModerate
	}
	if t.ChurnSeriesCritical == 0 {
		t.ChurnSeriesCritical = d.ChurnSeriesCritical
	}
	if t.ChurnChunksModerate == 0 {
		t.ChurnChunksModerate = d.ChurnChunksModerate
	}
	if t.ChurnChunksCritical == 0 {
		t.ChurnChunksCritical = d.ChurnChunksCritical
	}
	if t.NetChurnModerate == 0 {
		t.NetChurnModerate = d.NetChurnModerate
	}
	if t.NetChurnCritical == 0 {
		t.NetChurnCritical = d.NetChurnCritical
	}
	return t
}
