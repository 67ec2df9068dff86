package models

import "time"

// SnapshotSummary is the persisted headline of one TSDB status fetch.
type SnapshotSummary struct {
	ID           int64     `json:"id"`
	CollectedAt  time.Time `json:"collected_at"`
	TotalSeries  int64     `json:"total_series"`
	LabelPairs   int64     `json:"label_pairs"`
	ChunkCount   int64     `json:"chunk_count"`
	MetricCount  int       `json:"metric_count"`
	LabelCount   int       `json:"label_count"`
	TargetsUp    int       `json:"targets_up"`
	TargetsTotal int       `json:"targets_total"`
}

type TrendDataPoint struct {
	Date        time.Time `json:"date"`
	TotalSeries int64     `json:"total_series"`
	MetricCount int       `json:"metric_count"`
	ChunkCount  int64     `json:"chunk_count"`
}

type SnapshotTrends struct {
	Points          []TrendDataPoint `json:"points"`
	TrendPercentage float64          `json:"trend_percentage"`
}

// MetricPoint is one metric's series count at one collection time.
type MetricPoint struct {
	CollectedAt time.Time `json:"collected_at"`
	MetricName  string    `json:"metric_name"`
	SeriesCount int64     `json:"series_count"`
}

// Connection is a saved Prometheus endpoint. The password lives in the OS
// keyring and is only set on the value returned to callers that ask for it.
type Connection struct {
	BaseURL     string    `json:"base_url"`
	Username    string    `json:"username,omitempty"`
	HasPassword bool      `json:"has_password"`
	Password    string    `json:"-"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

type HealthStatus struct {
	Status              string    `json:"status"`
	PrometheusConnected bool      `json:"prometheus_connected"`
	DatabaseOK          bool      `json:"database_ok"`
	LastRefresh         time.Time `json:"last_refresh,omitempty"`
}
