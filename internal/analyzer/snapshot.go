package analyzer

import (
	"encoding/json"
	"slices"
	"time"
)

// MetricNameLabel is the reserved label carrying a series' metric name.
const MetricNameLabel = "__name__"

type HeadStats struct {
	NumSeries     int64 `json:"numSeries"`
	NumLabelPairs int64 `json:"numLabelPairs"`
	ChunkCount    int64 `json:"chunkCount"`
	MinTime       int64 `json:"minTime"`
	MaxTime       int64 `json:"maxTime"`
}

// NameCount is one entry of a TSDB status ranking: a metric name, label name
// or "label=value" pair key together with its count.
type NameCount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Snapshot is one fetched TSDB status report. It is immutable once built;
// a newer fetch replaces it wholesale. All accessors are safe on a nil
// receiver and return zero values.
type Snapshot struct {
	collectedAt       time.Time
	headStats         HeadStats
	seriesByMetric    []NameCount
	valuesByLabel     []NameCount
	seriesByLabelPair []NameCount

	metricIndex map[string]int64
	labelIndex  map[string]int64
}

// NewSnapshot copies its inputs. Negative counts are clamped to zero and a
// repeated name keeps its first occurrence, so metric and label names are
// unique in the result.
func NewSnapshot(collectedAt time.Time, head HeadStats, seriesByMetric, valuesByLabel, seriesByLabelPair []NameCount) *Snapshot {
	s := &Snapshot{
		collectedAt: collectedAt,
		headStats:   head,
	}
	s.headStats.NumSeries = max(0, head.NumSeries)
	s.headStats.NumLabelPairs = max(0, head.NumLabelPairs)
	s.headStats.ChunkCount = max(0, head.ChunkCount)

	s.seriesByMetric, s.metricIndex = normalizeCounts(seriesByMetric)
	s.valuesByLabel, s.labelIndex = normalizeCounts(valuesByLabel)
	s.seriesByLabelPair, _ = normalizeCounts(seriesByLabelPair)
	return s
}

func normalizeCounts(in []NameCount) ([]NameCount, map[string]int64) {
	out := make([]NameCount, 0, len(in))
	index := make(map[string]int64, len(in))
	for _, nc := range in {
		if _, dup := index[nc.Name]; dup {
			continue
		}
		v := max(0, nc.Value)
		index[nc.Name] = v
		out = append(out, NameCount{Name: nc.Name, Value: v})
	}
	return out, index
}

func (s *Snapshot) CollectedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.collectedAt
}

func (s *Snapshot) HeadStats() HeadStats {
	if s == nil {
		return HeadStats{}
	}
	return s.headStats
}

// TotalSeries is the head series count reported by the database.
func (s *Snapshot) TotalSeries() int64 {
	return s.HeadStats().NumSeries
}

// MetricSeries returns the series count of a metric and whether it is
// present in the snapshot.
func (s *Snapshot) MetricSeries(name string) (int64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.metricIndex[name]
	return v, ok
}

// LabelValues returns the unique value count of a label and whether it is
// present in the snapshot.
func (s *Snapshot) LabelValues(name string) (int64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.labelIndex[name]
	return v, ok
}

func (s *Snapshot) SeriesByMetric() []NameCount {
	if s == nil {
		return nil
	}
	return slices.Clone(s.seriesByMetric)
}

func (s *Snapshot) ValuesByLabel() []NameCount {
	if s == nil {
		return nil
	}
	return slices.Clone(s.valuesByLabel)
}

func (s *Snapshot) SeriesByLabelPair() []NameCount {
	if s == nil {
		return nil
	}
	return slices.Clone(s.seriesByLabelPair)
}

type snapshotJSON struct {
	CollectedAt                 time.Time   `json:"collectedAt"`
	HeadStats                   HeadStats   `json:"headStats"`
	SeriesCountByMetricName     []NameCount `json:"seriesCountByMetricName"`
	LabelValueCountByLabelName  []NameCount `json:"labelValueCountByLabelName"`
	SeriesCountByLabelValuePair []NameCount `json:"seriesCountByLabelValuePair"`
}

// MarshalJSON renders the snapshot in the shape of the TSDB status endpoint.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return json.Marshal(snapshotJSON{
		CollectedAt:                 s.collectedAt,
		HeadStats:                   s.headStats,
		SeriesCountByMetricName:     nonNil(s.seriesByMetric),
		LabelValueCountByLabelName:  nonNil(s.valuesByLabel),
		SeriesCountByLabelValuePair: nonNil(s.seriesByLabelPair),
	})
}

// DecodeSnapshot is the inverse of MarshalJSON. The input goes through
// NewSnapshot, so the same normalization applies.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	var raw snapshotJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return NewSnapshot(raw.CollectedAt, raw.HeadStats,
		raw.SeriesCountByMetricName, raw.LabelValueCountByLabelName, raw.SeriesCountByLabelValuePair), nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

type Health string

const (
	HealthUp      Health = "up"
	HealthDown    Health = "down"
	HealthUnknown Health = "unknown"
)

// ParseHealth maps anything other than "up" or "down" to HealthUnknown.
func ParseHealth(s string) Health {
	switch Health(s) {
	case HealthUp, HealthDown:
		return Health(s)
	default:
		return HealthUnknown
	}
}

// Target is one active scrape target. ScrapeInterval keeps the raw
// configured string ("15s", "500ms"); it is parsed where needed so that an
// unparseable value can be skipped rather than guessed.
type Target struct {
	Job                       string  `json:"job"`
	Instance                  string  `json:"instance"`
	Health                    Health  `json:"health"`
	ScrapeInterval            string  `json:"scrapeInterval"`
	LastScrapeDurationSeconds float64 `json:"lastScrapeDurationSeconds"`
	LastError                 string  `json:"lastError,omitempty"`
}

// TargetSet is the read-only set of targets from one fetch.
type TargetSet struct {
	collectedAt time.Time
	targets     []Target
}

func NewTargetSet(collectedAt time.Time, targets []Target) *TargetSet {
	return &TargetSet{collectedAt: collectedAt, targets: slices.Clone(targets)}
}

func (t *TargetSet) CollectedAt() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.collectedAt
}

func (t *TargetSet) Targets() []Target {
	if t == nil {
		return nil
	}
	return slices.Clone(t.targets)
}

func (t *TargetSet) Len() int {
	if t == nil {
		return 0
	}
	return len(t.targets)
}

func (t *TargetSet) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(nonNil(t.targets))
}

// RawSeries is one concrete series: label name to label value, including
// the metric name under MetricNameLabel.
type RawSeries map[string]string
