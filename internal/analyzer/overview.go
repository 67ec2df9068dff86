package analyzer

import (
	"slices"
	"time"
)

const topEntries = 15

type Overview struct {
	CollectedAt     time.Time       `json:"collectedAt"`
	TotalSeries     int64           `json:"totalSeries"`
	LabelPairs      int64           `json:"labelPairs"`
	ChunkCount      int64           `json:"chunkCount"`
	MetricCount     int             `json:"metricCount"`
	LabelCount      int             `json:"labelCount"`
	SeriesSeverity  Severity        `json:"seriesSeverity"`
	TargetsUp       int             `json:"targetsUp"`
	TargetsTotal    int             `json:"targetsTotal"`
	ScrapeIntervals []string        `json:"scrapeIntervals"`
	TopMetrics      []NameCount     `json:"topMetrics"`
	TopLabels       []NameCount     `json:"topLabels"`
	Storage         StorageEstimate `json:"storage"`
}

// BuildOverview summarizes a snapshot and its targets. Either may be nil.
func (a *Analyzer) BuildOverview(s *Snapshot, targets *TargetSet, size *SizeCalculator) Overview {
	head := s.HeadStats()
	metrics := s.SeriesByMetric()
	labels := s.ValuesByLabel()

	o := Overview{
		CollectedAt:     s.CollectedAt(),
		TotalSeries:     head.NumSeries,
		LabelPairs:      head.NumLabelPairs,
		ChunkCount:      head.ChunkCount,
		MetricCount:     len(metrics),
		LabelCount:      len(labels),
		SeriesSeverity:  a.headSeriesSeverity(head.NumSeries),
		TargetsTotal:    targets.Len(),
		ScrapeIntervals: []string{},
		TopMetrics:      topN(metrics, topEntries),
		TopLabels:       topN(labels, topEntries),
	}

	seen := make(map[string]struct{})
	for _, t := range targets.Targets() {
		if t.Health == HealthUp {
			o.TargetsUp++
		}
		if t.ScrapeInterval == "" {
			continue
		}
		if _, dup := seen[t.ScrapeInterval]; !dup {
			seen[t.ScrapeInterval] = struct{}{}
			o.ScrapeIntervals = append(o.ScrapeIntervals, t.ScrapeInterval)
		}
	}

	if size != nil {
		o.Storage = size.Estimate(head.NumSeries)
	}
	return o
}

func (a *Analyzer) headSeriesSeverity(n int64) Severity {
	switch {
	case n > a.thresholds.HeadSeriesCritical:
		return SeverityCritical
	case n > a.thresholds.HeadSeriesModerate:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

func topN(in []NameCount, n int) []NameCount {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(x, y NameCount) int {
		switch {
		case x.Value > y.Value:
			return -1
		case x.Value < y.Value:
			return 1
		default:
			return 0
		}
	})
	if len(out) > n {
		out = out[:n]
	}
	return nonNil(out)
}
