package analyzer

import (
	"slices"
	"strings"
)

const (
	bucketSuffix = "_bucket"
	sumSuffix    = "_sum"
	countSuffix  = "_count"
)

// HistogramCandidate scores one classic histogram family by the cost of its
// bucket series.
//
// EstimatedBucketsPerSeries assumes every label combination has the same
// bucket layout, so it is an estimate. RiskScore is
// (bucketSeries/1000) * (bucketsPerSeries/10) * 5, rounded and capped at
// 100: both the series volume and the bucket count per series raise it.
type HistogramCandidate struct {
	BaseName                  string `json:"baseName"`
	BucketSeries              int64  `json:"bucketSeries"`
	SumSeries                 int64  `json:"sumSeries"`
	CountSeries               int64  `json:"countSeries"`
	EstimatedBucketsPerSeries int64  `json:"estimatedBucketsPerSeries"`
	SavingsPercent            int    `json:"savingsPercent"`
	RiskScore                 int    `json:"riskScore"`
}

// BucketMetric is the name of the family's bucket series.
func (h HistogramCandidate) BucketMetric() string {
	return h.BaseName + bucketSuffix
}

// ScoreHistograms finds every metric ending in "_bucket" and scores it,
// highest risk first. Missing _sum or _count series count as zero.
func (a *Analyzer) ScoreHistograms(s *Snapshot) []HistogramCandidate {
	var out []HistogramCandidate
	for _, m := range s.SeriesByMetric() {
		base, ok := strings.CutSuffix(m.Name, bucketSuffix)
		if !ok {
			continue
		}
		sum, _ := s.MetricSeries(base + sumSuffix)
		count, _ := s.MetricSeries(base + countSuffix)
		out = append(out, scoreHistogram(base, m.Value, sum, count))
	}
	slices.SortStableFunc(out, func(x, y HistogramCandidate) int {
		return y.RiskScore - x.RiskScore
	})
	return out
}

func scoreHistogram(base string, bucket, sum, count int64) HistogramCandidate {
	h := HistogramCandidate{
		BaseName:     base,
		BucketSeries: bucket,
		SumSeries:    sum,
		CountSeries:  count,
	}
	if sum > 0 {
		h.EstimatedBucketsPerSeries = int64(roundHalfUp(float64(bucket) / float64(sum)))
	}
	if total := bucket + sum + count; total > 0 {
		h.SavingsPercent = int(roundHalfUp(100 * float64(bucket-sum-count) / float64(total)))
	}
	risk := roundHalfUp(float64(bucket) / 1000 * (float64(h.EstimatedBucketsPerSeries) / 10) * 5)
	h.RiskScore = int(min(maxRiskScore, risk))
	return h
}

// HistogramSeverity bands a risk score. Band edges belong to the lower band,
// so a score of exactly 70 is moderate.
func (a *Analyzer) HistogramSeverity(riskScore int) Severity {
	switch {
	case riskScore > a.thresholds.HistogramCriticalRisk:
		return SeverityCritical
	case riskScore > a.thresholds.HistogramModerateRisk:
		return SeverityModerate
	default:
		return SeverityLow
	}
}
