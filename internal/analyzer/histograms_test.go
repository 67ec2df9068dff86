package analyzer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func histogramSnapshot(metrics ...NameCount) *Snapshot {
	return NewSnapshot(time.Time{}, HeadStats{}, metrics, nil, nil)
}

func TestScoreHistograms(t *testing.T) {
	s := histogramSnapshot(
		NameCount{Name: "http_requests_total", Value: 12000},
		NameCount{Name: "http_request_duration_seconds_bucket", Value: 8000},
		NameCount{Name: "http_request_duration_seconds_sum", Value: 400},
		NameCount{Name: "http_request_duration_seconds_count", Value: 400},
		NameCount{Name: "rpc_latency_bucket", Value: 500},
	)

	got := ScoreHistograms(s)
	want := []HistogramCandidate{
		{
			BaseName:                  "http_request_duration_seconds",
			BucketSeries:              8000,
			SumSeries:                 400,
			CountSeries:               400,
			EstimatedBucketsPerSeries: 20,
			SavingsPercent:            82,
			RiskScore:                 80,
		},
		{
			BaseName:       "rpc_latency",
			BucketSeries:   500,
			SavingsPercent: 100,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ScoreHistograms mismatch (-want +got):\n%s", diff)
	}
	if got[0].BucketMetric() != "http_request_duration_seconds_bucket" {
		t.Errorf("BucketMetric() = %q", got[0].BucketMetric())
	}
}

func TestScoreHistogramEdges(t *testing.T) {
	tests := []struct {
		name                  string
		bucket, sum, count    int64
		wantBuckets           int64
		wantSavings, wantRisk int
	}{
		{name: "all zero", wantBuckets: 0, wantSavings: 0, wantRisk: 0},
		{name: "risk capped", bucket: 100000, sum: 1000, count: 1000, wantBuckets: 100, wantSavings: 96, wantRisk: 100},
		{name: "negative savings", bucket: 10, sum: 20, count: 20, wantBuckets: 1, wantSavings: -60, wantRisk: 0},
		{name: "no sum", bucket: 3000, count: 300, wantBuckets: 0, wantSavings: 82, wantRisk: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := scoreHistogram("m", tt.bucket, tt.sum, tt.count)
			if h.EstimatedBucketsPerSeries != tt.wantBuckets {
				t.Errorf("EstimatedBucketsPerSeries = %d, want %d", h.EstimatedBucketsPerSeries, tt.wantBuckets)
			}
			if h.SavingsPercent != tt.wantSavings {
				t.Errorf("SavingsPercent = %d, want %d", h.SavingsPercent, tt.wantSavings)
			}
			if h.RiskScore != tt.wantRisk {
				t.Errorf("RiskScore = %d, want %d", h.RiskScore, tt.wantRisk)
			}
		})
	}
}

func TestRiskScoreMonotonicInBucketSeries(t *testing.T) {
	const bucketsPerSeries = 12
	prev := -1
	for bucket := int64(0); bucket <= 200000; bucket += 1200 {
		sum := bucket / bucketsPerSeries
		h := scoreHistogram("m", bucket, sum, sum)
		if sum > 0 && h.EstimatedBucketsPerSeries != bucketsPerSeries {
			t.Fatalf("bucket %d: EstimatedBucketsPerSeries = %d", bucket, h.EstimatedBucketsPerSeries)
		}
		if h.RiskScore < prev {
			t.Fatalf("bucket %d: RiskScore %d dropped below %d", bucket, h.RiskScore, prev)
		}
		prev = h.RiskScore
	}
}

func TestHistogramSeverity(t *testing.T) {
	a := New(Config{})
	tests := map[int]Severity{
		100: SeverityCritical,
		71:  SeverityCritical,
		70:  SeverityModerate,
		41:  SeverityModerate,
		40:  SeverityLow,
		0:   SeverityLow,
	}
	for score, want := range tests {
		if got := a.HistogramSeverity(score); got != want {
			t.Errorf("HistogramSeverity(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestScoreHistogramsOrdersByRisk(t *testing.T) {
	s := histogramSnapshot(
		NameCount{Name: "small_bucket", Value: 1000},
		NameCount{Name: "small_sum", Value: 100},
		NameCount{Name: "big_bucket", Value: 20000},
		NameCount{Name: "big_sum", Value: 1000},
	)
	got := ScoreHistograms(s)
	if len(got) != 2 || got[0].BaseName != "big" || got[1].BaseName != "small" {
		t.Errorf("ScoreHistograms order = %+v, want big then small", got)
	}
}
