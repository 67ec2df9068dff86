package analyzer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewSnapshotNormalizesInput(t *testing.T) {
	metrics := []NameCount{
		{Name: "up", Value: 10},
		{Name: "broken", Value: -5},
		{Name: "up", Value: 99},
	}
	s := NewSnapshot(time.Unix(0, 0), HeadStats{NumSeries: -1}, metrics, nil, nil)

	want := []NameCount{{Name: "up", Value: 10}, {Name: "broken", Value: 0}}
	if diff := cmp.Diff(want, s.SeriesByMetric()); diff != "" {
		t.Errorf("SeriesByMetric mismatch (-want +got):\n%s", diff)
	}
	if got := s.TotalSeries(); got != 0 {
		t.Errorf("TotalSeries() = %d, want 0", got)
	}

	metrics[0].Value = 1000
	if got, _ := s.MetricSeries("up"); got != 10 {
		t.Errorf("snapshot changed after caller mutated input: MetricSeries(up) = %d", got)
	}

	out := s.SeriesByMetric()
	out[0].Value = 1
	if got, _ := s.MetricSeries("up"); got != 10 {
		t.Errorf("snapshot changed after caller mutated output: MetricSeries(up) = %d", got)
	}
}

func TestSnapshotLookups(t *testing.T) {
	s := NewSnapshot(time.Time{}, HeadStats{NumSeries: 42},
		[]NameCount{{Name: "a", Value: 1}},
		[]NameCount{{Name: "job", Value: 3}},
		nil,
	)

	if v, ok := s.MetricSeries("a"); !ok || v != 1 {
		t.Errorf("MetricSeries(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := s.MetricSeries("missing"); ok || v != 0 {
		t.Errorf("MetricSeries(missing) = %d, %v; want 0, false", v, ok)
	}
	if v, ok := s.LabelValues("job"); !ok || v != 3 {
		t.Errorf("LabelValues(job) = %d, %v; want 3, true", v, ok)
	}
	if got := s.TotalSeries(); got != 42 {
		t.Errorf("TotalSeries() = %d, want 42", got)
	}
}

func TestNilSnapshotIsEmpty(t *testing.T) {
	var s *Snapshot
	if s.TotalSeries() != 0 || s.SeriesByMetric() != nil || s.ValuesByLabel() != nil {
		t.Error("nil snapshot should report zero values")
	}
	if _, ok := s.LabelValues("x"); ok {
		t.Error("nil snapshot should not find labels")
	}
	if got := ScoreHistograms(s); len(got) != 0 {
		t.Errorf("ScoreHistograms(nil) = %v, want empty", got)
	}
	if got := Recommend(s, nil); len(got) != 0 {
		t.Errorf("Recommend(nil, nil) = %v, want empty", got)
	}
	if got := EstimateImpact(s, []SimulationAction{{Kind: ActionDropMetric, Target: "x"}}); got.PercentReduction != 0 {
		t.Errorf("EstimateImpact(nil).PercentReduction = %d, want 0", got.PercentReduction)
	}
}

func TestSnapshotMarshalJSON(t *testing.T) {
	s := NewSnapshot(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), HeadStats{NumSeries: 7},
		[]NameCount{{Name: "up", Value: 7}}, nil, nil)

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	got := string(b)
	for _, want := range []string{
		`"numSeries":7`,
		`"seriesCountByMetricName":[{"name":"up","value":7}]`,
		`"labelValueCountByLabelName":[]`,
		`"collectedAt":"2026-01-02T03:04:05Z"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Marshal() = %s, missing %s", got, want)
		}
	}
}

func TestParseHealth(t *testing.T) {
	tests := map[string]Health{"up": HealthUp, "down": HealthDown, "": HealthUnknown, "UP": HealthUnknown}
	for in, want := range tests {
		if got := ParseHealth(in); got != want {
			t.Errorf("ParseHealth(%q) = %q, want %q", in, got, want)
		}
	}
}
