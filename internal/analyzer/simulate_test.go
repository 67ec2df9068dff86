package analyzer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEstimateImpactScenario(t *testing.T) {
	got := EstimateImpact(scenarioSnapshot(), []SimulationAction{
		{Kind: ActionDropMetric, Target: "http_requests_total"},
	})
	if got.EstimatedSeriesRemoved != 12000 {
		t.Errorf("EstimatedSeriesRemoved = %d, want 12000", got.EstimatedSeriesRemoved)
	}
	if got.RemainingSeries != 8800 {
		t.Errorf("RemainingSeries = %d, want 8800", got.RemainingSeries)
	}
	if got.PercentReduction != 58 {
		t.Errorf("PercentReduction = %d, want 58", got.PercentReduction)
	}
}

func TestEstimateImpactActions(t *testing.T) {
	s := scenarioSnapshot()
	tests := []struct {
		name   string
		action SimulationAction
		want   int64
	}{
		{"drop bucket", SimulationAction{Kind: ActionDropBucket, Target: "http_requests_total"}, 8000},
		{"drop missing metric", SimulationAction{Kind: ActionDropMetric, Target: "nope"}, 0},
		{"drop dynamic label", SimulationAction{Kind: ActionDropLabel, Target: "path"}, 2079},
		{"drop small label", SimulationAction{Kind: ActionDropLabel, Target: "status"}, 1664},
		{"drop missing label", SimulationAction{Kind: ActionDropLabel, Target: "nope"}, 0},
		{"interval", SimulationAction{Kind: ActionIncreaseInterval, Target: "node"}, 0},
		{"unknown kind", SimulationAction{Kind: "rename", Target: "x"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateImpact(s, []SimulationAction{tt.action})
			if got.EstimatedSeriesRemoved != tt.want {
				t.Errorf("EstimatedSeriesRemoved = %d, want %d", got.EstimatedSeriesRemoved, tt.want)
			}
			if len(got.Breakdown) != 1 {
				t.Fatalf("Breakdown has %d entries, want 1", len(got.Breakdown))
			}
			if got.Breakdown[0].Approximate != (tt.action.Kind == ActionDropLabel) {
				t.Errorf("Approximate = %v for %s", got.Breakdown[0].Approximate, tt.action.Kind)
			}
		})
	}
}

func TestEstimateImpactOrderIndependent(t *testing.T) {
	s := scenarioSnapshot()
	a := SimulationAction{Kind: ActionDropMetric, Target: "http_requests_total_sum"}
	b := SimulationAction{Kind: ActionDropBucket, Target: "http_requests_total"}
	c := SimulationAction{Kind: ActionDropLabel, Target: "path"}

	ab := EstimateImpact(s, []SimulationAction{a, b, c})
	ba := EstimateImpact(s, []SimulationAction{c, b, a})
	if ab.EstimatedSeriesRemoved != ba.EstimatedSeriesRemoved {
		t.Errorf("order changed total: %d vs %d", ab.EstimatedSeriesRemoved, ba.EstimatedSeriesRemoved)
	}
	if ab.EstimatedSeriesRemoved != 400+8000+2079 {
		t.Errorf("EstimatedSeriesRemoved = %d, want %d", ab.EstimatedSeriesRemoved, 400+8000+2079)
	}
}

func TestEstimateImpactClamps(t *testing.T) {
	s := scenarioSnapshot()
	got := EstimateImpact(s, []SimulationAction{
		{Kind: ActionDropMetric, Target: "http_requests_total"},
		{Kind: ActionDropMetric, Target: "http_requests_total_bucket"},
		{Kind: ActionDropBucket, Target: "http_requests_total"},
	})
	if got.PercentReduction != 99 {
		t.Errorf("PercentReduction = %d, want 99", got.PercentReduction)
	}
	if got.RemainingSeries != 0 {
		t.Errorf("RemainingSeries = %d, want 0", got.RemainingSeries)
	}
	if got.EstimatedSeriesRemoved != 28000 {
		t.Errorf("EstimatedSeriesRemoved = %d, want 28000", got.EstimatedSeriesRemoved)
	}
}

func TestEstimateImpactEmpty(t *testing.T) {
	got := EstimateImpact(scenarioSnapshot(), nil)
	want := SimulationImpact{RemainingSeries: 20800, TotalSeries: 20800, Breakdown: []ActionImpact{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EstimateImpact(nil) mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAction(t *testing.T) {
	got, err := ParseAction("drop_label:path")
	if err != nil {
		t.Fatalf("ParseAction() error: %v", err)
	}
	if got.Kind != ActionDropLabel || got.Target != "path" {
		t.Errorf("ParseAction() = %+v", got)
	}
	for _, bad := range []string{"drop_label", "drop_label:", "rename:x"} {
		if _, err := ParseAction(bad); err == nil {
			t.Errorf("ParseAction(%q) expected error", bad)
		}
	}
}
