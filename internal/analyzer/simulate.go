package analyzer

import (
	"fmt"
	"strings"
)

type ActionKind string

const (
	ActionDropMetric       ActionKind = "drop_metric"
	ActionDropBucket       ActionKind = "drop_bucket"
	ActionDropLabel        ActionKind = "drop_label"
	ActionIncreaseInterval ActionKind = "increase_interval"
)

func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionDropMetric, ActionDropBucket, ActionDropLabel, ActionIncreaseInterval:
		return k, nil
	default:
		return "", fmt.Errorf("unknown action kind %q", s)
	}
}

// SimulationAction is one proposed configuration change. Target is a metric
// name for drop_metric, a histogram base name for drop_bucket, a label name
// for drop_label and a job name for increase_interval.
type SimulationAction struct {
	Kind           ActionKind `json:"kind"`
	Target         string     `json:"target"`
	InsertionOrder int        `json:"insertionOrder"`
}

// ParseAction reads "kind:target", for example "drop_metric:up".
func ParseAction(s string) (SimulationAction, error) {
	kind, target, ok := strings.Cut(s, ":")
	if !ok || target == "" {
		return SimulationAction{}, fmt.Errorf("invalid action %q (want kind:target)", s)
	}
	k, err := ParseActionKind(kind)
	if err != nil {
		return SimulationAction{}, err
	}
	return SimulationAction{Kind: k, Target: target}, nil
}

// ActionImpact is the contribution of a single action. Approximate marks
// drop_label, whose figure is a rough estimate.
type ActionImpact struct {
	Action        SimulationAction `json:"action"`
	SeriesRemoved int64            `json:"seriesRemoved"`
	Approximate   bool             `json:"approximate"`
}

type SimulationImpact struct {
	EstimatedSeriesRemoved int64          `json:"estimatedSeriesRemoved"`
	PercentReduction       int            `json:"percentReduction"`
	RemainingSeries        int64          `json:"remainingSeries"`
	TotalSeries            int64          `json:"totalSeries"`
	Breakdown              []ActionImpact `json:"breakdown"`
}

// EstimateImpact folds the actions into a series reduction estimate. Each
// action is rounded on its own before summing, so the order of actions does
// not change the total.
//
// drop_metric and drop_bucket remove the exact series count of the metric
// (or of "<target>_bucket"); _sum and _count are kept. drop_label is an
// approximation: for a label with v > 1 values it assumes a tenth of all
// series carry the label and that dropping it collapses them by 1 - 1/v.
// increase_interval changes sample rate, not series, and contributes zero.
// The percentage is capped at 99.
func EstimateImpact(s *Snapshot, actions []SimulationAction) SimulationImpact {
	total := s.TotalSeries()
	impact := SimulationImpact{
		TotalSeries: total,
		Breakdown:   make([]ActionImpact, 0, len(actions)),
	}

	for _, action := range actions {
		ai := ActionImpact{Action: action}
		switch action.Kind {
		case ActionDropMetric:
			ai.SeriesRemoved, _ = s.MetricSeries(action.Target)
		case ActionDropBucket:
			ai.SeriesRemoved, _ = s.MetricSeries(action.Target + bucketSuffix)
		case ActionDropLabel:
			ai.Approximate = true
			if v, _ := s.LabelValues(action.Target); v > 1 {
				ai.SeriesRemoved = int64(roundHalfUp(float64(total) * dropLabelSeriesFraction * (1 - 1/float64(v))))
			}
		}
		impact.EstimatedSeriesRemoved += ai.SeriesRemoved
		impact.Breakdown = append(impact.Breakdown, ai)
	}

	if total > 0 {
		pct := roundHalfUp(100 * float64(impact.EstimatedSeriesRemoved) / float64(total))
		impact.PercentReduction = int(min(maxReductionPercent, pct))
	}
	impact.RemainingSeries = max(0, total-impact.EstimatedSeriesRemoved)
	return impact
}
