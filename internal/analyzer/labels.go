package analyzer

import "slices"

// LabelRisk classifies one label by how likely it is to multiply series.
type LabelRisk struct {
	Label             string   `json:"label"`
	UniqueValues      int64    `json:"uniqueValues"`
	IsDynamicPattern  bool     `json:"isDynamicPattern"`
	IsHighCardinality bool     `json:"isHighCardinality"`
	Tier              Severity `json:"tier"`
}

// ClassifyLabels classifies every label in the snapshot. The result is
// ordered critical first; labels in the same tier keep snapshot order.
func (a *Analyzer) ClassifyLabels(s *Snapshot) []LabelRisk {
	labels := s.ValuesByLabel()
	out := make([]LabelRisk, 0, len(labels))
	for _, l := range labels {
		out = append(out, a.classifyLabel(l.Name, l.Value))
	}
	slices.SortStableFunc(out, func(x, y LabelRisk) int {
		return x.Tier.Rank() - y.Tier.Rank()
	})
	return out
}

func (a *Analyzer) classifyLabel(name string, values int64) LabelRisk {
	r := LabelRisk{
		Label:             name,
		UniqueValues:      values,
		IsDynamicPattern:  IsDynamicLabel(name),
		IsHighCardinality: values > a.thresholds.HighCardinalityValues,
	}
	switch {
	case r.IsDynamicPattern && r.IsHighCardinality:
		r.Tier = SeverityCritical
	case r.IsDynamicPattern:
		r.Tier = SeverityHigh
	case r.IsHighCardinality:
		r.Tier = SeverityModerate
	default:
		r.Tier = SeverityLow
	}
	return r
}
