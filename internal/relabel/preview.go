package relabel

import (
	"fmt"
	"regexp"

	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/model/labels"
	promrelabel "github.com/prometheus/prometheus/model/relabel"
	"go.yaml.in/yaml/v2"
)

// camelKeys maps Prometheus Operator relabel keys to prometheus.yml keys.
var camelKeys = map[string]string{
	"sourceLabels": "source_labels",
	"targetLabel":  "target_label",
}

var camelKeyPattern = regexp.MustCompile(`(?m)^(\s*(?:-\s+)?)(sourceLabels|targetLabel):`)

// PreviewResult is the outcome of applying a snippet to one series.
type PreviewResult struct {
	Keep   bool              `json:"keep"`
	Labels map[string]string `json:"labels"`
	Rules  int               `json:"rules"`
}

// Parse decodes a snippet in either format into validated Prometheus relabel
// configs. Operator keys are rewritten to their prometheus.yml spelling first.
func Parse(snippet string) ([]*promrelabel.Config, error) {
	normalized := camelKeyPattern.ReplaceAllStringFunc(snippet, func(m string) string {
		sub := camelKeyPattern.FindStringSubmatch(m)
		return sub[1] + camelKeys[sub[2]] + ":"
	})

	var cfgs []*promrelabel.Config
	if err := yaml.UnmarshalStrict([]byte(normalized), &cfgs); err != nil {
		return nil, fmt.Errorf("failed to parse relabel snippet: %w", err)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("relabel snippet contains no rules")
	}
	for i, c := range cfgs {
		if c == nil {
			return nil, fmt.Errorf("rule %d is empty", i)
		}
		if err := c.Validate(model.UTF8Validation); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return cfgs, nil
}

// Preview applies a snippet to one label set the way Prometheus would at
// scrape time and reports whether the series survives and which labels
// remain.
func Preview(snippet string, series map[string]string) (*PreviewResult, error) {
	cfgs, err := Parse(snippet)
	if err != nil {
		return nil, err
	}

	lset, keep := promrelabel.Process(labels.FromMap(series), cfgs...)

	result := &PreviewResult{Keep: keep, Rules: len(cfgs)}
	if keep {
		result.Labels = lset.Map()
	}
	return result, nil
}
