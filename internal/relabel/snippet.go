package relabel

import (
	"fmt"
	"regexp"
	"strconv"
)

// Format selects the key spelling of generated relabel snippets.
type Format string

const (
	// FormatOperator uses camelCase keys as in Prometheus Operator
	// ServiceMonitor and PodMonitor resources.
	FormatOperator Format = "operator"
	// FormatPrometheus uses the snake_case keys of prometheus.yml.
	FormatPrometheus Format = "prometheus"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatOperator, nil
	case FormatOperator, FormatPrometheus:
		return f, nil
	default:
		return "", fmt.Errorf("unknown relabel format %q (want operator or prometheus)", s)
	}
}

func (f Format) sourceLabelsKey() string {
	if f == FormatPrometheus {
		return "source_labels"
	}
	return "sourceLabels"
}

// DropMetric returns a metric relabel rule dropping every series of the
// named metric.
func DropMetric(f Format, metric string) string {
	return fmt.Sprintf("- %s: [__name__]\n  regex: %s\n  action: drop", f.sourceLabelsKey(), literalRegex(metric))
}

// DropLabel returns a metric relabel rule removing the named label from
// every series.
func DropLabel(f Format, label string) string {
	return fmt.Sprintf("- action: labeldrop\n  regex: %s", literalRegex(label))
}

// literalRegex quotes name so that the rule regex matches it literally and
// the result is a valid YAML double-quoted scalar.
func literalRegex(name string) string {
	return strconv.Quote(regexp.QuoteMeta(name))
}
