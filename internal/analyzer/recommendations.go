package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/illenko/blacklight/internal/relabel"
)

type Category string

const (
	CategoryCardinality Category = "Cardinality"
	CategoryHistograms  Category = "Histograms"
	CategoryLabels      Category = "Labels"
	CategoryScrapes     Category = "Scrapes"
)

// Finding is one prioritized recommendation. ID is derived from the
// category and the subject name, so it is stable across recomputations.
type Finding struct {
	ID                string   `json:"id"`
	Severity          Severity `json:"severity"`
	Category          Category `json:"category"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	ImpactDescription string   `json:"impact"`
	SuggestedFix      string   `json:"fix"`
	Snippet           string   `json:"snippet,omitempty"`
}

// Recommend builds the findings list for a snapshot and its targets:
// high-cardinality metrics, expensive bucket metrics, dynamic labels and
// fast scrape jobs. Findings are unique by ID and ordered by severity, then
// by emission order.
func (a *Analyzer) Recommend(s *Snapshot, targets *TargetSet) []Finding {
	var out []Finding
	seen := make(map[string]struct{})
	emit := func(f Finding) {
		if _, dup := seen[f.ID]; dup {
			return
		}
		seen[f.ID] = struct{}{}
		out = append(out, f)
	}

	metrics := s.SeriesByMetric()
	for _, m := range metrics {
		if f, ok := a.cardinalityFinding(m); ok {
			emit(f)
		}
	}
	for _, m := range metrics {
		if f, ok := a.histogramFinding(m); ok {
			emit(f)
		}
	}
	for _, l := range s.ValuesByLabel() {
		if f, ok := a.labelFinding(l); ok {
			emit(f)
		}
	}
	for _, f := range a.scrapeFindings(targets) {
		emit(f)
	}

	slices.SortStableFunc(out, func(x, y Finding) int {
		return x.Severity.Rank() - y.Severity.Rank()
	})
	return out
}

func (a *Analyzer) cardinalityFinding(m NameCount) (Finding, bool) {
	t := a.thresholds
	if m.Value <= t.MetricSeriesHigh {
		return Finding{}, false
	}
	severity := SeverityHigh
	if m.Value > t.MetricSeriesCritical {
		severity = SeverityCritical
	}
	n := humanize.Comma(m.Value)
	return Finding{
		ID:                "card-" + m.Name,
		Severity:          severity,
		Category:          CategoryCardinality,
		Title:             "High cardinality: " + m.Name,
		Description:       fmt.Sprintf("This metric has %s series, contributing significantly to TSDB size and memory usage.", n),
		ImpactDescription: n + " series",
		SuggestedFix:      "Consider dropping high-cardinality labels or the metric entirely.",
		Snippet:           relabel.DropMetric(a.snippetFormat, m.Name),
	}, true
}

func (a *Analyzer) histogramFinding(m NameCount) (Finding, bool) {
	t := a.thresholds
	if !strings.HasSuffix(m.Name, bucketSuffix) || m.Value <= t.BucketSeriesHigh {
		return Finding{}, false
	}
	severity := SeverityHigh
	if m.Value > t.BucketSeriesCritical {
		severity = SeverityCritical
	}
	n := humanize.Comma(m.Value)
	return Finding{
		ID:                "hist-" + m.Name,
		Severity:          severity,
		Category:          CategoryHistograms,
		Title:             "Expensive histogram: " + m.Name,
		Description:       fmt.Sprintf("Bucket metric with %s series. Consider keeping only _sum and _count.", n),
		ImpactDescription: n + " series from buckets alone",
		SuggestedFix:      "Drop _bucket and retain _sum/_count for rate calculations.",
		Snippet:           relabel.DropMetric(a.snippetFormat, m.Name),
	}, true
}

func (a *Analyzer) labelFinding(l NameCount) (Finding, bool) {
	t := a.thresholds
	if !IsDynamicLabel(l.Name) || l.Value <= t.DynamicLabelModerate {
		return Finding{}, false
	}
	var severity Severity
	switch {
	case l.Value > t.DynamicLabelCritical:
		severity = SeverityCritical
	case l.Value > t.DynamicLabelHigh:
		severity = SeverityHigh
	default:
		severity = SeverityModerate
	}
	n := humanize.Comma(l.Value)
	return Finding{
		ID:                "label-" + l.Name,
		Severity:          severity,
		Category:          CategoryLabels,
		Title:             "Dynamic label: " + l.Name,
		Description:       fmt.Sprintf("Label %q has %s unique values and matches a known dynamic pattern.", l.Name, n),
		ImpactDescription: n + " unique values causing series multiplication",
		SuggestedFix:      "Drop this label via metric_relabel_configs.",
		Snippet:           relabel.DropLabel(a.snippetFormat, l.Name),
	}, true
}

// scrapeFindings emits one finding per job, taken from the job's first
// target whose interval is below the fast threshold. A target with an
// unparseable interval is skipped on its own.
func (a *Analyzer) scrapeFindings(targets *TargetSet) []Finding {
	t := a.thresholds
	var out []Finding
	seenJobs := make(map[string]struct{})
	for _, target := range targets.Targets() {
		interval, ok := ParseScrapeInterval(target.ScrapeInterval)
		if !ok || interval >= t.FastScrapeInterval {
			continue
		}
		if _, dup := seenJobs[target.Job]; dup {
			continue
		}
		seenJobs[target.Job] = struct{}{}
		severity := SeverityModerate
		if interval < t.VeryFastScrapeInterval {
			severity = SeverityHigh
		}
		out = append(out, Finding{
			ID:                "scrape-" + target.Job,
			Severity:          severity,
			Category:          CategoryScrapes,
			Title:             fmt.Sprintf("Fast scrape interval: %s (%s)", target.Job, target.ScrapeInterval),
			Description:       fmt.Sprintf("Job %q is scraping at %s, which may cause unnecessary load.", target.Job, target.ScrapeInterval),
			ImpactDescription: "Increased CPU, memory, and TSDB write pressure",
			SuggestedFix:      "Consider increasing scrape interval to 30s or 60s.",
		})
	}
	return out
}

// FilterFindings keeps findings of the given category; an empty category
// keeps everything.
func FilterFindings(findings []Finding, category Category) []Finding {
	if category == "" {
		return findings
	}
	var out []Finding
	for _, f := range findings {
		if strings.EqualFold(string(f.Category), string(category)) {
			out = append(out, f)
		}
	}
	return out
}
