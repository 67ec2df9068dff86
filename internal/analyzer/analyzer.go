// Package analyzer derives cardinality diagnostics from a TSDB status
// snapshot. Every function here is pure: inputs are never modified and no
// I/O is performed, so results can be computed concurrently from the same
// snapshot.
package analyzer

import "github.com/illenko/blacklight/internal/relabel"

type Analyzer struct {
	thresholds    Thresholds
	snippetFormat relabel.Format
}

type Config struct {
	Thresholds    Thresholds
	SnippetFormat relabel.Format
}

func New(cfg Config) *Analyzer {
	if cfg.SnippetFormat == "" {
		cfg.SnippetFormat = relabel.FormatOperator
	}
	return &Analyzer{
		thresholds:    cfg.Thresholds.WithDefaults(),
		snippetFormat: cfg.SnippetFormat,
	}
}

func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

func (a *Analyzer) SnippetFormat() relabel.Format {
	return a.snippetFormat
}

var defaultAnalyzer = New(Config{})

// ScoreHistograms scores histograms with the default thresholds.
func ScoreHistograms(s *Snapshot) []HistogramCandidate {
	return defaultAnalyzer.ScoreHistograms(s)
}

// ClassifyLabels classifies labels with the default thresholds.
func ClassifyLabels(s *Snapshot) []LabelRisk {
	return defaultAnalyzer.ClassifyLabels(s)
}

// Recommend builds findings with the default thresholds and snippet format.
func Recommend(s *Snapshot, targets *TargetSet) []Finding {
	return defaultAnalyzer.Recommend(s, targets)
}
