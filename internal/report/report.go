// Package report renders scan results for the command line.
package report

import (
	"fmt"
	"io"

	"github.com/illenko/blacklight/internal/analyzer"
)

// Report is everything `blacklight scan` shows for one snapshot.
type Report struct {
	Overview   analyzer.Overview             `json:"overview"`
	Findings   []analyzer.Finding            `json:"findings"`
	Histograms []analyzer.HistogramCandidate `json:"histograms"`
	Labels     []analyzer.LabelRisk          `json:"labels"`
	Jobs       []analyzer.JobSummary         `json:"jobs"`
	Churn      *analyzer.ChurnStats          `json:"churn,omitempty"`
	// Errors holds per-endpoint fetch failures that did not stop the scan.
	Errors []string `json:"errors,omitempty"`
}

// Formatter renders reports, trees and simulation results to a writer.
type Formatter interface {
	Format(w io.Writer, r *Report) error
	FormatTree(w io.Writer, t *analyzer.MetricTree) error
	FormatImpact(w io.Writer, impact analyzer.SimulationImpact) error
}

func NewFormatter(format string) (Formatter, error) {
	switch format {
	case "", "text":
		return &TextFormatter{}, nil
	case "json":
		return &JSONFormatter{Indent: true}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

// FailOn reports whether any finding is at least as severe as min.
func FailOn(findings []analyzer.Finding, min analyzer.Severity) bool {
	for _, f := range findings {
		if f.Severity.AtLeast(min) {
			return true
		}
	}
	return false
}
