package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/illenko/blacklight/internal/analyzer"
)

func scenario() (*analyzer.Snapshot, *analyzer.TargetSet) {
	snap := analyzer.NewSnapshot(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		analyzer.HeadStats{NumSeries: 20800},
		[]analyzer.NameCount{
			{Name: "http_requests_total", Value: 12000},
			{Name: "http_requests_total_bucket", Value: 8000},
			{Name: "http_requests_total_sum", Value: 400},
			{Name: "http_requests_total_count", Value: 400},
		},
		[]analyzer.NameCount{{Name: "status", Value: 5}, {Name: "path", Value: 3000}},
		nil,
	)
	targets := analyzer.NewTargetSet(time.Now(), []analyzer.Target{
		{Job: "api", Instance: "a:80", Health: analyzer.HealthUp, ScrapeInterval: "5s"},
	})
	return snap, targets
}

func buildReport() *Report {
	a := analyzer.New(analyzer.Config{})
	snap, targets := scenario()
	return &Report{
		Overview:   a.BuildOverview(snap, targets, analyzer.NewSizeCalculator(analyzer.SizeConfig{})),
		Findings:   a.Recommend(snap, targets),
		Histograms: a.ScoreHistograms(snap),
		Labels:     a.ClassifyLabels(snap),
		Jobs:       a.SummarizeJobs(targets),
		Errors:     []string{"failed to fetch churn: timeout"},
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).Format(&buf, buildReport()); err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"20,800",
		"http_requests_total",
		"HIGH",
		"[Labels]",
		"action: labeldrop",
		"fetch error: failed to fetch churn: timeout",
		"1/1 up",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("text output to a non-terminal should not contain ANSI escapes")
	}
}

func TestTextFormatterNoFindings(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).Format(&buf, &Report{}); err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	if !strings.Contains(buf.String(), "No issues found.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatTree(t *testing.T) {
	tree := analyzer.NewMetricTree("http_requests_total", 3, []analyzer.RawSeries{
		{"__name__": "http_requests_total", "method": "GET", "code": "200"},
		{"__name__": "http_requests_total", "method": "POST", "code": "200"},
		{"__name__": "http_requests_total", "method": "GET", "code": "500"},
	})

	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTree(&buf, tree); err != nil {
		t.Fatalf("FormatTree() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"code", "method", "Product: 4", "(75% populated)"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatImpact(t *testing.T) {
	snap, _ := scenario()
	impact := analyzer.EstimateImpact(snap, []analyzer.SimulationAction{
		{Kind: analyzer.ActionDropMetric, Target: "http_requests_total"},
		{Kind: analyzer.ActionDropLabel, Target: "path"},
	})

	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatImpact(&buf, impact); err != nil {
		t.Fatalf("FormatImpact() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"-12,000", "(approximate)", "of 20,800 series"} {
		if !strings.Contains(out, want) {
			t.Errorf("impact output missing %q:\n%s", want, out)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	f, err := NewFormatter("json")
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Format(&buf, buildReport()); err != nil {
		t.Fatalf("Format() error: %v", err)
	}

	var decoded struct {
		Overview struct {
			TotalSeries int64 `json:"totalSeries"`
		} `json:"overview"`
		Findings []struct {
			ID string `json:"id"`
		} `json:"findings"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Overview.TotalSeries != 20800 || len(decoded.Findings) == 0 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestNewFormatterRejectsUnknown(t *testing.T) {
	if _, err := NewFormatter("xml"); err == nil {
		t.Error("NewFormatter(xml) expected error")
	}
}

func TestFailOn(t *testing.T) {
	findings := []analyzer.Finding{{Severity: analyzer.SeverityModerate}, {Severity: analyzer.SeverityHigh}}

	tests := []struct {
		min  analyzer.Severity
		want bool
	}{
		{analyzer.SeverityCritical, false},
		{analyzer.SeverityHigh, true},
		{analyzer.SeverityLow, true},
	}
	for _, tt := range tests {
		if got := FailOn(findings, tt.min); got != tt.want {
			t.Errorf("FailOn(%s) = %v, want %v", tt.min, got, tt.want)
		}
	}
	if FailOn(nil, analyzer.SeverityLow) {
		t.Error("FailOn(nil) should be false")
	}
}
