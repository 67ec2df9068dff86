package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/illenko/blacklight/internal/analyzer"
)

var (
	white  = lipgloss.Color("#E2E2E2")
	gray   = lipgloss.Color("#888888")
	muted  = lipgloss.Color("#555555")
	blue   = lipgloss.Color("#5FAFFF")
	green  = lipgloss.Color("#5FD787")
	yellow = lipgloss.Color("#FFD787")
	orange = lipgloss.Color("#FFAF5F")
	red    = lipgloss.Color("#FF8787")
)

// maxRows caps the long tables in the text report.
const maxRows = 10

// TextFormatter renders a human-readable report. Colors are used only when
// the writer is a terminal that supports them.
type TextFormatter struct{}

type palette struct {
	title  lipgloss.Style
	label  lipgloss.Style
	muted  lipgloss.Style
	accent lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	r      *lipgloss.Renderer
}

func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		title:  r.NewStyle().Bold(true).Foreground(white),
		label:  r.NewStyle().Bold(true).Foreground(gray),
		muted:  r.NewStyle().Foreground(muted),
		accent: r.NewStyle().Foreground(blue),
		ok:     r.NewStyle().Foreground(green).Bold(true),
		err:    r.NewStyle().Foreground(red).Bold(true),
		r:      r,
	}
}

func (p palette) severity(s analyzer.Severity) string {
	style := p.r.NewStyle().Bold(true)
	switch s {
	case analyzer.SeverityCritical:
		style = style.Foreground(red)
	case analyzer.SeverityHigh:
		style = style.Foreground(orange)
	case analyzer.SeverityModerate:
		style = style.Foreground(yellow)
	default:
		style = style.Foreground(gray)
	}
	return style.Render(fmt.Sprintf("%-8s", strings.ToUpper(string(s))))
}

func (p palette) rule(w io.Writer) {
	fmt.Fprintln(w, p.muted.Render(strings.Repeat("─", 70)))
}

func (f *TextFormatter) Format(w io.Writer, r *Report) error {
	p := newPalette(w)
	o := r.Overview

	fmt.Fprintln(w, p.title.Render("Prometheus cardinality report"))
	fmt.Fprintf(w, "%s %s\n", p.label.Render("Collected:"), o.CollectedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "%s %s (%s)\n", p.label.Render("Series:   "), humanize.Comma(o.TotalSeries), p.severity(o.SeriesSeverity))
	fmt.Fprintf(w, "%s %d metrics  |  %d labels  |  %s label pairs  |  %s chunks\n",
		p.label.Render("Index:    "), o.MetricCount, o.LabelCount, humanize.Comma(o.LabelPairs), humanize.Comma(o.ChunkCount))
	fmt.Fprintf(w, "%s %d/%d up", p.label.Render("Targets:  "), o.TargetsUp, o.TargetsTotal)
	if len(o.ScrapeIntervals) > 0 {
		fmt.Fprintf(w, "  |  intervals %s", strings.Join(o.ScrapeIntervals, ", "))
	}
	fmt.Fprintln(w)
	if o.Storage.Bytes > 0 {
		fmt.Fprintf(w, "%s ~%s over %d days\n", p.label.Render("Storage:  "), o.Storage.Human, o.Storage.RetentionDays)
	}
	for _, e := range r.Errors {
		fmt.Fprintln(w, p.err.Render("fetch error: ")+e)
	}
	p.rule(w)

	if len(o.TopMetrics) > 0 {
		fmt.Fprintln(w, p.title.Render("Top metrics by series"))
		for _, m := range head(o.TopMetrics) {
			fmt.Fprintf(w, "  %12s  %s\n", humanize.Comma(m.Value), m.Name)
		}
		fmt.Fprintln(w)
	}

	if len(r.Histograms) > 0 {
		fmt.Fprintln(w, p.title.Render("Histograms"))
		for _, h := range head(r.Histograms) {
			fmt.Fprintf(w, "  risk %3d  %12s bucket series  ~%d buckets  %s\n",
				h.RiskScore, humanize.Comma(h.BucketSeries), h.EstimatedBucketsPerSeries, h.BaseName)
		}
		fmt.Fprintln(w)
	}

	if len(r.Labels) > 0 {
		fmt.Fprintln(w, p.title.Render("Labels"))
		for _, l := range head(r.Labels) {
			marker := ""
			if l.IsDynamicPattern {
				marker = p.accent.Render(" dynamic")
			}
			fmt.Fprintf(w, "  %s %12s values  %s%s\n", p.severity(l.Tier), humanize.Comma(l.UniqueValues), l.Label, marker)
		}
		fmt.Fprintln(w)
	}

	if len(r.Jobs) > 0 {
		fmt.Fprintln(w, p.title.Render("Scrape jobs"))
		for _, j := range head(r.Jobs) {
			fast := ""
			if j.Fast {
				fast = p.accent.Render(" fast")
			}
			fmt.Fprintf(w, "  %4d/%-4d up  %6s  %.3fs avg  %s%s\n",
				j.Healthy, j.Targets, j.ScrapeInterval, j.AvgScrapeDurationSeconds, j.Job, fast)
		}
		fmt.Fprintln(w)
	}

	if r.Churn != nil {
		f.formatChurn(w, p, r.Churn)
	}

	p.rule(w)
	if len(r.Findings) == 0 {
		fmt.Fprintln(w, p.ok.Render("No issues found."))
		return nil
	}

	fmt.Fprintf(w, "Found %d issue(s):\n\n", len(r.Findings))
	for _, finding := range r.Findings {
		fmt.Fprintf(w, "  %s %s %s\n", p.severity(finding.Severity), p.muted.Render("["+string(finding.Category)+"]"), finding.Title)
		fmt.Fprintf(w, "           Why:    %s\n", finding.Description)
		fmt.Fprintf(w, "           Impact: %s\n", finding.ImpactDescription)
		fmt.Fprintf(w, "           Fix:    %s\n", finding.SuggestedFix)
		if finding.Snippet != "" {
			for _, line := range strings.Split(finding.Snippet, "\n") {
				fmt.Fprintf(w, "             %s\n", p.accent.Render(line))
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (f *TextFormatter) formatChurn(w io.Writer, p palette, c *analyzer.ChurnStats) {
	fmt.Fprintln(w, p.title.Render("Churn"))
	row := func(name string, v *float64, sev analyzer.Severity) {
		value := "n/a"
		if v != nil {
			value = humanize.CommafWithDigits(*v, 2)
		}
		sevText := ""
		if sev != "" {
			sevText = " " + p.severity(sev)
		}
		fmt.Fprintf(w, "  %-22s %14s%s\n", name, value, sevText)
	}
	row("head series", c.HeadSeries, c.HeadSeriesSeverity)
	row("head chunks", c.HeadChunks, c.HeadChunksSeverity)
	row("series created/s", c.SeriesCreatedRate, "")
	row("series removed/s", c.SeriesRemovedRate, "")
	row("net churn/s", c.NetChurn, c.NetChurnSeverity)
	row("chunks created/s", c.ChunksCreatedRate, "")
	fmt.Fprintln(w)
}

func (f *TextFormatter) FormatTree(w io.Writer, t *analyzer.MetricTree) error {
	p := newPalette(w)

	fmt.Fprintf(w, "%s  %s series\n", p.title.Render(t.Metric), humanize.Comma(t.TotalSeries))
	for i, l := range t.Labels {
		branch := "├─"
		if i == len(t.Labels)-1 {
			branch = "└─"
		}
		fmt.Fprintf(w, "  %s %-24s ×%-8d %s\n", p.muted.Render(branch), l.Label, l.UniqueValues, p.muted.Render(strings.Join(l.SampleValues, ", ")))
	}

	switch {
	case t.Overflow:
		fmt.Fprintf(w, "%s overflows; labels are far from independent\n", p.label.Render("Product:"))
	default:
		fmt.Fprintf(w, "%s %s", p.label.Render("Product:"), humanize.Comma(int64(min(t.Product, math.MaxInt64))))
		if d, ok := t.Density(); ok {
			fmt.Fprintf(w, "  (%d%% populated)", d)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (f *TextFormatter) FormatImpact(w io.Writer, impact analyzer.SimulationImpact) error {
	p := newPalette(w)

	fmt.Fprintln(w, p.title.Render("What-if simulation"))
	for _, a := range impact.Breakdown {
		approx := ""
		if a.Approximate {
			approx = p.muted.Render(" (approximate)")
		}
		fmt.Fprintf(w, "  %-18s %-40s -%s%s\n", a.Action.Kind, a.Action.Target, humanize.Comma(a.SeriesRemoved), approx)
	}
	p.rule(w)
	fmt.Fprintf(w, "%s %s of %s series (%d%%)\n", p.label.Render("Removed:  "),
		humanize.Comma(impact.EstimatedSeriesRemoved), humanize.Comma(impact.TotalSeries), impact.PercentReduction)
	fmt.Fprintf(w, "%s %s series\n", p.label.Render("Remaining:"), humanize.Comma(impact.RemainingSeries))
	return nil
}

func head[T any](in []T) []T {
	if len(in) > maxRows {
		return in[:maxRows]
	}
	return in
}
