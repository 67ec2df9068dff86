package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/internal/collector"
	"github.com/illenko/blacklight/internal/report"
)

var (
	scanFormat string
	scanFailOn string
	scanRecord bool
	scanChurn  bool
	scanFilter string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Fetch one snapshot and print the diagnostics",
	Long: `Fetches the TSDB status and the active targets once and prints the
overview, histogram and label analysis, scrape jobs, churn and findings.

With --fail-on the command exits non-zero when a finding at or above the
given severity exists, which makes it usable as a CI gate.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "text", "output format: text or json")
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "", "exit non-zero on findings at or above this severity (critical, high, moderate, low)")
	scanCmd.Flags().BoolVar(&scanRecord, "record", false, "store the snapshot in the history database")
	scanCmd.Flags().BoolVar(&scanChurn, "churn", true, "query churn rates")
	scanCmd.Flags().StringVar(&scanFilter, "category", "", "only show findings of this category")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	formatter, err := report.NewFormatter(scanFormat)
	if err != nil {
		return err
	}
	var failOn analyzer.Severity
	if scanFailOn != "" {
		if failOn, err = analyzer.ParseSeverity(scanFailOn); err != nil {
			return err
		}
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	client, promCfg, err := a.prometheusClient(ctx)
	if err != nil {
		return err
	}

	an := a.analyzer()
	cfg := collector.Config{StatusLimit: promCfg.StatusLimit, Analyzer: an}
	if scanRecord {
		cfg.Snapshots, cfg.Metrics, cfg.Findings = a.snapshots, a.metrics, a.findings
	}
	coll := collector.New(client, cfg)

	result, err := coll.Collect(ctx, 0)
	if err != nil {
		return err
	}
	st := coll.State()
	if st.Snapshot == nil {
		return fmt.Errorf("failed to fetch TSDB status: %w", result.SnapshotErr)
	}
	a.rememberConnection(ctx, promCfg)

	rep := &report.Report{
		Overview:   an.BuildOverview(st.Snapshot, st.Targets, a.sizeCalculator(ctx, client)),
		Findings:   analyzer.FilterFindings(an.Recommend(st.Snapshot, st.Targets), analyzer.Category(scanFilter)),
		Histograms: an.ScoreHistograms(st.Snapshot),
		Labels:     an.ClassifyLabels(st.Snapshot),
		Jobs:       an.SummarizeJobs(st.Targets),
	}
	if result.TargetsErr != nil {
		rep.Errors = append(rep.Errors, result.TargetsErr.Error())
	}
	if scanChurn {
		churn := an.ChurnStats(client.FetchChurn(ctx))
		rep.Churn = &churn
	}

	if err := formatter.Format(cmd.OutOrStdout(), rep); err != nil {
		return err
	}

	if failOn != "" && report.FailOn(rep.Findings, failOn) {
		return fmt.Errorf("found issues at or above %s severity", failOn)
	}
	return nil
}
