package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/internal/report"
)

var treeFormat string

var treeCmd = &cobra.Command{
	Use:   "tree <metric>",
	Short: "Show how a metric's labels multiply into series",
	Long: `Lists every series of one metric and breaks it down by label: the number
of distinct values per label, a few sample values, and the product of those
counts compared with the real series count.`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	treeCmd.Flags().StringVarP(&treeFormat, "format", "f", "text", "output format: text or json")
}

func runTree(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	metric := args[0]

	formatter, err := report.NewFormatter(treeFormat)
	if err != nil {
		return err
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	client, _, err := a.prometheusClient(ctx)
	if err != nil {
		return err
	}

	series, err := client.FetchRawSeries(ctx, metric)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("metric %q has no series", metric)
	}

	return formatter.FormatTree(cmd.OutOrStdout(), analyzer.NewMetricTree(metric, int64(len(series)), series))
}
