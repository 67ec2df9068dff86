package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	cfgFile  string
	verbose  bool
	promURL  string
	promUser string
)

var rootCmd = &cobra.Command{
	Use:   "blacklight",
	Short: "Prometheus cardinality diagnostics",
	Long: `blacklight inspects a Prometheus server's TSDB status and targets to find
where series come from and what it would take to cut them.

It helps you understand:
- Which metrics and histograms carry the most series
- Which labels look dynamic (ids, paths, timestamps)
- Which scrape jobs run faster than they need to
- What dropping a metric, bucket or label would save`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&promURL, "url", "", "Prometheus URL (overrides prometheus.url)")
	rootCmd.PersistentFlags().StringVarP(&promUser, "username", "u", "", "basic auth username for --url")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(connectionsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "blacklight %s\n", version)
	},
}
