package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/illenko/blacklight/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new config file",
	Long:  `Creates a new config.yaml file with default settings in the current directory.`,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		configPath = config.DefaultPath
	}

	if config.ConfigFileExists(configPath) {
		return fmt.Errorf("%s already exists, remove it first or use a different directory", configPath)
	}

	if err := os.WriteFile(configPath, []byte(config.DefaultFile), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Edit the file with your Prometheus URL")
	fmt.Fprintln(out, "  2. Run: blacklight scan")
	fmt.Fprintln(out, "  3. Run: blacklight serve")

	return nil
}
