package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/internal/report"
)

var (
	simPlan   string
	simSave   bool
	simFormat string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [kind:target ...]",
	Short: "Estimate the series saved by a set of changes",
	Long: `Estimates how many series a set of actions would remove from the current
snapshot. Actions are written as kind:target, for example

  blacklight simulate drop_metric:http_requests_total drop_label:pod

Kinds: drop_metric, drop_bucket, drop_label, increase_interval.

--plan runs a saved plan, with any actions on the command line appended;
--save writes those appended actions back to the plan.`,
	RunE: runSimulate,
}

var simulatePlansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List saved plans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.simulations.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var simulateDeleteCmd = &cobra.Command{
	Use:   "delete <plan>",
	Short: "Delete a saved plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.simulations.Delete(cmd.Context(), args[0])
	},
}

func init() {
	simulateCmd.Flags().StringVarP(&simPlan, "plan", "p", "", "saved plan to run")
	simulateCmd.Flags().BoolVar(&simSave, "save", false, "append the given actions to --plan")
	simulateCmd.Flags().StringVarP(&simFormat, "format", "f", "text", "output format: text or json")

	simulateCmd.AddCommand(simulatePlansCmd)
	simulateCmd.AddCommand(simulateDeleteCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	formatter, err := report.NewFormatter(simFormat)
	if err != nil {
		return err
	}
	if simSave && simPlan == "" {
		return fmt.Errorf("--save requires --plan")
	}

	added := make([]analyzer.SimulationAction, 0, len(args))
	for _, arg := range args {
		action, err := analyzer.ParseAction(arg)
		if err != nil {
			return err
		}
		added = append(added, action)
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	var actions []analyzer.SimulationAction
	if simPlan != "" {
		saved, err := a.simulations.Get(ctx, simPlan)
		if err != nil {
			return err
		}
		switch {
		case saved != nil:
			actions = saved.Actions
		case !simSave:
			return fmt.Errorf("plan %q not found", simPlan)
		}
	}
	actions = append(actions, added...)
	if len(actions) == 0 {
		return fmt.Errorf("no actions given")
	}

	client, promCfg, err := a.prometheusClient(ctx)
	if err != nil {
		return err
	}
	snap, err := client.FetchSnapshot(ctx, promCfg.StatusLimit)
	if err != nil {
		return err
	}

	if err := formatter.FormatImpact(cmd.OutOrStdout(), analyzer.EstimateImpact(snap, actions)); err != nil {
		return err
	}

	if simSave {
		for _, action := range added {
			if _, err := a.simulations.Append(ctx, simPlan, action); err != nil {
				return err
			}
		}
	}
	return nil
}
