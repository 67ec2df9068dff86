package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/illenko/blacklight/pkg/models"
)

var connPassword string

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conn"},
	Short:   "Manage saved Prometheus connections",
	Long: `Lists, saves and forgets Prometheus endpoints. Passwords are kept in the
OS keyring, never in the database.`,
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connections, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		conns, err := a.connections.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(conns) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved connections.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "URL\tUSER\tPASSWORD\tLAST USED")
		for _, c := range conns {
			pw := "-"
			if c.HasPassword {
				pw = "keyring"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.BaseURL, c.Username, pw, humanize.Time(c.LastUsedAt))
		}
		return tw.Flush()
	},
}

var connectionsAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Save a connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		conn, err := a.connections.Add(cmd.Context(), models.Connection{
			BaseURL:  args[0],
			Username: promUser,
			Password: connPassword,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", conn.BaseURL)
		return nil
	},
}

var connectionsRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Forget a connection and its password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.connections.Remove(cmd.Context(), args[0])
	},
}

func init() {
	connectionsAddCmd.Flags().StringVarP(&connPassword, "password", "p", "", "basic auth password, stored in the OS keyring")

	connectionsCmd.AddCommand(connectionsListCmd)
	connectionsCmd.AddCommand(connectionsAddCmd)
	connectionsCmd.AddCommand(connectionsRemoveCmd)
}
