package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func groupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List or create groups",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List groups",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				groups, err := a.service.ListGroups(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME")
				for _, g := range groups {
					fmt.Fprintf(tw, "%s\t%s\n", g.ID, g.Name)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a group",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := a.service.AddGroup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created group %q (%s)\n", g.Name, g.ID)
				return nil
			},
		},
	)
	return cmd
}
