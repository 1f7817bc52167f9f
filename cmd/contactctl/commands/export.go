package commands

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/audience/internal/core"
)

func exportCmd(a *app) *cobra.Command {
	var group, sortKey, order, columns, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export contacts as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := core.ParseSortKey(sortKey)
			if err != nil {
				return err
			}
			ord, err := core.ParseSortOrder(order)
			if err != nil {
				return err
			}
			cols, err := core.ParseExportColumns(columns)
			if err != nil {
				return err
			}

			contacts, err := a.service.ContactsByGroup(cmd.Context(), group)
			if err != nil {
				return err
			}

			w, closeFn, err := createOutput(cmd, output)
			if err != nil {
				return err
			}
			if err := core.WriteContactsCSV(w, core.SortContacts(contacts, key, ord), cols); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "only export this group")
	cmd.Flags().StringVar(&sortKey, "sort", "name", "sort by name, group or date")
	cmd.Flags().StringVar(&order, "order", "asc", "asc or desc")
	cmd.Flags().StringVar(&columns, "columns", "", "comma-separated columns (default all)")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default stdout)`)
	return cmd
}
