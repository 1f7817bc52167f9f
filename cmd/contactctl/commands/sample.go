package commands

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/audience/internal/core"
)

func sampleCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:         "sample",
		Short:       "Print the sample import CSV",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w, closeFn, err := createOutput(cmd, output)
			if err != nil {
				return err
			}
			if err := core.WriteSampleCSV(w); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
