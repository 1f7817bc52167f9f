package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/audience/internal/core"
)

func importCmd(a *app) *cobra.Command {
	var (
		dryRun  bool
		skipped string
	)

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import contacts from a CSV file",
		Long: `Import contacts from a CSV file with the columns
First Name, Last Name, Email, Mobile, Group.

Rows that fail validation, duplicate an existing contact or name an unknown
group are skipped; use --skipped to write them to a CSV file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			if dryRun {
				preview, err := a.service.PreviewImport(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Dry run: nothing was imported.")
				printSummary(out, preview.Summary)
				printSkipped(out, preview.Skipped)
				return nil
			}

			run, err := a.service.Import(cmd.Context(), filepath.Base(args[0]), f)
			if run != nil {
				fmt.Fprintf(out, "Import %s\n", run.ID)
				printSummary(out, run.Summary)
				if skipped != "" && run.Result != nil && len(run.Result.Skipped) > 0 {
					if werr := writeSkipped(skipped, run.Result.Skipped); werr != nil {
						return werr
					}
					fmt.Fprintf(out, "Skipped rows written to %s\n", skipped)
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify rows without creating contacts")
	cmd.Flags().StringVar(&skipped, "skipped", "", "write skipped rows to this CSV file")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "skipped")
	return cmd
}

func printSummary(w io.Writer, s core.ImportSummary) {
	fmt.Fprintf(w, "Rows:          %d\n", s.TotalRows)
	fmt.Fprintf(w, "Accepted:      %d\n", s.Accepted)
	fmt.Fprintf(w, "Skipped:       %d\n", s.Skipped)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  invalid:       %d\n", s.Invalid)
		fmt.Fprintf(w, "  duplicate:     %d\n", s.Duplicates)
		fmt.Fprintf(w, "  unknown group: %d\n", s.UnknownGroup)
		if s.Rejected > 0 {
			fmt.Fprintf(w, "  rejected:      %d\n", s.Rejected)
		}
	}
}

func printSkipped(w io.Writer, skipped []core.SkipEntry) {
	for _, e := range skipped {
		fmt.Fprintf(w, "  %-24s %v\n", e.Reason, e.Row)
	}
}

func writeSkipped(path string, skipped []core.SkipEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := core.WriteSkipReport(f, skipped); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
