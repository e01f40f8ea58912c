package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ritualhq/ritual/internal/integrity"
)

func newCheckCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	var (
		repair bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check referential integrity, optionally repairing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				checker := integrity.NewChecker(rt.store)

				if repair {
					result, err := checker.Repair(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "repair: deleted %d orphaned completions, archived %d orphaned tasks\n",
						result.DeletedCompletions, result.ArchivedTasks)
				}

				report, err := checker.Check(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out, report)
				}

				for _, issue := range report.Errors {
					fmt.Fprintf(out, "error: %s\n", issue)
				}
				for _, issue := range report.Warnings {
					fmt.Fprintf(out, "warning: %s\n", issue)
				}
				if report.IsValid {
					fmt.Fprintln(out, "integrity: ok")
					return nil
				}
				return &ExitError{Code: ExitCodeGeneric, Err: fmt.Errorf("integrity check found %d errors", len(report.Errors))}
			})
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Repair orphaned records before checking")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print report as JSON")
	return cmd
}
