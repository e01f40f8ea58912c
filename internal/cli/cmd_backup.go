package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBackupCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export, restore and list backup snapshots",
	}
	cmd.AddCommand(newBackupCreateCommand(out, globals, build))
	cmd.AddCommand(newBackupRestoreCommand(out, globals, build))
	cmd.AddCommand(newBackupListCommand(out, globals, build))
	return cmd
}

func newBackupCreateCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Write a snapshot of the store to the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				path, snapshot, err := rt.backups.Export(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s (%d records)\n", path, snapshot.Metadata.TotalRecords)
				return nil
			})
		},
	}
}

func newBackupRestoreCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the store contents with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				validation, err := rt.backups.Import(ctx, args[0])
				if validation != nil {
					for _, warning := range validation.Warnings {
						fmt.Fprintf(out, "warning: %s\n", warning)
					}
					for _, issue := range validation.Issues {
						fmt.Fprintf(out, "invalid: %s\n", issue)
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "restored from %s\n", args[0])
				return nil
			})
		},
	}
}

func newBackupListCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots in the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				infos, err := rt.backups.List(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out, infos)
				}

				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tSIZE\tVALID")
				for _, info := range infos {
					fmt.Fprintf(w, "%s\t%d\t%t\n", info.Name, info.Size, info.Valid)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
