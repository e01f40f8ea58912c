package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritualhq/ritual/internal/storage"
)

func newDoneCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	var (
		date    string
		minutes int
	)

	cmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Toggle a task completion for a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				if date == "" {
					date = time.Now().Format(storage.DateLayout)
				}

				var minutesArg *int
				if cmd.Flags().Changed("minutes") {
					minutesArg = &minutes
				}

				completed, err := rt.store.Completions.Toggle(ctx, date, args[0], minutesArg)
				if err != nil {
					return err
				}
				if completed {
					fmt.Fprintf(out, "completed %s on %s\n", args[0], date)
				} else {
					fmt.Fprintf(out, "cleared %s on %s\n", args[0], date)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Minutes spent")
	return cmd
}
