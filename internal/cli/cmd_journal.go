package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ritualhq/ritual/internal/storage"
)

func newJournalCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "journal <date> [note]",
		Short: "Read or write the journal entry for a date",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				date := args[0]

				if len(args) > 1 {
					note := strings.Join(args[1:], " ")
					entry, err := rt.store.Entries.UpsertByDate(ctx, date, note)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "saved entry for %s (%s)\n", entry.Date, entry.ID)
					return nil
				}

				entry, err := rt.store.Entries.GetByDate(ctx, date)
				if errors.Is(err, storage.ErrNotFound) {
					fmt.Fprintf(out, "no entry for %s\n", date)
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, entry.Note)
				return nil
			})
		},
	}
}
