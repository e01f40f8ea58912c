package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ritualhq/ritual/internal/storage"
)

func newCategoryCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}
	cmd.AddCommand(newCategoryAddCommand(out, globals, build))
	cmd.AddCommand(newCategoryListCommand(out, globals, build))
	cmd.AddCommand(newCategoryRemoveCommand(out, globals, build))
	return cmd
}

func newCategoryAddCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				category := &storage.Category{Name: args[0]}
				if err := rt.store.Categories.Create(ctx, category); err != nil {
					return err
				}
				fmt.Fprintf(out, "created category %s (%s)\n", category.Name, category.ID)
				return nil
			})
		},
	}
}

func newCategoryListCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				categories, err := rt.store.Categories.List(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out, categories)
				}

				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME")
				for _, category := range categories {
					fmt.Fprintf(w, "%s\t%s\n", category.ID, category.Name)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newCategoryRemoveCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a category with no tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				category, err := rt.store.Categories.GetByName(ctx, args[0])
				if err != nil {
					return err
				}
				if err := rt.store.Categories.Delete(ctx, category.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted category %s\n", category.Name)
				return nil
			})
		},
	}
}
