package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ritualhq/ritual/internal/storage"
)

func newTaskCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskAddCommand(out, globals, build))
	cmd.AddCommand(newTaskListCommand(out, globals, build))
	cmd.AddCommand(newTaskArchiveCommand(out, globals, build))
	cmd.AddCommand(newTaskRemoveCommand(out, globals, build))
	return cmd
}

func newTaskAddCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	var (
		categoryName string
		minutes      int
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task in a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				category, err := rt.store.Categories.GetByName(ctx, categoryName)
				if err != nil {
					return fmt.Errorf("resolve category %q: %w", categoryName, err)
				}

				task := &storage.Task{Title: args[0], CategoryID: category.ID}
				if cmd.Flags().Changed("minutes") {
					task.DefaultMinutes = &minutes
				}
				if err := rt.store.Tasks.Create(ctx, task); err != nil {
					return err
				}
				fmt.Fprintf(out, "created task %s (%s) in %s\n", task.Title, task.ID, category.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&categoryName, "category", "", "Category name (required)")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Default minutes for the task")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newTaskListCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	var (
		categoryName    string
		includeArchived bool
		asJSON          bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				filter := storage.TaskFilter{IncludeArchived: includeArchived}
				if categoryName != "" {
					category, err := rt.store.Categories.GetByName(ctx, categoryName)
					if err != nil {
						return fmt.Errorf("resolve category %q: %w", categoryName, err)
					}
					filter.CategoryID = category.ID
				}

				tasks, err := rt.store.Tasks.List(ctx, filter)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out, tasks)
				}

				categories, err := rt.store.Categories.List(ctx)
				if err != nil {
					return err
				}
				nameByID := make(map[string]string, len(categories))
				for _, category := range categories {
					nameByID[category.ID] = category.Name
				}

				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tMINUTES\tARCHIVED")
				for _, task := range tasks {
					minutes := "-"
					if task.DefaultMinutes != nil {
						minutes = fmt.Sprintf("%d", *task.DefaultMinutes)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
						task.ID, task.Title, nameByID[task.CategoryID], minutes, task.Archived)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&categoryName, "category", "", "Filter by category name")
	cmd.Flags().BoolVar(&includeArchived, "all", false, "Include archived tasks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newTaskArchiveCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a task, keeping its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				if err := rt.store.Tasks.Archive(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "archived task %s\n", args[0])
				return nil
			})
		},
	}
}

func newTaskRemoveCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task and its completions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				if err := rt.store.Tasks.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted task %s\n", args[0])
				return nil
			})
		},
	}
}
