// Package cli wires the cobra command tree over the storage, stats,
// integrity and backup packages.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	globals := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "ritual",
		Short:         "Local habit and journal tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "Path to config file")

	cmd.AddCommand(newInitCommand(out, globals, build))
	cmd.AddCommand(newCategoryCommand(out, globals, build))
	cmd.AddCommand(newTaskCommand(out, globals, build))
	cmd.AddCommand(newDoneCommand(out, globals, build))
	cmd.AddCommand(newJournalCommand(out, globals, build))
	cmd.AddCommand(newStatsCommand(out, globals, build))
	cmd.AddCommand(newCheckCommand(out, globals, build))
	cmd.AddCommand(newBackupCommand(out, globals, build))
	cmd.AddCommand(newVersionCommand(out, build))
	cmd.InitDefaultCompletionCmd()
	return cmd
}

func newVersionCommand(out io.Writer, build BuildInfo) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(build)
			}

			_, err := fmt.Fprintf(out, "version=%s commit=%s build_time=%s\n", build.Version, build.Commit, build.BuildTime)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version as JSON")
	return cmd
}
