package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ritualhq/ritual/internal/config"
	"github.com/ritualhq/ritual/internal/storage"
)

// Paths are omitted so the built-in defaults under the user config dir
// apply until the user sets them.
const defaultInitConfig = `[database]
# path = "/path/to/ritual.db"

[backup]
# dir = "/path/to/backups"
retention = 10

[logging]
level = "info"
# file = "/path/to/ritual.log"
max_size_mb = 10
max_files = 5
`

func newInitCommand(out io.Writer, globals *globalOptions, build BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config file and database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("init does not accept positional arguments")
			}

			configPath := strings.TrimSpace(globals.ConfigPath)
			if configPath == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return mapCommandError(err)
				}
				configPath = defaultPath
			}

			if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
				if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
					return mapCommandError(fmt.Errorf("init: create config directory: %w", err))
				}
				if err := os.WriteFile(configPath, []byte(defaultInitConfig), 0o600); err != nil {
					return mapCommandError(fmt.Errorf("init: write config: %w", err))
				}
				fmt.Fprintf(out, "wrote %s\n", configPath)
			} else if err != nil {
				return mapCommandError(err)
			}

			return withStore(cmd.Context(), globals, build.Version, func(ctx context.Context, rt *runtime) error {
				fmt.Fprintf(out, "database %s at schema version %d\n", rt.store.Path(), storage.CurrentSchemaVersion())
				return nil
			})
		},
	}
	return cmd
}
