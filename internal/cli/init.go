package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkshelf/internal/kv"
	"github.com/mesh-intelligence/linkshelf/internal/paths"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize linkshelf storage",
		Long:  "Create configuration and data directories, write a default config.yaml\nif none exists, then open and close the configured store.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, configDir, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return exitError(exitSysError, "create config directory: %s", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return exitError(exitSysError, "create data directory: %s", err)
	}

	// An existing config.yaml is left untouched.
	path := paths.ConfigFile(configDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.WriteFile(path); err != nil {
			return exitError(exitSysError, "write config: %s", err)
		}
	}

	store, err := kv.Open(cmd.Context(), cfg.StoreConfig())
	if err != nil {
		return exitError(exitSysError, "initialize storage: %s", err)
	}
	if err := store.Close(); err != nil {
		return exitError(exitSysError, "finalize storage: %s", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Linkshelf initialized in %s (store: %s)\n", cfg.DataDir, cfg.Store.Driver)
	return nil
}
