// Package cli implements the linkshelf command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkshelf/internal/config"
	"github.com/mesh-intelligence/linkshelf/internal/logging"
	"github.com/mesh-intelligence/linkshelf/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "linkshelf" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}

	root := &cobra.Command{
		Use:   "linkshelf",
		Short: "A personal link directory",
		Long: "Linkshelf serves a categorized directory of links backed by a key-value\n" +
			"store, with rotating backups and restore.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: ./.linkshelf or the platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: ./.linkshelf-db or the platform data dir)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newBackupCmd())
	root.AddCommand(newHashPasswordCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err == nil {
		os.Exit(exitSuccess)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	var ce *codeError
	if errors.As(err, &ce) {
		os.Exit(ce.code)
	}
	os.Exit(exitUserError)
}

// codeError carries the process exit code for a failed command.
type codeError struct {
	code int
	msg  string
}

func (e *codeError) Error() string { return e.msg }

// exitError wraps msg with the exit code Execute should use.
func exitError(code int, format string, args ...any) error {
	return &codeError{code: code, msg: fmt.Sprintf(format, args...)}
}

// loadConfig resolves the config and data directories, reads the
// configuration, and installs the global logger writing to stderr.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, "", exitError(exitSysError, "resolve config dir: %s", err)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, "", exitError(exitUserError, "%s", err)
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, cfg.DataDir)
	if err != nil {
		return nil, "", exitError(exitSysError, "resolve data dir: %s", err)
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, "", exitError(exitUserError, "invalid config: %s", err)
	}
	if _, err := logging.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr()); err != nil {
		return nil, "", exitError(exitUserError, "log_level: %s", err)
	}
	return cfg, configDir, nil
}

// printJSON writes v indented to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
