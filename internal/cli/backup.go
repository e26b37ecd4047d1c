package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkshelf/internal/backup"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, and restore backups",
		Long: `Backup manages point-in-time copies of both collections stored next to
them in the configured store. At most backup.retention records are kept.

Example:
  linkshelf backup create
  linkshelf backup list
  linkshelf backup restore "backup_2026/10/01 03:00:00"
  linkshelf backup export --out shelf.json
  linkshelf backup import shelf.json`,
	}
	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupRestoreCmd())
	cmd.AddCommand(newBackupExportCmd())
	cmd.AddCommand(newBackupImportCmd())
	return cmd
}

// withServices loads configuration, opens the store, and runs fn.
func withServices(cmd *cobra.Command, fn func(*services) error) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := openServices(cmd.Context(), cfg, log.Logger)
	if err != nil {
		return exitError(exitSysError, "open store: %s", err)
	}
	defer svc.Close()
	return fn(svc)
}

func newBackupCreateCmd() *cobra.Command {
	var scheduled bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot both collections",
		Long: `Create stores a backup of both collections. With --scheduled it behaves
like the cron trigger: nothing is stored outside the backup window, and the
record is tagged as automatic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(svc *services) error {
				out := cmd.OutOrStdout()
				if scheduled {
					rec, ran, err := svc.backups.RunScheduled(cmd.Context())
					if err != nil {
						return exitError(exitSysError, "scheduled backup: %s", err)
					}
					if !ran {
						w := svc.backups.Window()
						fmt.Fprintf(out, "Outside the backup window (days %v at %02d:00 %s); nothing to do.\n", w.Days, w.Hour, w.Location)
						return nil
					}
					fmt.Fprintf(out, "Created %s\n", rec.Key)
					return nil
				}
				rec, err := svc.backups.Snapshot(cmd.Context(), backup.TriggerManual)
				if err != nil {
					return exitError(exitSysError, "create backup: %s", err)
				}
				fmt.Fprintf(out, "Created %s\n", rec.Key)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&scheduled, "scheduled", false, "only back up inside the scheduled window")
	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored backups, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(svc *services) error {
				keys, err := svc.backups.List(cmd.Context())
				if err != nil {
					return exitError(exitSysError, "list backups: %s", err)
				}
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, keys)
				}
				if len(keys) == 0 {
					fmt.Fprintln(out, "No backups found.")
					return nil
				}
				printTable(out, []string{"KEY"}, len(keys), func(i int) []string {
					return []string{keys[i].Name}
				})
				fmt.Fprintf(out, "Total: %d backup%s\n", len(keys), plural(len(keys), "", "s"))
				return nil
			})
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <key>",
		Short: "Replace both collections with a stored backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(svc *services) error {
				err := svc.backups.Restore(cmd.Context(), args[0])
				switch {
				case errors.Is(err, types.ErrInvalidBackup):
					return exitError(exitUserError, "restore %s: %s", args[0], err)
				case err != nil:
					return exitError(exitSysError, "restore %s: %s", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
				return nil
			})
		},
	}
}

func newBackupExportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write both collections as JSON without storing a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(svc *services) error {
				rec, err := svc.backups.Export(cmd.Context())
				if err != nil {
					return exitError(exitSysError, "export: %s", err)
				}
				if outPath == "" {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				data, err := json.MarshalIndent(rec, "", "  ")
				if err != nil {
					return exitError(exitSysError, "marshal export: %s", err)
				}
				if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
					return exitError(exitSysError, "write export: %s", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write to file instead of stdout")
	return cmd
}

func newBackupImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace both collections with the contents of a JSON file",
		Long: `Import reads a file holding {"categories": [...], "links": [...]}, such as
the output of backup export, and writes both fields to the store as given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return exitError(exitUserError, "read %s: %s", args[0], err)
			}
			var p types.RestorePayload
			if err := json.Unmarshal(data, &p); err != nil {
				return exitError(exitUserError, "parse %s: %s", args[0], err)
			}
			return withServices(cmd, func(svc *services) error {
				if err := svc.backups.RestoreFromPayload(cmd.Context(), p); err != nil {
					return exitError(exitSysError, "import: %s", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", args[0])
				return nil
			})
		},
	}
}
