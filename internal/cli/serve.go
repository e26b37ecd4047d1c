package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/linkshelf/internal/backup"
	"github.com/mesh-intelligence/linkshelf/internal/server"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the link directory API",
		Long: `Serve opens the configured store and serves the HTTP API until
interrupted. When backup.schedule_interval is positive an in-process
scheduler takes the automatic backup inside the configured window.

Example:
  linkshelf serve
  linkshelf serve --listen 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := openServices(ctx, cfg, log.Logger)
			if err != nil {
				return exitError(exitSysError, "open store: %s", err)
			}
			defer svc.Close()

			srv := server.New(server.Config{
				Repo:        svc.repo,
				Backups:     svc.backups,
				Gate:        svc.gate,
				EnforceAuth: cfg.Auth.Enforce,
				Logger:      log.Logger,
				Metrics:     svc.metrics,
				Gatherer:    svc.registry,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx, cfg.Listen)
			})
			if cfg.Backup.ScheduleInterval > 0 {
				sched := backup.NewScheduler(svc.backups, cfg.Backup.ScheduleInterval)
				g.Go(func() error {
					err := sched.Run(gctx)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				})
			}

			if err := g.Wait(); err != nil {
				return exitError(exitSysError, "serve: %s", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config listen)")
	return cmd
}
