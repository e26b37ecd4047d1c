package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/linkshelf/internal/backup"
	"github.com/mesh-intelligence/linkshelf/internal/config"
	"github.com/mesh-intelligence/linkshelf/internal/gate"
	"github.com/mesh-intelligence/linkshelf/internal/keylock"
	"github.com/mesh-intelligence/linkshelf/internal/kv"
	"github.com/mesh-intelligence/linkshelf/internal/metrics"
	"github.com/mesh-intelligence/linkshelf/internal/repo"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// services bundles the collaborators every data command needs. The caller
// must Close it.
type services struct {
	store    types.Store
	repo     *repo.Repository
	backups  *backup.Manager
	gate     *gate.Gate
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

// openServices opens the configured store and builds the repository and
// backup manager on top of it.
func openServices(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (*services, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	storeCfg := cfg.StoreConfig()
	raw, err := kv.Open(ctx, storeCfg)
	if err != nil {
		return nil, err
	}
	store := kv.Instrument(raw, storeCfg.Driver, m)

	// One locker guards the collection keys and the backup prefix.
	var locker keylock.Locker = keylock.Nop{}
	if cfg.SerializeWrites {
		locker = keylock.New()
	}
	r := repo.New(store, repo.WithLocker(locker))

	backups, err := newBackupManager(cfg, store, r, locker, lg, m)
	if err != nil {
		store.Close()
		return nil, err
	}

	g, err := gate.New(cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &services{
		store:    store,
		repo:     r,
		backups:  backups,
		gate:     g,
		metrics:  m,
		registry: registry,
	}, nil
}

// newBackupManager applies the backup section of cfg.
func newBackupManager(cfg *config.Config, store types.Store, r *repo.Repository, locker keylock.Locker, lg zerolog.Logger, m *metrics.Metrics) (*backup.Manager, error) {
	loc, err := backup.LoadLocation(cfg.Backup.Timezone)
	if err != nil {
		return nil, err
	}
	return backup.New(store, r,
		backup.WithLogger(lg),
		backup.WithLocker(locker),
		backup.WithMetrics(m),
		backup.WithLocation(loc),
		backup.WithLayout(cfg.Backup.TimestampLayout),
		backup.WithRetention(cfg.Backup.Retention),
		backup.WithWindow(backup.Window{
			Days:     cfg.Backup.Window.Days,
			Hour:     cfg.Backup.Window.Hour,
			Location: loc,
		}),
	)
}

// Close releases the store.
func (s *services) Close() error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
