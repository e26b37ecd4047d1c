// Package backup creates, lists, and restores point-in-time snapshots of
// the categories and links collections, keeping at most a fixed number of
// records in the store.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/linkshelf/internal/keylock"
	"github.com/mesh-intelligence/linkshelf/internal/metrics"
	"github.com/mesh-intelligence/linkshelf/internal/repo"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

// Trigger says what asked for a snapshot.
type Trigger string

// Snapshot triggers.
const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Manager owns the backup_ key space of the store.
type Manager struct {
	store     types.Store
	repo      *repo.Repository
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	locker    keylock.Locker
	now       func() time.Time
	loc       *time.Location
	layout    string
	retention int
	window    Window
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics records snapshot, eviction, and restore counters.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithLocker serializes snapshots on the backup prefix. By default the
// repository's locker is used.
func WithLocker(l keylock.Locker) Option {
	return func(m *Manager) {
		if l != nil {
			m.locker = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLocation sets the zone timestamps are formatted in.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithLayout sets the timestamp layout. It must sort lexically in time
// order for retention to evict the oldest record.
func WithLayout(layout string) Option {
	return func(m *Manager) {
		if layout != "" {
			m.layout = layout
		}
	}
}

// WithRetention sets the maximum number of records kept.
func WithRetention(n int) Option {
	return func(m *Manager) { m.retention = n }
}

// WithWindow sets the scheduled maintenance window.
func WithWindow(w Window) Option {
	return func(m *Manager) { m.window = w }
}

// New returns a Manager writing backups to store and reading and restoring
// collections through r.
func New(store types.Store, r *repo.Repository, opts ...Option) (*Manager, error) {
	loc, err := LoadLocation(DefaultTimezone)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		store:     store,
		repo:      r,
		logger:    zerolog.Nop(),
		locker:    r.Locker(),
		now:       time.Now,
		loc:       loc,
		layout:    DefaultLayout,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.window.Days == nil {
		m.window = DefaultWindow(m.loc)
	}
	if m.window.Location == nil {
		m.window.Location = m.loc
	}
	if m.retention < 1 {
		return nil, fmt.Errorf("%w: %d", types.ErrRetentionInvalid, m.retention)
	}
	if err := m.window.Validate(); err != nil {
		return nil, err
	}
	m.logger = m.logger.With().Str("component", "backup").Logger()
	return m, nil
}

// Window returns the scheduled maintenance window.
func (m *Manager) Window() Window { return m.window }

// Export builds a record from the current collections without storing it.
func (m *Manager) Export(ctx context.Context) (types.BackupRecord, error) {
	cats, err := m.repo.Categories(ctx)
	if err != nil {
		return types.BackupRecord{}, err
	}
	links, err := m.repo.Links(ctx)
	if err != nil {
		return types.BackupRecord{}, err
	}
	ts := m.now().In(m.loc).Format(m.layout)
	return types.BackupRecord{
		Key:        types.BackupKey(ts),
		Categories: cats,
		Links:      links,
		Timestamp:  ts,
	}, nil
}

// Snapshot stores a copy of both collections under backup_<timestamp>.
// When the store already holds the retention limit, the lexically smallest
// backup keys are deleted first. A snapshot taken in the same second as an
// existing one overwrites it.
func (m *Manager) Snapshot(ctx context.Context, trigger Trigger) (types.BackupRecord, error) {
	rec, err := m.Export(ctx)
	if err != nil {
		return types.BackupRecord{}, err
	}
	if trigger == TriggerScheduled {
		rec.Type = types.BackupTypeAuto
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return types.BackupRecord{}, fmt.Errorf("encoding backup: %w", err)
	}

	unlock, err := m.locker.Lock(ctx, types.BackupKeyPrefix)
	if err != nil {
		return types.BackupRecord{}, err
	}
	defer unlock()

	if err := m.evict(ctx, rec.Key); err != nil {
		return types.BackupRecord{}, err
	}
	if err := m.store.Put(ctx, rec.Key, data); err != nil {
		return types.BackupRecord{}, fmt.Errorf("%w: writing %s: %w", types.ErrStoreFailure, rec.Key, err)
	}

	m.metrics.Snapshot(string(trigger))
	m.logger.Info().
		Str("key", rec.Key).
		Str("trigger", string(trigger)).
		Int("categories", len(rec.Categories)).
		Int("links", len(rec.Links)).
		Msg("backup created")
	return rec, nil
}

// evict deletes the oldest backups until adding newKey keeps the count at
// or below the retention limit.
func (m *Manager) evict(ctx context.Context, newKey string) error {
	infos, err := m.List(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Name != newKey {
			keys = append(keys, info.Name)
		}
	}
	sort.Strings(keys)

	for len(keys) >= m.retention {
		oldest := keys[0]
		if err := m.store.Delete(ctx, oldest); err != nil {
			return fmt.Errorf("%w: deleting %s: %w", types.ErrStoreFailure, oldest, err)
		}
		keys = keys[1:]
		m.metrics.Evicted()
		m.logger.Debug().Str("key", oldest).Msg("backup evicted")
	}
	return nil
}

// List returns the stored backup keys in driver order.
func (m *Manager) List(ctx context.Context) ([]types.KeyInfo, error) {
	infos, err := m.store.List(ctx, types.BackupKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: listing backups: %w", types.ErrStoreFailure, err)
	}
	if infos == nil {
		infos = []types.KeyInfo{}
	}
	return infos, nil
}

// Get fetches and decodes one backup record. Returns ErrNotFound when key
// does not exist and ErrInvalidBackup when it cannot be decoded.
func (m *Manager) Get(ctx context.Context, key string) (types.BackupRecord, error) {
	data, err := m.fetch(ctx, key)
	if err != nil {
		return types.BackupRecord{}, err
	}
	var rec types.BackupRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.BackupRecord{}, fmt.Errorf("%w: %s: %w", types.ErrInvalidBackup, key, err)
	}
	rec.Key = key
	return rec, nil
}

func (m *Manager) fetch(ctx context.Context, key string) ([]byte, error) {
	if !types.IsBackupKey(key) {
		return nil, fmt.Errorf("%w: %q is not a backup key", types.ErrNotFound, key)
	}
	data, err := m.store.Get(ctx, key)
	if errors.Is(err, types.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: backup %s", types.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", types.ErrStoreFailure, key, err)
	}
	return data, nil
}

// Restore overwrites both collections with the contents of the backup at
// key, byte for byte. Returns ErrInvalidBackup, leaving the collections
// untouched, when the record is missing, cannot be decoded, or lacks either
// collection.
func (m *Manager) Restore(ctx context.Context, key string) (err error) {
	defer func() { m.metrics.Restore("key", err) }()

	data, err := m.fetch(ctx, key)
	if errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("%w: %w", types.ErrInvalidBackup, err)
	}
	if err != nil {
		return err
	}

	var raw types.RestorePayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrInvalidBackup, key, err)
	}
	if falsy(raw.Categories) || falsy(raw.Links) {
		return fmt.Errorf("%w: %s lacks categories or links", types.ErrInvalidBackup, key)
	}

	if err := m.repo.ReplaceAll(ctx, raw.Categories, raw.Links); err != nil {
		m.logger.Error().Err(err).Str("key", key).Msg("restore failed; collections may be inconsistent")
		return err
	}
	m.logger.Info().Str("key", key).Msg("backup restored")
	return nil
}

// RestoreFromPayload overwrites both collections with caller-supplied
// values. The values are not validated.
func (m *Manager) RestoreFromPayload(ctx context.Context, p types.RestorePayload) (err error) {
	defer func() { m.metrics.Restore("payload", err) }()

	if err := m.repo.ReplaceAll(ctx, p.Categories, p.Links); err != nil {
		m.logger.Error().Err(err).Msg("payload restore failed; collections may be inconsistent")
		return err
	}
	m.logger.Info().Msg("payload restored")
	return nil
}

// RunScheduled takes a scheduled snapshot when the current time falls in
// the maintenance window. Outside the window it does nothing and reports
// ran=false.
func (m *Manager) RunScheduled(ctx context.Context) (rec types.BackupRecord, ran bool, err error) {
	now := m.now()
	if !m.window.Contains(now) {
		m.metrics.ScheduledSkipped()
		m.logger.Debug().Time("now", now).Msg("outside backup window, skipping")
		return types.BackupRecord{}, false, nil
	}
	rec, err = m.Snapshot(ctx, TriggerScheduled)
	if err != nil {
		return types.BackupRecord{}, false, err
	}
	return rec, true, nil
}

// falsy reports whether raw is missing or one of the JSON values a backup
// field cannot hold: null, false, "", or a zero number. Arrays and objects,
// empty or not, pass.
func falsy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}
	switch trimmed[0] {
	case 'n', 'f':
		return true
	case '"':
		return bytes.Equal(trimmed, []byte(`""`))
	case '[', '{', 't':
		return false
	default:
		f, err := strconv.ParseFloat(string(trimmed), 64)
		return err == nil && f == 0
	}
}
