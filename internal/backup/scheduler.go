package backup

import (
	"context"
	"time"
)

// Scheduler calls RunScheduled on a fixed interval so a standalone server
// needs no external cron. It snapshots at most once per window occurrence.
type Scheduler struct {
	m        *Manager
	interval time.Duration
	lastSlot string
}

// NewScheduler returns a scheduler ticking every interval.
func NewScheduler(m *Manager, interval time.Duration) *Scheduler {
	return &Scheduler{m: m, interval: interval}
}

// Run ticks until ctx is done. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.m.logger.Info().Dur("interval", s.interval).Msg("backup scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.m.logger.Info().Msg("backup scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled check. It reports whether a snapshot was taken.
func (s *Scheduler) tick(ctx context.Context) bool {
	now := s.m.now()
	slot := s.m.window.slot(now)
	if slot == s.lastSlot {
		return false
	}
	_, ran, err := s.m.RunScheduled(ctx)
	if err != nil {
		s.m.logger.Error().Err(err).Msg("scheduled backup failed")
		return false
	}
	if ran {
		s.lastSlot = slot
	}
	return ran
}
