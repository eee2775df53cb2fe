package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/config"
	"github.com/dokzlo13/deckcolor/internal/ledger"
)

// CleanupService periodically removes old ledger entries.
type CleanupService struct {
	retention time.Duration
	interval  time.Duration
	ledger    *ledger.Ledger
}

// NewCleanupService creates a CleanupService from the ledger settings.
func NewCleanupService(cfg *config.Config, l *ledger.Ledger) *CleanupService {
	return &CleanupService{
		retention: time.Duration(cfg.Ledger.RetentionDays) * 24 * time.Hour,
		interval:  cfg.Ledger.CleanupInterval.Duration(),
		ledger:    l,
	}
}

// Start runs one cleanup immediately, then one per interval until ctx is done.
// A negative retention disables cleanup.
func (s *CleanupService) Start(ctx context.Context) {
	if s.retention < 0 || s.interval <= 0 {
		log.Info().Msg("Ledger cleanup is disabled")
		return
	}
	go s.run(ctx)
}

func (s *CleanupService) run(ctx context.Context) {
	s.RunOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce deletes entries older than the retention period.
func (s *CleanupService) RunOnce() int64 {
	deleted, err := s.ledger.DeleteOlderThan(s.retention)
	if err != nil {
		log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
		return 0
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Dur("retention", s.retention).Msg("Cleaned up old ledger entries")
	}
	return deleted
}
