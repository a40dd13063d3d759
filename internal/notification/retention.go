package notification

import (
	"context"
	"time"

	"github.com/fintrackhq/fintrack-backend/pkg/observability"
)

const (
	// RetentionAge is how long read notifications are kept.
	RetentionAge = 90 * 24 * time.Hour
	// sweepInterval is how often the retention sweep runs.
	sweepInterval = time.Hour
)

// Sweeper deletes read notifications older than the retention age.
// Housekeeping only; it never touches unread or undelivered rows.
type Sweeper struct {
	store    Store
	logger   *observability.Logger
	age      time.Duration
	interval time.Duration
}

func NewSweeper(store Store, logger *observability.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		age:      RetentionAge,
		interval: sweepInterval,
	}
}

// Run sweeps periodically until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.age)
			deleted, err := s.store.DeleteReadOlderThan(ctx, cutoff)
			if err != nil {
				s.logger.Error("retention sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.Info("retention sweep removed notifications", "count", deleted)
			}
		}
	}
}
