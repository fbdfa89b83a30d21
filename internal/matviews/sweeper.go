package matviews

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper runs the reconcile garbage-collection sweep on a fixed interval,
// driven by the authoritative live project-id set.
type Sweeper struct {
	Views    *Manager
	LiveIDs  func(ctx context.Context) ([]int64, error)
	Interval time.Duration
}

// Run blocks until ctx is cancelled. A failed listing skips the tick; the
// sweep itself is idempotent so a missed tick only delays cleanup.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := s.LiveIDs(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Reconcile sweep skipped; live project listing failed")
				continue
			}
			if _, err := s.Views.Reconcile(ctx, ids); err != nil {
				log.Error().Err(err).Msg("Reconcile sweep finished with errors")
			}
		}
	}
}
