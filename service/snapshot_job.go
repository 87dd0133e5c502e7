package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartSnapshotJob snapshots every pair on a fixed interval. Each
// snapshot runs as a command in the pair's worker, so it sees a book
// with no command in flight.
func (s *OrderService) StartSnapshotJob(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for pair := range s.workers {
					if err := s.Snapshot(ctx, pair); err != nil {
						s.log.Warn("snapshot failed",
							zap.String("pair", pair), zap.Error(err))
					}
				}
			}
		}
	}()
}
