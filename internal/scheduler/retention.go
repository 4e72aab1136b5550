package scheduler

import (
	"context"

	"go.uber.org/zap"
)

func (s *Scheduler) PruneSyncRecordsJob(ctx context.Context) error {
	if s.retention <= 0 {
		s.log.Debug("sync record retention disabled")
		return nil
	}

	deleted, err := s.ledger.Prune(ctx, s.retention)
	if err != nil {
		return err
	}
	s.log.Info("pruned sync records", zap.Int64("deleted", deleted), zap.Duration("retention", s.retention))
	return nil
}
