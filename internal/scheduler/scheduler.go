package scheduler

import (
	"context"
	"time"

	"github.com/railzwaylabs/plansync/internal/config"
	"github.com/railzwaylabs/plansync/internal/plan/ledger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Start),
)

const defaultInterval = time.Hour

type Params struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Ledger *ledger.Repository
}

// Scheduler runs background maintenance for the serve command.
type Scheduler struct {
	log       *zap.Logger
	ledger    *ledger.Repository
	retention time.Duration
	interval  time.Duration
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:       p.Log.Named("scheduler"),
		ledger:    p.Ledger,
		retention: p.Cfg.Database.Retention,
		interval:  defaultInterval,
	}
}

// RunForever runs every job once, then again on each tick until ctx ends.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runJobs(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJobs(ctx context.Context) {
	if err := s.PruneSyncRecordsJob(ctx); err != nil {
		s.log.Error("scheduler job failed", zap.String("job", "prune_sync_records"), zap.Error(err))
	}
}

func Start(lc fx.Lifecycle, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
