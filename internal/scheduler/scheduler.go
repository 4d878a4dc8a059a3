package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nomadlabs/atlas/internal/config"
	refreshdomain "github.com/nomadlabs/atlas/internal/refresh/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Holder  *config.RefreshConfigHolder
	Refresh refreshdomain.Service
}

// Scheduler triggers a full refresh cycle at a fixed interval. A cycle
// that is still running when the ticker fires is not stacked; the tick
// is skipped and logged.
type Scheduler struct {
	log     *zap.Logger
	holder  *config.RefreshConfigHolder
	refresh refreshdomain.Service
	running atomic.Bool
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:     p.Log.Named("scheduler"),
		holder:  p.Holder,
		refresh: p.Refresh,
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.holder.Current().SchedulerInterval
	s.log.Info("scheduler started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			// Pick up interval changes from config hot reload.
			if next := s.holder.Current().SchedulerInterval; next != interval {
				interval = next
				ticker.Reset(interval)
				s.log.Info("scheduler interval updated", zap.Duration("interval", interval))
			}
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous refresh still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	result, err := s.refresh.Refresh(ctx, refreshdomain.TriggerScheduler)
	if err != nil {
		s.log.Error("scheduled refresh failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled refresh completed",
		zap.Int("processed", result.Processed),
		zap.Int("failed", len(result.Errors)),
	)
}
