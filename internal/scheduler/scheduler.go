// Package scheduler drives the periodic jobs: the quarter-hourly dispatch
// pass, the hourly token refresh, and the daily maintenance run. Jobs share
// no in-process state beyond what the database holds, so they only need
// fixed-cadence tickers, panic containment, and a context to stop on.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/config"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/observability"
)

// Job is one scheduled unit of work. RunCycle must tolerate being called
// again after a failure; the scheduler never stops ticking because of one.
type Job func(ctx context.Context)

// Scheduler owns the tickers and the goroutines behind them.
type Scheduler struct {
	cfg config.SchedulerConfig
	obs *observability.Observability
	log logger.Logger

	dispatch     Job
	tokenRefresh Job
	daily        Job

	wg sync.WaitGroup
}

func New(cfg config.SchedulerConfig, obs *observability.Observability, log logger.Logger,
	dispatch, tokenRefresh, daily Job) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		obs:          obs,
		log:          log,
		dispatch:     dispatch,
		tokenRefresh: tokenRefresh,
		daily:        daily,
	}
}

// Start launches one goroutine per job and returns. Jobs stop when ctx is
// cancelled; Wait blocks until they have all drained.
func (s *Scheduler) Start(ctx context.Context) {
	s.launch(ctx, "dispatch", time.Duration(s.cfg.DispatchInterval)*time.Minute, s.dispatch)
	s.launch(ctx, "token_refresh", time.Duration(s.cfg.TokenRefreshInterval)*time.Minute, s.tokenRefresh)
	s.launch(ctx, "daily_maintenance", time.Duration(s.cfg.DailyInterval)*time.Minute, s.daily)
}

// Wait blocks until every job goroutine has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) launch(ctx context.Context, name string, interval time.Duration, job Job) {
	if job == nil {
		return
	}
	if interval <= 0 {
		s.log.Warn("job disabled, non-positive interval", map[string]interface{}{
			"job": name,
		})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.log.Info("job scheduled", map[string]interface{}{
			"job":      name,
			"interval": interval.String(),
		})

		// First run happens immediately so a restart does not wait a full
		// interval to resume integration traffic.
		s.runOnce(ctx, name, job)
		for {
			select {
			case <-ctx.Done():
				s.log.Info("job stopped", map[string]interface{}{"job": name})
				return
			case <-ticker.C:
				s.runOnce(ctx, name, job)
			}
		}
	}()
}

// runOnce executes one cycle with panic containment. A panicking job is a
// bug, but it must not take the other tickers down with it.
func (s *Scheduler) runOnce(ctx context.Context, name string, job Job) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.obs.RecordCycle(ctx, name, "panic")
			s.log.Error("job panicked", map[string]interface{}{
				"job":   name,
				"panic": r,
			})
			return
		}
		s.obs.RecordCycle(ctx, name, "completed")
		s.obs.RecordCycleDuration(ctx, name, time.Since(started))
	}()
	job(ctx)
}
