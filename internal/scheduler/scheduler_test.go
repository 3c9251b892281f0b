package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/config"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/observability"
)

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		DispatchInterval:     1,
		TokenRefreshInterval: 1,
		DailyInterval:        1,
	}
}

func TestScheduler_RunsJobsImmediatelyAndStopsOnCancel(t *testing.T) {
	var dispatches, refreshes, dailies int32
	s := New(testSchedulerConfig(), observability.New("test"), logger.NewNoOpLogger(),
		func(context.Context) { atomic.AddInt32(&dispatches, 1) },
		func(context.Context) { atomic.AddInt32(&refreshes, 1) },
		func(context.Context) { atomic.AddInt32(&dailies, 1) },
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&dispatches) >= 1 &&
			atomic.LoadInt32(&refreshes) >= 1 &&
			atomic.LoadInt32(&dailies) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not drain after cancel")
	}
}

func TestScheduler_PanickingJobDoesNotKillOthers(t *testing.T) {
	var refreshes int32
	s := New(testSchedulerConfig(), observability.New("test"), logger.NewNoOpLogger(),
		func(context.Context) { panic("job bug") },
		func(context.Context) { atomic.AddInt32(&refreshes, 1) },
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.NotPanics(t, func() { s.Start(ctx) })
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&refreshes) >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_NonPositiveIntervalDisablesJob(t *testing.T) {
	var ran int32
	cfg := config.SchedulerConfig{DispatchInterval: 0}
	s := New(cfg, observability.New("test"), logger.NewNoOpLogger(),
		func(context.Context) { atomic.AddInt32(&ran, 1) }, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&ran))
	s.Wait()
}
