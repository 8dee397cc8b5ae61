package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/panelquote/internal/clock"
	governancedomain "github.com/smallbiznis/panelquote/internal/governance/domain"
	"github.com/smallbiznis/panelquote/internal/ratelimit"
	"github.com/smallbiznis/panelquote/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGovernance struct {
	governancedomain.Service

	calls  int
	limit  int
	result int
	err    error
	wait   bool
}

func (f *fakeGovernance) ExpireStale(ctx context.Context, limit int) (int, error) {
	f.calls++
	f.limit = limit
	if f.wait {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return f.result, f.err
}

func newTestScheduler(t *testing.T, gov *fakeGovernance, locker ratelimit.Locker, cfg Config) (*Scheduler, *telemetry.Metrics) {
	t.Helper()
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	sched, err := New(Params{
		Log:           zap.NewNop(),
		Clock:         clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		GovernanceSvc: gov,
		Locker:        locker,
		Config:        cfg,
		Telemetry:     metrics,
	})
	require.NoError(t, err)
	return sched, metrics
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceExpiresWithConfiguredBatch(t *testing.T) {
	gov := &fakeGovernance{result: 3}
	sched, metrics := newTestScheduler(t, gov, ratelimit.NewLocalLocker(), Config{BatchSize: 7})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, gov.calls)
	assert.Equal(t, 7, gov.limit)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRuns().WithLabelValues(JobExpireValidations, "ok")))
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	locker := ratelimit.NewLocalLocker()
	_, ok, err := locker.TryLock(context.Background(), lockKeyPrefix+JobExpireValidations, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	gov := &fakeGovernance{}
	sched, metrics := newTestScheduler(t, gov, locker, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Zero(t, gov.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRuns().WithLabelValues(JobExpireValidations, "skipped")))
}

func TestRunOnceReleasesLockAfterRun(t *testing.T) {
	locker := ratelimit.NewLocalLocker()
	gov := &fakeGovernance{}
	sched, _ := newTestScheduler(t, gov, locker, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 2, gov.calls)
}

func TestRunOnceReturnsJobErrors(t *testing.T) {
	gov := &fakeGovernance{err: errors.New("db down")}
	sched, metrics := newTestScheduler(t, gov, ratelimit.NewLocalLocker(), Config{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobExpireValidations)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRuns().WithLabelValues(JobExpireValidations, "error")))
}

func TestRunOnceTreatsTimeoutAsSoft(t *testing.T) {
	gov := &fakeGovernance{wait: true}
	sched, metrics := newTestScheduler(t, gov, ratelimit.NewLocalLocker(), Config{JobTimeout: 10 * time.Millisecond})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRuns().WithLabelValues(JobExpireValidations, "timeout")))
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	gov := &fakeGovernance{}
	sched, _ := newTestScheduler(t, gov, ratelimit.NewLocalLocker(), Config{RunInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.RunForever(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunForever did not return after cancel")
	}
	assert.LessOrEqual(t, gov.calls, 1)
}
