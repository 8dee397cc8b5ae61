// Package scheduler runs periodic maintenance jobs for the correction workflow.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/panelquote/internal/clock"
	governancedomain "github.com/smallbiznis/panelquote/internal/governance/domain"
	"github.com/smallbiznis/panelquote/internal/ratelimit"
	"github.com/smallbiznis/panelquote/pkg/telemetry"
	"github.com/smallbiznis/panelquote/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobExpireValidations = "expire_validations"

	lockKeyPrefix = "panelquote:scheduler:"
)

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type Params struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	GovernanceSvc governancedomain.Service
	Locker        ratelimit.Locker
	Config        Config             `optional:"true"`
	Telemetry     *telemetry.Metrics `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	clock         clock.Clock
	governanceSvc governancedomain.Service
	locker        ratelimit.Locker
	telemetry     *telemetry.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.GovernanceSvc == nil || p.Locker == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		clock:         p.Clock,
		governanceSvc: p.GovernanceSvc,
		locker:        p.Locker,
		telemetry:     p.Telemetry,
	}, nil
}

// runJob executes fn under a timeout while holding the job lock. A job already held
// by another instance is skipped; a timeout is logged and not returned.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()
	ctx, runID := correlation.EnsureCorrelationID(ctx)
	log := s.log.With(zap.String("job", name), zap.String("run_id", runID))

	token, ok, err := s.locker.TryLock(ctx, lockKeyPrefix+name, s.cfg.LockTTL)
	if err != nil {
		s.telemetry.ObserveJob(name, "lock_error", s.clock.Now().Sub(start))
		return fmt.Errorf("%s: acquire lock: %w", name, err)
	}
	if !ok {
		log.Debug("job skipped, lock held elsewhere")
		s.telemetry.ObserveJob(name, "skipped", s.clock.Now().Sub(start))
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKeyPrefix+name, token); err != nil {
			log.Warn("failed to release job lock", zap.Error(err))
		}
	}()

	err = fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	if err == nil {
		s.telemetry.ObserveJob(name, "ok", elapsed)
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.telemetry.ObserveJob(name, "timeout", elapsed)
		log.Warn("job timed out",
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	s.telemetry.ObserveJob(name, "error", elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, JobExpireValidations, s.ExpireValidationsJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpireValidationsJob rejects validated corrections whose impact report lapsed, so
// an abandoned validation does not hold its field.
func (s *Scheduler) ExpireValidationsJob(ctx context.Context) error {
	n, err := s.governanceSvc.ExpireStale(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("expired stale validations", zap.Int("count", n))
	}
	return nil
}
