package service

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	auditdomain "github.com/smallbiznis/panelquote/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/internal/catalog/store"
	"github.com/smallbiznis/panelquote/internal/clock"
	"github.com/smallbiznis/panelquote/internal/config"
	"github.com/smallbiznis/panelquote/internal/governance/credential"
	governancedomain "github.com/smallbiznis/panelquote/internal/governance/domain"
	"github.com/smallbiznis/panelquote/internal/observability/metrics"
	quotationdomain "github.com/smallbiznis/panelquote/internal/quotation/domain"
	"github.com/smallbiznis/panelquote/internal/ratelimit"
	"github.com/smallbiznis/panelquote/pkg/db"
	"github.com/smallbiznis/panelquote/pkg/db/pagination"
	"github.com/smallbiznis/panelquote/pkg/telemetry"
	"github.com/smallbiznis/panelquote/pkg/validate"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockKeyPrefix = "panelquote:governance:"

	defaultWindow        = 50
	defaultImpactTTL     = 15 * time.Minute
	defaultCommitTimeout = 5 * time.Second
	defaultLockTTL       = 30 * time.Second
	defaultAuditRetries  = 4
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Config      config.Config
	Whitelist   *config.GovernanceConfigHolder
	Store       *store.Store
	CatalogRepo catalogdomain.Repository
	Repo        governancedomain.Repository
	Quotes      quotationdomain.Service
	History     quotationdomain.History
	Audit       auditdomain.Service
	Locker      ratelimit.Locker
	Metrics     *metrics.Metrics   `optional:"true"`
	Telemetry   *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	whitelist   *config.GovernanceConfigHolder
	store       *store.Store
	catalogRepo catalogdomain.Repository
	repo        governancedomain.Repository
	quotes      quotationdomain.Service
	history     quotationdomain.History
	audit       auditdomain.Service
	locker      ratelimit.Locker
	metrics     *metrics.Metrics
	telemetry   *telemetry.Metrics

	credential    credential.Verifier
	window        int
	impactTTL     time.Duration
	commitTimeout time.Duration
	lockTTL       time.Duration
	auditRetries  uint
}

func NewService(p Params) governancedomain.Service {
	cfg := p.Config.Governance
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("governance.service"),
		clock:       p.Clock,
		whitelist:   p.Whitelist,
		store:       p.Store,
		catalogRepo: p.CatalogRepo,
		repo:        p.Repo,
		quotes:      p.Quotes,
		history:     p.History,
		audit:       p.Audit,
		locker:      p.Locker,
		metrics:     p.Metrics,
		telemetry:   p.Telemetry,

		credential:    credential.New(cfg.WriteCredential),
		window:        positiveOr(cfg.ImpactWindow, defaultWindow),
		impactTTL:     positiveOr(cfg.ImpactTTL, defaultImpactTTL),
		commitTimeout: positiveOr(cfg.CommitTimeout, defaultCommitTimeout),
		lockTTL:       positiveOr(cfg.LockTTL, defaultLockTTL),
		auditRetries:  positiveOr(cfg.AuditMaxRetries, defaultAuditRetries),
	}
}

func (s *Service) Propose(ctx context.Context, req governancedomain.ProposeRequest) (c *governancedomain.Correction, err error) {
	defer func() { s.record(ctx, "propose", err) }()

	req.Target = req.Target.Normalize()
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	target := req.Target
	if !s.whitelist.Get().Allows(string(target.EntityType), target.Field) {
		return nil, apperror.New(apperror.CodeFieldNotWhitelisted, "%s.%s is not open to corrections", target.EntityType, target.Field)
	}
	if err := catalogdomain.ValidateValue(target, req.OldValue); err != nil {
		return nil, err
	}
	if err := catalogdomain.ValidateValue(target, req.NewValue); err != nil {
		return nil, err
	}
	if _, err := s.store.Current(target); err != nil {
		return nil, err
	}

	key := target.Key()
	token, ok, err := s.locker.TryLock(ctx, lockKeyPrefix+key, s.lockTTL)
	if err != nil {
		return nil, apperror.Persistence(err, "failed to acquire field lock")
	}
	if !ok {
		return nil, conflict(target)
	}
	defer func() {
		if releaseErr := s.locker.Release(context.WithoutCancel(ctx), lockKeyPrefix+key, token); releaseErr != nil {
			s.log.Warn("failed to release field lock", zap.String("target", key), zap.Error(releaseErr))
		}
	}()

	now := s.clock.Now()
	c = &governancedomain.Correction{
		ID:         ulid.Make().String(),
		EntityType: string(target.EntityType),
		EntityID:   target.EntityID,
		Field:      target.Field,
		OldValue:   req.OldValue,
		NewValue:   req.NewValue,
		Reason:     strings.TrimSpace(req.Reason),
		Reporter:   strings.TrimSpace(req.Reporter),
		Status:     governancedomain.StatusProposed,
		ActiveKey:  &key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, c); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, conflict(target)
		}
		s.telemetry.RecordPersistenceFailure("propose", err)
		return nil, apperror.Persistence(err, "failed to record correction")
	}

	s.telemetry.RecordTransition("", string(governancedomain.StatusProposed))
	s.log.Info("correction proposed",
		zap.String("correction_id", c.ID),
		zap.String("target", key),
		zap.String("reporter", c.Reporter),
	)
	return c, nil
}

func (s *Service) Validate(ctx context.Context, id string) (c *governancedomain.Correction, err error) {
	defer func() { s.record(ctx, "validate", err) }()

	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	c, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != governancedomain.StatusProposed {
		return nil, invalidTransition(c.Status, governancedomain.StatusValidated)
	}

	target := c.Target()
	snap := s.store.Snapshot()
	current, err := snap.ValueOf(target)
	if err != nil {
		return nil, err
	}
	if !current.Equal(c.OldValue) {
		return nil, valueMismatch(target)
	}

	report, err := s.simulate(ctx, c, snap)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	next := *c
	next.Status = governancedomain.StatusValidated
	next.Impact = report
	next.ValidatedAt = &now
	next.UpdatedAt = now
	if err := s.transition(ctx, s.db, &next, governancedomain.StatusProposed); err != nil {
		return nil, err
	}

	s.metrics.RecordImpactAnalyzed(ctx, c.Field, report.AnalyzedCount)
	s.log.Info("correction validated",
		zap.String("correction_id", c.ID),
		zap.Int("analyzed", report.AnalyzedCount),
		zap.Int("skipped", report.SkippedCount),
		zap.String("price_delta_mean", report.PriceDelta.Mean.String()),
		zap.Time("expires_at", report.ExpiresAt),
	)
	return &next, nil
}

func (s *Service) Commit(ctx context.Context, req governancedomain.CommitRequest) (c *governancedomain.Correction, err error) {
	defer func() { s.record(ctx, "commit", err) }()

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	// the credential gates everything else, including whether the correction exists
	if !s.credential.Verify(req.Credential) {
		s.log.Warn("commit refused: credential mismatch", zap.String("correction_id", req.ID))
		return nil, apperror.New(apperror.CodeAuthorization, "write credential not accepted")
	}
	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	c, err = s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if c.Status != governancedomain.StatusValidated {
		return nil, invalidTransition(c.Status, governancedomain.StatusCommitted)
	}

	now := s.clock.Now()
	if c.Impact.Expired(now) {
		if _, err := s.expire(ctx, c, now); err != nil {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeValidationExpired, "impact report expired; propose the correction again")
	}

	actor := strings.TrimSpace(req.Actor)
	next := *c
	next.Status = governancedomain.StatusCommitted
	next.ActiveKey = nil
	next.CommittedBy = actor
	next.CommittedAt = &now
	next.UpdatedAt = now

	target := c.Target()
	_, err = s.store.ApplyMutation(ctx, target, c.OldValue, c.NewValue, func(ctx context.Context, before, after decimal.Decimal) error {
		return s.writeAhead(ctx, &next, before, after, actor, now)
	})
	if err != nil {
		if apperror.CodeOf(err) == "" {
			return nil, apperror.Persistence(err, "commit did not complete")
		}
		return nil, err
	}

	s.log.Info("correction committed",
		zap.String("correction_id", c.ID),
		zap.String("target", target.Key()),
		zap.String("actor", actor),
	)
	return &next, nil
}

// writeAhead persists the audit entry, the reference row and the correction status in one
// transaction. Transient failures are retried; the store is only updated after it returns nil.
func (s *Service) writeAhead(ctx context.Context, next *governancedomain.Correction, before, after decimal.Decimal, actor string, now time.Time) error {
	target := next.Target()
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxInterval = time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := s.audit.Append(ctx, tx, auditdomain.AppendRequest{
				CorrectionID: next.ID,
				Target:       target,
				Before:       before,
				After:        after,
				Actor:        actor,
				CommittedAt:  now,
				Metadata: map[string]any{
					"reason":   next.Reason,
					"reporter": next.Reporter,
				},
			}); err != nil {
				return err
			}
			if err := s.catalogRepo.UpdateField(ctx, tx, target, before, after, now); err != nil {
				return err
			}
			return s.transition(ctx, tx, next, governancedomain.StatusValidated)
		})
		if err == nil {
			return struct{}{}, nil
		}
		if code := apperror.CodeOf(err); code != "" && code != apperror.CodePersistence {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.auditRetries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.telemetry.RecordAuditRetry()
			s.log.Warn("audit append failed, retrying",
				zap.String("correction_id", next.ID),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	if err == nil {
		return nil
	}
	if code := apperror.CodeOf(err); code != "" && code != apperror.CodePersistence {
		return err
	}
	s.telemetry.RecordPersistenceFailure("commit", err)
	s.log.Error("audit append failed, store unchanged", zap.String("correction_id", next.ID), zap.Error(err))
	return apperror.Persistence(err, "audit log write failed; nothing was changed")
}

func (s *Service) Reject(ctx context.Context, req governancedomain.RejectRequest) (c *governancedomain.Correction, err error) {
	defer func() { s.record(ctx, "reject", err) }()

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !s.credential.Verify(req.Credential) {
		s.log.Warn("reject refused: credential mismatch", zap.String("correction_id", req.ID))
		return nil, apperror.New(apperror.CodeAuthorization, "write credential not accepted")
	}
	c, err = s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !c.Status.CanTransition(governancedomain.StatusRejected) {
		return nil, invalidTransition(c.Status, governancedomain.StatusRejected)
	}

	now := s.clock.Now()
	from := c.Status
	next := *c
	next.Status = governancedomain.StatusRejected
	next.ActiveKey = nil
	next.RejectReason = strings.TrimSpace(req.Reason)
	next.RejectedAt = &now
	next.UpdatedAt = now
	if err := s.transition(ctx, s.db, &next, from); err != nil {
		return nil, err
	}
	s.log.Info("correction rejected", zap.String("correction_id", c.ID), zap.String("from", string(from)))
	return &next, nil
}

func (s *Service) Get(ctx context.Context, id string) (*governancedomain.Correction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.InputValidation("correction id is required")
	}
	c, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, apperror.Persistence(err, "failed to load correction")
	}
	if c == nil {
		return nil, apperror.New(apperror.CodeNotFound, "correction not found")
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, req governancedomain.ListRequest) (governancedomain.ListResponse, error) {
	status := governancedomain.Status(strings.TrimSpace(req.Status))
	switch status {
	case "", governancedomain.StatusProposed, governancedomain.StatusValidated,
		governancedomain.StatusCommitted, governancedomain.StatusRejected:
	default:
		return governancedomain.ListResponse{}, apperror.InputValidation("unknown status %q", status)
	}

	var cursor *governancedomain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return governancedomain.ListResponse{}, apperror.InputValidation("invalid page token")
		}
		createdAt, err := decoded.Time()
		if err != nil {
			return governancedomain.ListResponse{}, apperror.InputValidation("invalid page token")
		}
		cursor = &governancedomain.Cursor{ID: decoded.ID, CreatedAt: createdAt}
	}

	pageSize := req.Size()
	items, err := s.repo.List(ctx, s.db, governancedomain.ListFilter{
		Status:     status,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Field:      req.Field,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return governancedomain.ListResponse{}, apperror.Persistence(err, "failed to list corrections")
	}

	items, pageInfo := pagination.Trim(items, pageSize, func(item *governancedomain.Correction) pagination.Cursor {
		return pagination.Cursor{ID: item.ID, CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano)}
	})
	out := make([]governancedomain.Correction, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return governancedomain.ListResponse{PageInfo: pageInfo, Corrections: out}, nil
}

func (s *Service) ExpireStale(ctx context.Context, limit int) (n int, err error) {
	defer func() { s.record(ctx, "expire", err) }()
	if limit <= 0 {
		limit = defaultWindow
	}

	now := s.clock.Now()
	cutoff := now.Add(-s.impactTTL)
	items, err := s.repo.List(ctx, s.db, governancedomain.ListFilter{
		Status:          governancedomain.StatusValidated,
		ValidatedBefore: &cutoff,
		Limit:           limit,
	})
	if err != nil {
		return 0, apperror.Persistence(err, "failed to list validated corrections")
	}
	if len(items) > limit {
		items = items[:limit]
	}

	for _, c := range items {
		if !c.Impact.Expired(now) {
			continue
		}
		if _, err := s.expire(ctx, c, now); err != nil {
			// committed or rejected since it was listed
			if apperror.CodeOf(err) == apperror.CodeInvalidTransition {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// expire moves a validated correction whose report has lapsed to rejected.
func (s *Service) expire(ctx context.Context, c *governancedomain.Correction, now time.Time) (*governancedomain.Correction, error) {
	next := *c
	next.Status = governancedomain.StatusRejected
	next.ActiveKey = nil
	next.RejectReason = "validation expired"
	next.RejectedAt = &now
	next.UpdatedAt = now
	if err := s.transition(ctx, s.db, &next, governancedomain.StatusValidated); err != nil {
		return nil, err
	}
	s.log.Info("correction expired", zap.String("correction_id", c.ID))
	return &next, nil
}

func (s *Service) transition(ctx context.Context, tx *gorm.DB, next *governancedomain.Correction, from governancedomain.Status) error {
	ok, err := s.repo.Transition(ctx, tx, next, from)
	if err != nil {
		return apperror.Persistence(err, "failed to update correction")
	}
	if !ok {
		return apperror.New(apperror.CodeInvalidTransition, "correction is no longer %s", from)
	}
	s.telemetry.RecordTransition(string(from), string(next.Status))
	return nil
}

func (s *Service) record(ctx context.Context, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperror.CodeOf(err))
		if outcome == "" {
			outcome = "internal"
		}
	}
	s.metrics.RecordCorrection(ctx, op, outcome)
}

func conflict(target catalogdomain.Target) error {
	return apperror.New(apperror.CodeGovernanceConflict, "an open correction already exists for %s.%s", target.EntityID, target.Field)
}

func valueMismatch(target catalogdomain.Target) error {
	return apperror.New(apperror.CodeValueMismatch, "current value of %s no longer matches the expected old value", target.Field)
}

func invalidTransition(from, to governancedomain.Status) error {
	return apperror.New(apperror.CodeInvalidTransition, "cannot move a %s correction to %s", from, to)
}

func positiveOr[T int | uint | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
