package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	auditdomain "github.com/smallbiznis/panelquote/internal/audit/domain"
	auditrepository "github.com/smallbiznis/panelquote/internal/audit/repository"
	auditservice "github.com/smallbiznis/panelquote/internal/audit/service"
	"github.com/smallbiznis/panelquote/internal/catalog/catalogtest"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/panelquote/internal/catalog/repository"
	"github.com/smallbiznis/panelquote/internal/catalog/store"
	"github.com/smallbiznis/panelquote/internal/clock"
	"github.com/smallbiznis/panelquote/internal/config"
	"github.com/smallbiznis/panelquote/internal/governance/domain"
	"github.com/smallbiznis/panelquote/internal/governance/repository"
	quotationdomain "github.com/smallbiznis/panelquote/internal/quotation/domain"
	quotationrepository "github.com/smallbiznis/panelquote/internal/quotation/repository"
	quotationservice "github.com/smallbiznis/panelquote/internal/quotation/service"
	"github.com/smallbiznis/panelquote/internal/ratelimit"
	"github.com/smallbiznis/panelquote/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const writeCredential = "s3cret-write"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type harness struct {
	db          *gorm.DB
	svc         domain.Service
	store       *store.Store
	clock       *clock.FakeClock
	audit       auditdomain.Service
	catalogRepo catalogdomain.Repository
	params      Params
}

type option func(*Params)

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t,
		&catalogdomain.PricingPolicy{}, &catalogdomain.CatalogItem{}, &catalogdomain.BOMRule{}, &catalogdomain.SpanEntry{},
		&quotationdomain.Quotation{}, &quotationdomain.LineItem{},
		&domain.Correction{}, &auditdomain.AuditEntry{},
	)
	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))

	catalogRepo := catalogrepository.Provide()
	require.NoError(t, catalogRepo.ReplaceAll(ctx, db, catalogtest.Snapshot()))
	st := store.New(log, clk, catalogtest.Snapshot())

	cfg := config.Config{
		Quote: config.QuoteConfig{SanityCeilingM: 100, RecordHistory: true},
		Governance: config.GovernanceConfig{
			WriteCredential: writeCredential,
			ImpactWindow:    50,
			ImpactTTL:       15 * time.Minute,
			CommitTimeout:   5 * time.Second,
			LockTTL:         30 * time.Second,
			AuditMaxRetries: 3,
		},
	}

	quoteRepo := quotationrepository.Provide()
	quotes := quotationservice.NewService(quotationservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk, Store: st, Repo: quoteRepo, Config: cfg,
	})
	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Repo: auditrepository.Provide()})

	p := Params{
		DB:          db,
		Log:         log,
		Clock:       clk,
		Config:      cfg,
		Whitelist:   config.NewStaticGovernanceHolder(config.DefaultGovernanceFile()),
		Store:       st,
		CatalogRepo: catalogRepo,
		Repo:        repository.Provide(),
		Quotes:      quotes,
		History:     quotationrepository.NewHistory(db, quoteRepo),
		Audit:       audit,
		Locker:      ratelimit.NewLocalLocker(),
	}
	for _, opt := range opts {
		opt(&p)
	}

	for _, req := range historicalRequests() {
		_, err := quotes.Assemble(ctx, req)
		require.NoError(t, err)
	}

	return &harness{db: db, svc: NewService(p), store: st, clock: clk, audit: audit, catalogRepo: catalogRepo, params: p}
}

// replica builds a second service over the same database with its own store, loaded
// from the fixture and therefore unaware of anything committed through h.
func (h *harness) replica(t *testing.T) (domain.Service, *store.Store) {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	st := store.New(h.params.Log, h.clock, catalogtest.Snapshot())
	quoteRepo := quotationrepository.Provide()
	p := h.params
	p.Store = st
	p.Locker = ratelimit.NewLocalLocker()
	p.Quotes = quotationservice.NewService(quotationservice.ServiceParam{
		DB: h.db, Log: p.Log, GenID: node, Clock: h.clock, Store: st, Repo: quoteRepo, Config: p.Config,
	})
	p.History = quotationrepository.NewHistory(h.db, quoteRepo)
	return NewService(p), st
}

// historicalRequests yields two quotations using ACC-SEAL and one that does not.
func historicalRequests() []quotationdomain.Request {
	return []quotationdomain.Request{
		{CustomerRef: "ACME-1", Family: "EPS", ThicknessMm: 50, LengthM: d("6"), WidthM: d("10"), SpanM: d("6"), SupportSpacingM: d("1"), Openings: 2},
		{CustomerRef: "ACME-2", Family: "EPS", ThicknessMm: 75, LengthM: d("8.5"), WidthM: d("12.3"), SpanM: d("7.5"), SupportSpacingM: d("1.5")},
		{CustomerRef: "ACME-3", Family: "PU", ThicknessMm: 50, LengthM: d("4"), WidthM: d("5"), SpanM: d("5"), SupportSpacingM: d("1"), Openings: 1},
	}
}

func sealTarget(field string) catalogdomain.Target {
	return catalogdomain.Target{EntityType: catalogdomain.EntityCatalogItem, EntityID: "ACC-SEAL", Field: field}
}

func (h *harness) propose(t *testing.T, field, oldValue, newValue string) *domain.Correction {
	t.Helper()
	c, err := h.svc.Propose(context.Background(), domain.ProposeRequest{
		Target:   sealTarget(field),
		OldValue: d(oldValue),
		NewValue: d(newValue),
		Reason:   "supplier datasheet revision",
		Reporter: "estimator@example.com",
	})
	require.NoError(t, err)
	return c
}

func TestWeightCorrectionEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.propose(t, "weight_grams", "1300", "1500")
	assert.Equal(t, domain.StatusProposed, c.Status)

	validated, err := h.svc.Validate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, validated.Status)
	report := validated.Impact
	require.NotNil(t, report)
	assert.Equal(t, 2, report.AnalyzedCount)
	assert.Equal(t, 2, report.ReferencingCount)
	assert.Zero(t, report.SkippedCount)
	assert.LessOrEqual(t, report.AnalyzedCount, 50)
	assert.True(t, report.PriceDelta.Max.IsZero())
	assert.True(t, report.WeightDelta.Min.Equal(d("600")), report.WeightDelta.Min.String())
	assert.True(t, report.WeightDelta.Max.Equal(d("1046")), report.WeightDelta.Max.String())
	assert.True(t, report.WeightDelta.Mean.Equal(d("823")), report.WeightDelta.Mean.String())
	assert.Equal(t, h.clock.Now().Add(15*time.Minute), report.ExpiresAt)

	committed, err := h.svc.Commit(ctx, domain.CommitRequest{ID: c.ID, Credential: writeCredential, Actor: "lead@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCommitted, committed.Status)
	assert.Equal(t, "lead@example.com", committed.CommittedBy)

	item, err := h.store.Lookup("ACC-SEAL")
	require.NoError(t, err)
	assert.True(t, item.WeightGrams.Equal(d("1500")))
	assert.Equal(t, int64(2), item.Version)

	entries, err := h.audit.List(ctx, auditdomain.ListRequest{CorrectionID: c.ID})
	require.NoError(t, err)
	require.Len(t, entries.Entries, 1)
	assert.True(t, entries.Entries[0].Before.Equal(d("1300")))
	assert.True(t, entries.Entries[0].After.Equal(d("1500")))
	assert.Equal(t, "lead@example.com", entries.Entries[0].Actor)

	persisted, err := h.catalogRepo.Load(ctx, h.db)
	require.NoError(t, err)
	assert.True(t, persisted.Items["ACC-SEAL"].WeightGrams.Equal(d("1500")))

	stored, err := h.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCommitted, stored.Status)
	assert.Nil(t, stored.ActiveKey)
	require.NotNil(t, stored.Impact)
	assert.Equal(t, 2, stored.Impact.AnalyzedCount)
}

func TestPriceCorrectionImpact(t *testing.T) {
	h := newHarness(t)

	c := h.propose(t, "unit_price", "8.40", "9.40")
	validated, err := h.svc.Validate(context.Background(), c.ID)
	require.NoError(t, err)

	report := validated.Impact
	assert.True(t, report.PriceDelta.Min.Equal(d("3.33")), report.PriceDelta.Min.String())
	assert.True(t, report.PriceDelta.Max.Equal(d("5.81")), report.PriceDelta.Max.String())
	assert.True(t, report.PriceDelta.Mean.Equal(d("4.57")), report.PriceDelta.Mean.String())
	assert.True(t, report.WeightDelta.Max.IsZero())

	item, err := h.store.Lookup("ACC-SEAL")
	require.NoError(t, err)
	assert.True(t, item.UnitPrice.Equal(d("8.40")), "validation must not touch the store")
}

func TestCommitWithWrongCredentialChangesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.propose(t, "weight_grams", "1300", "1500")
	_, err := h.svc.Validate(ctx, c.ID)
	require.NoError(t, err)
	before := h.store.Snapshot()

	for _, credential := range []string{"", "s3cret", "s3cret-write-2"} {
		_, err = h.svc.Commit(ctx, domain.CommitRequest{ID: c.ID, Credential: credential, Actor: "lead"})
		assert.ErrorIs(t, err, apperror.ErrAuthorization)
		assert.NotContains(t, err.Error(), writeCredential)
	}

	assert.Same(t, before, h.store.Snapshot())
	stored, err := h.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, stored.Status)

	entries, err := h.audit.List(ctx, auditdomain.ListRequest{CorrectionID: c.ID})
	require.NoError(t, err)
	assert.Empty(t, entries.Entries)
}

func TestValidateAfterConcurrentChangeIsMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.propose(t, "weight_grams", "1300", "1500")

	_, err := h.store.ApplyMutation(ctx, sealTarget("weight_grams"), d("1300"), d("1350"), nil)
	require.NoError(t, err)

	_, err = h.svc.Validate(ctx, c.ID)
	assert.ErrorIs(t, err, apperror.ErrValueMismatch)

	stored, err := h.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProposed, stored.Status)
	assert.Nil(t, stored.Impact)
}

func TestCommitAfterConcurrentChangeIsMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.propose(t, "unit_price", "8.40", "9.40")
	_, err := h.svc.Validate(ctx, c.ID)
	require.NoError(t, err)

	_, err = h.store.ApplyMutation(ctx, sealTarget("unit_price"), d("8.40"), d("8.90"), nil)
	require.NoError(t, err)
	changed := h.store.Snapshot()

	_, err = h.svc.Commit(ctx, domain.CommitRequest{ID: c.ID, Credential: writeCredential, Actor: "lead"})
	assert.ErrorIs(t, err, apperror.ErrValueMismatch)
	assert.Same(t, changed, h.store.Snapshot())

	entries, err := h.audit.List(ctx, auditdomain.ListRequest{CorrectionID: c.ID})
	require.NoError(t, err)
	assert.Empty(t, entries.Entries)
}

func TestConcurrentProposalsSingleWinner(t *testing.T) {
	h := newHarness(t)

	const n = 8
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.svc.Propose(context.Background(), domain.ProposeRequest{
				Target:   sealTarget("unit_price"),
				OldValue: d("8.40"),
				NewValue: d("9.00"),
				Reason:   "price list",
				Reporter: "estimator",
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, apperror.ErrGovernanceConflict):
				conflicts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())

	list, err := h.svc.List(context.Background(), domain.ListRequest{Status: "proposed"})
	require.NoError(t, err)
	assert.Len(t, list.Corrections, 1)
}

func TestDistinctFieldsDoNotConflict(t *testing.T) {
	h := newHarness(t)
	h.propose(t, "unit_price", "8.40", "9.00")
	h.propose(t, "weight_grams", "1300", "1400")
}

func TestProposeRejectsBadRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.ProposeRequest
		code apperror.Code
	}{
		{"not whitelisted", domain.ProposeRequest{Target: sealTarget("length_mm"), OldValue: d("0"), NewValue: d("10"), Reason: "r", Reporter: "u"}, apperror.CodeFieldNotWhitelisted},
		{"negative value", domain.ProposeRequest{Target: sealTarget("unit_price"), OldValue: d("8.40"), NewValue: d("-1"), Reason: "r", Reporter: "u"}, apperror.CodeInputValidation},
		{"missing reason", domain.ProposeRequest{Target: sealTarget("unit_price"), OldValue: d("8.40"), NewValue: d("9"), Reporter: "u"}, apperror.CodeInputValidation},
		{"missing reporter", domain.ProposeRequest{Target: sealTarget("unit_price"), OldValue: d("8.40"), NewValue: d("9"), Reason: "r"}, apperror.CodeInputValidation},
		{"unknown sku", domain.ProposeRequest{Target: catalogdomain.Target{EntityType: catalogdomain.EntityCatalogItem, EntityID: "NOPE", Field: "unit_price"}, OldValue: d("1"), NewValue: d("2"), Reason: "r", Reporter: "u"}, apperror.CodeCatalogLookup},
		{"unknown entity type", domain.ProposeRequest{Target: catalogdomain.Target{EntityType: "bom_rule", EntityID: "r-corner", Field: "rate"}, OldValue: d("4"), NewValue: d("5"), Reason: "r", Reporter: "u"}, apperror.CodeFieldNotWhitelisted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Propose(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperror.CodeOf(err))
		})
	}
}

func TestExpiredValidationRejectsCorrection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.propose(t, "unit_price", "8.40", "9.40")
	_, err := h.svc.Validate(ctx, c.ID)
	require.NoError(t, err)

	h.clock.Advance(15 * time.Minute)
	_, err = h.svc.Commit(ctx, domain.CommitRequest{ID: c.ID, Credential: writeCredential, Actor: "lead"})
	assert.ErrorIs(t, err, apperror.ErrValidationExpired)

	stored, err := h.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	assert.Equal(t, "validation expired", stored.RejectReason)

	item, err := h.store.Lookup("ACC-SEAL")
	require.NoError(t, err)
	assert.True(t, item.UnitPrice.Equal(d("8.40")))

	h.propose(t, "unit_price", "8.40", "9.40")
}

func TestExpireStaleFreesFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	stale := h.propose(t, "unit_price", "8.40", "9.40")
	_, err := h.svc.Validate(ctx, stale.ID)
	require.NoError(t, err)

	h.clock.Advance(10 * time.Minute)
	fresh := h.propose(t, "weight_grams", "1300", "1500")
	_, err = h.svc.Validate(ctx, fresh.ID)
	require.NoError(t, err)

	n, err := h.svc.ExpireStale(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	h.clock.Advance(6 * time.Minute)
	n, err = h.svc.ExpireStale(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := h.svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	stored, err = h.svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, stored.Status)

	h.propose(t, "unit_price", "8.40", "9.40")
}

func TestCommitRequiresValidation(t *testing.T) {
	h := newHarness(t)
	c := h.propose(t, "unit_price", "8.40", "9.40")

	_, err := h.svc.Commit(context.Background(), domain.CommitRequest{ID: c.ID, Credential: writeCredential, Actor: "lead"})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = h.svc.Commit(context.Background(), domain.CommitRequest{ID: "missing", Credential: writeCredential, Actor: "lead"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

type failingAudit struct {
	auditdomain.Service
	calls atomic.Int32
}

func (f *failingAudit) Append(context.Context, *gorm.DB, auditdomain.AppendRequest) (*auditdomain.AuditEntry, error) {
	f.calls.Add(1)
	return nil, errors.New("disk I/O error")
}

func TestAuditFailureLeavesStoreUnchanged(t *testing.T) {
	audit := &failingAudit{}
	h := newHarness(t, func(p *Params) { p.Audit = audit })
	ctx := context.Background()

	c := h.propose(t, "unit_price", "8.40", "9.40")
	_, err := h.svc.Validate(ctx, c.ID)
	require.NoError(t, err)
	before := h.store.Snapshot()

	_, err = h.svc.Commit(ctx, domain.CommitRequest{ID: c.ID, Credential: writeCredential, Actor: "lead"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrPersistence)
	assert.True(t, apperror.IsRetryable(err))
	assert.NotContains(t, apperror.ReasonOf(err), "disk")
	assert.Equal(t, int32(3), audit.calls.Load())

	assert.Same(t, before, h.store.Snapshot())
	persisted, err := h.catalogRepo.Load(ctx, h.db)
	require.NoError(t, err)
	assert.True(t, persisted.Items["ACC-SEAL"].UnitPrice.Equal(d("8.40")))

	stored, err := h.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, stored.Status)
}

func TestCredentialIsCheckedBeforeCorrectionState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.propose(t, "weight_grams", "1300", "1500")

	_, err := h.svc.Commit(ctx, domain.CommitRequest{ID: c.ID, Credential: "wrong", Actor: "lead"})
	assert.ErrorIs(t, err, apperror.ErrAuthorization)
	assert.NotErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = h.svc.Commit(ctx, domain.CommitRequest{ID: "no-such-correction", Credential: "wrong", Actor: "lead"})
	assert.ErrorIs(t, err, apperror.ErrAuthorization)

	_, err = h.svc.Reject(ctx, domain.RejectRequest{ID: "no-such-correction", Credential: "wrong", Reason: "duplicate"})
	assert.ErrorIs(t, err, apperror.ErrAuthorization)

	stored, err := h.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProposed, stored.Status)
}

func TestRejectFreesTheField(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.propose(t, "unit_price", "8.40", "9.40")

	_, err := h.svc.Reject(ctx, domain.RejectRequest{ID: c.ID, Credential: "wrong", Reason: "duplicate"})
	assert.ErrorIs(t, err, apperror.ErrAuthorization)

	rejected, err := h.svc.Reject(ctx, domain.RejectRequest{ID: c.ID, Credential: writeCredential, Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)

	_, err = h.svc.Reject(ctx, domain.RejectRequest{ID: c.ID, Credential: writeCredential, Reason: "again"})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	_, err = h.svc.Validate(ctx, c.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	h.propose(t, "unit_price", "8.40", "9.10")
}

func TestImpactWindowBoundsAnalysis(t *testing.T) {
	h := newHarness(t, func(p *Params) { p.Config.Governance.ImpactWindow = 1 })

	c := h.propose(t, "unit_price", "8.40", "9.40")
	validated, err := h.svc.Validate(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, validated.Impact.AnalyzedCount)
	assert.Equal(t, 1, validated.Impact.Window)
}

func TestListPagesCorrections(t *testing.T) {
	h := newHarness(t)
	h.propose(t, "unit_price", "8.40", "9.00")
	h.clock.Advance(time.Second)
	h.propose(t, "weight_grams", "1300", "1400")

	first, err := h.svc.List(context.Background(), domain.ListRequest{EntityID: "ACC-SEAL"})
	require.NoError(t, err)
	require.Len(t, first.Corrections, 2)
	assert.Equal(t, "weight_grams", first.Corrections[0].Field)

	_, err = h.svc.List(context.Background(), domain.ListRequest{Status: "pending"})
	assert.ErrorIs(t, err, apperror.ErrInputValidation)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, domain.StatusProposed.CanTransition(domain.StatusValidated))
	assert.True(t, domain.StatusProposed.CanTransition(domain.StatusRejected))
	assert.False(t, domain.StatusProposed.CanTransition(domain.StatusCommitted))
	assert.True(t, domain.StatusValidated.CanTransition(domain.StatusCommitted))
	assert.True(t, domain.StatusValidated.CanTransition(domain.StatusRejected))
	for _, terminal := range []domain.Status{domain.StatusCommitted, domain.StatusRejected} {
		assert.True(t, terminal.Terminal())
		for _, next := range []domain.Status{domain.StatusProposed, domain.StatusValidated, domain.StatusCommitted, domain.StatusRejected} {
			assert.False(t, terminal.CanTransition(next))
		}
	}
}

func TestStaleReplicaCannotOverwriteCommittedValue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	other, otherStore := h.replica(t)

	first := h.propose(t, "weight_grams", "1300", "1500")
	_, err := h.svc.Validate(ctx, first.ID)
	require.NoError(t, err)
	_, err = h.svc.Commit(ctx, domain.CommitRequest{ID: first.ID, Credential: writeCredential, Actor: "lead-a"})
	require.NoError(t, err)

	stale, err := other.Propose(ctx, domain.ProposeRequest{
		Target:   sealTarget("weight_grams"),
		OldValue: d("1300"),
		NewValue: d("1400"),
		Reason:   "older datasheet",
		Reporter: "estimator-b@example.com",
	})
	require.NoError(t, err)
	_, err = other.Validate(ctx, stale.ID)
	require.NoError(t, err)
	before := otherStore.Snapshot()

	_, err = other.Commit(ctx, domain.CommitRequest{ID: stale.ID, Credential: writeCredential, Actor: "lead-b"})
	assert.ErrorIs(t, err, apperror.ErrValueMismatch)
	assert.Same(t, before, otherStore.Snapshot())

	persisted, err := h.catalogRepo.Load(ctx, h.db)
	require.NoError(t, err)
	assert.True(t, persisted.Items["ACC-SEAL"].WeightGrams.Equal(d("1500")), persisted.Items["ACC-SEAL"].WeightGrams.String())

	entries, err := h.audit.List(ctx, auditdomain.ListRequest{CorrectionID: stale.ID})
	require.NoError(t, err)
	assert.Empty(t, entries.Entries)

	stored, err := other.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, stored.Status)
}
