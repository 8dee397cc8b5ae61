package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/bom"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/internal/catalog/store"
	"github.com/smallbiznis/panelquote/internal/clock"
	"github.com/smallbiznis/panelquote/internal/config"
	"github.com/smallbiznis/panelquote/internal/observability/metrics"
	quotationdomain "github.com/smallbiznis/panelquote/internal/quotation/domain"
	"github.com/smallbiznis/panelquote/internal/structural"
	"github.com/smallbiznis/panelquote/pkg/money"
	"github.com/smallbiznis/panelquote/pkg/validate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Store   *store.Store
	Repo    quotationdomain.Repository
	Config  config.Config
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	store   *store.Store
	repo    quotationdomain.Repository
	metrics *metrics.Metrics
	tracer  trace.Tracer

	engine        *bom.Engine
	recordHistory bool
}

func NewService(p ServiceParam) quotationdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("quotation.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		store:   p.Store,
		repo:    p.Repo,
		metrics: p.Metrics,
		tracer:  otel.Tracer("panelquote/quotation"),

		engine:        bom.New(decimal.NewFromFloat(p.Config.Quote.SanityCeilingM)),
		recordHistory: p.Config.Quote.RecordHistory,
	}
}

func (s *Service) Assemble(ctx context.Context, req quotationdomain.Request) (*quotationdomain.Quotation, error) {
	return s.assembleAndRecord(ctx, req, nil)
}

func (s *Service) AssembleWith(ctx context.Context, snap *catalogdomain.Snapshot, req quotationdomain.Request) (*quotationdomain.Quotation, error) {
	if snap == nil {
		return nil, apperror.CatalogLookup("no reference snapshot loaded")
	}
	return s.build(ctx, snap, req)
}

func (s *Service) Requote(ctx context.Context, id snowflake.ID) (*quotationdomain.Quotation, error) {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assembleAndRecord(ctx, prev.Request, &prev.ID)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*quotationdomain.Quotation, error) {
	q, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, apperror.Persistence(err, "failed to load quotation")
	}
	if q == nil {
		return nil, quotationdomain.ErrQuotationNotFound
	}
	return q, nil
}

func (s *Service) assembleAndRecord(ctx context.Context, req quotationdomain.Request, source *snowflake.ID) (*quotationdomain.Quotation, error) {
	ctx, span := s.tracer.Start(ctx, "quotation.assemble")
	defer span.End()
	start := time.Now()

	q, err := s.build(ctx, s.store.Snapshot(), req)
	if err != nil {
		span.SetStatus(codes.Error, string(apperror.CodeOf(err)))
		s.metrics.RecordQuotation(ctx, req.Family, string(apperror.CodeOf(err)), time.Since(start))
		return nil, err
	}
	q.ID = s.genID.Generate()
	q.SourceID = source

	if s.recordHistory {
		if err := s.repo.Insert(ctx, s.db, q); err != nil {
			s.log.Error("failed to record quotation", zap.String("quotation_id", q.ID.String()), zap.Error(err))
			span.SetStatus(codes.Error, string(apperror.CodePersistence))
			return nil, apperror.Persistence(err, "failed to record quotation")
		}
	}

	span.SetAttributes(
		attribute.String("quotation.id", q.ID.String()),
		attribute.String("quotation.family", q.Family),
		attribute.Int("quotation.lines", len(q.Lines)),
		attribute.Bool("quotation.structural_pass", q.Structural.Pass),
	)
	s.metrics.RecordQuotation(ctx, q.Family, "ok", time.Since(start))
	s.log.Debug("quotation assembled",
		zap.String("quotation_id", q.ID.String()),
		zap.String("total", q.Total.String()),
		zap.Int64("snapshot_version", q.SnapshotVersion),
	)
	return q, nil
}

// build is the pure pricing path: it reads only snap and req.
func (s *Service) build(ctx context.Context, snap *catalogdomain.Snapshot, req quotationdomain.Request) (*quotationdomain.Quotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Persistence(err, "quotation aborted")
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	bomResult, err := s.engine.Compute(snap.Rules, req.BOMInput())
	if err != nil {
		return nil, err
	}
	check, err := structural.ValidateSpan(snap, req.Family, req.ThicknessMm, req.SpanM, req.SupportSpacingM)
	if err != nil {
		return nil, err
	}

	minor := snap.Pricing.MinorUnits
	lines := make([]quotationdomain.LineItem, 0, len(bomResult.Lines))
	subtotal, weight := decimal.Zero, decimal.Zero
	for i, bl := range bomResult.Lines {
		item, ok := snap.Item(bl.SKU)
		if !ok {
			return nil, apperror.CatalogLookup("catalog item %q not found", bl.SKU)
		}
		lineSubtotal := money.RoundMinor(item.UnitPrice.Mul(bl.Quantity), minor)
		lineWeight := item.WeightGrams.Mul(bl.Quantity)
		lines = append(lines, quotationdomain.LineItem{
			Position:    i + 1,
			SKU:         item.SKU,
			Description: item.Name,
			Unit:        bl.Unit,
			Quantity:    bl.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    lineSubtotal,
			WeightGrams: lineWeight,
		})
		subtotal = subtotal.Add(lineSubtotal)
		weight = weight.Add(lineWeight)
	}

	total := money.RoundMinor(subtotal.Mul(decimal.NewFromInt(1).Add(snap.Pricing.TaxRate)), minor)

	return &quotationdomain.Quotation{
		CustomerRef:      req.CustomerRef,
		Family:           req.Family,
		ThicknessMm:      req.ThicknessMm,
		Request:          req,
		Lines:            lines,
		Currency:         snap.Pricing.Currency,
		Subtotal:         subtotal,
		Tax:              total.Sub(subtotal),
		Total:            total,
		TotalWeightGrams: money.RoundHalfUp(weight, 0),
		Structural:       check,
		Warnings:         mergeWarnings(bomResult.Warnings, check.Warnings),
		SnapshotVersion:  snap.Version,
		CreatedAt:        s.clock.Now(),
	}, nil
}

func mergeWarnings(groups ...[]string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, group := range groups {
		for _, w := range group {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
