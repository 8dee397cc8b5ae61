package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	governancedomain "github.com/smallbiznis/panelquote/internal/governance/domain"
	"github.com/smallbiznis/panelquote/pkg/money"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const simulationParallelism = 8

type delta struct {
	price  decimal.Decimal
	weight decimal.Decimal
	ok     bool
}

// simulate re-prices each historical request against base and against the snapshot with
// the proposed value, and summarises the differences. Requests that no longer price
// against base are counted as skipped.
func (s *Service) simulate(ctx context.Context, c *governancedomain.Correction, base *catalogdomain.Snapshot) (*governancedomain.ImpactReport, error) {
	target := c.Target()
	proposed, err := base.WithValue(target, c.NewValue, false)
	if err != nil {
		return nil, err
	}

	history, err := s.history.ListReferencing(ctx, target.EntityID, s.window)
	if err != nil {
		return nil, apperror.Persistence(err, "failed to read quotation history")
	}

	deltas := make([]delta, len(history))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(simulationParallelism)
	for i, q := range history {
		g.Go(func() error {
			before, err := s.quotes.AssembleWith(gctx, base, q.Request)
			if err != nil {
				if apperror.CodeOf(err) == apperror.CodePersistence {
					return err
				}
				s.log.Debug("historical quotation skipped",
					zap.String("quotation_id", q.ID.String()),
					zap.String("reason", apperror.ReasonOf(err)),
				)
				return nil
			}
			after, err := s.quotes.AssembleWith(gctx, proposed, q.Request)
			if err != nil {
				if apperror.CodeOf(err) == apperror.CodePersistence {
					return err
				}
				return nil
			}
			deltas[i] = delta{
				price:  after.Total.Sub(before.Total),
				weight: after.TotalWeightGrams.Sub(before.TotalWeightGrams),
				ok:     true,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperror.Persistence(err, "impact simulation did not finish")
	}

	prices := make([]decimal.Decimal, 0, len(deltas))
	weights := make([]decimal.Decimal, 0, len(deltas))
	for _, d := range deltas {
		if !d.ok {
			continue
		}
		prices = append(prices, d.price)
		weights = append(weights, d.weight)
	}

	now := s.clock.Now()
	return &governancedomain.ImpactReport{
		CorrectionID:     c.ID,
		AnalyzedCount:    len(prices),
		SkippedCount:     len(history) - len(prices),
		ReferencingCount: len(history),
		Window:           s.window,
		SnapshotVersion:  base.Version,
		PriceDelta:       money.Summarize(prices, base.Pricing.MinorUnits),
		WeightDelta:      money.Summarize(weights, 0),
		GeneratedAt:      now,
		ExpiresAt:        now.Add(s.impactTTL),
	}, nil
}
