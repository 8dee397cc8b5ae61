package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/pkg/db/option"
	"github.com/smallbiznis/panelquote/pkg/repository"
	"gorm.io/gorm"
)

// ErrNoPricingPolicy is returned by Load when the reference tables have never been seeded.
var ErrNoPricingPolicy = errors.New("no pricing policy loaded")

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Load(ctx context.Context, db *gorm.DB) (*domain.Snapshot, error) {
	policy, err := repository.ProvideStore[domain.PricingPolicy](db).FindOne(ctx, nil,
		option.WithSortBy(option.QuerySortBy{Column: "id", Desc: true, Allow: map[string]bool{"id": true}}),
	)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, ErrNoPricingPolicy
	}

	items, err := repository.ProvideStore[domain.CatalogItem](db).Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	rules, err := repository.ProvideStore[domain.BOMRule](db).Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	spans, err := repository.ProvideStore[domain.SpanEntry](db).Find(ctx, nil)
	if err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{
		Pricing: *policy,
		Items:   make(map[string]domain.CatalogItem, len(items)),
		Rules:   make([]domain.BOMRule, 0, len(rules)),
		Spans:   make([]domain.SpanEntry, 0, len(spans)),
	}
	for _, item := range items {
		snap.Items[item.SKU] = *item
	}
	for _, rule := range rules {
		snap.Rules = append(snap.Rules, *rule)
	}
	for _, span := range spans {
		snap.Spans = append(snap.Spans, *span)
	}
	sort.Slice(snap.Rules, func(i, j int) bool { return snap.Rules[i].ID < snap.Rules[j].ID })
	return snap, nil
}

func (r *repo) ReplaceAll(ctx context.Context, db *gorm.DB, snap *domain.Snapshot) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		policies := repository.ProvideStore[domain.PricingPolicy](tx)
		items := repository.ProvideStore[domain.CatalogItem](tx)
		rules := repository.ProvideStore[domain.BOMRule](tx)
		spans := repository.ProvideStore[domain.SpanEntry](tx)

		for _, deleteAll := range []func(context.Context) error{policies.DeleteAll, items.DeleteAll, rules.DeleteAll, spans.DeleteAll} {
			if err := deleteAll(ctx); err != nil {
				return err
			}
		}

		policy := snap.Pricing
		if policy.ID == 0 {
			policy.ID = 1
		}
		if err := policies.Create(ctx, &policy); err != nil {
			return err
		}

		skus := make([]string, 0, len(snap.Items))
		for sku := range snap.Items {
			skus = append(skus, sku)
		}
		sort.Strings(skus)
		itemRows := make([]*domain.CatalogItem, 0, len(skus))
		for _, sku := range skus {
			item := snap.Items[sku]
			if item.Version == 0 {
				item.Version = 1
			}
			itemRows = append(itemRows, &item)
		}
		if err := items.BatchCreate(ctx, itemRows); err != nil {
			return err
		}

		ruleRows := make([]*domain.BOMRule, 0, len(snap.Rules))
		for i := range snap.Rules {
			rule := snap.Rules[i]
			ruleRows = append(ruleRows, &rule)
		}
		if err := rules.BatchCreate(ctx, ruleRows); err != nil {
			return err
		}

		spanRows := make([]*domain.SpanEntry, 0, len(snap.Spans))
		for i := range snap.Spans {
			span := snap.Spans[i]
			spanRows = append(spanRows, &span)
		}
		return spans.BatchCreate(ctx, spanRows)
	})
}

func (r *repo) UpdateField(ctx context.Context, db *gorm.DB, target domain.Target, from, to decimal.Decimal, updatedAt time.Time) error {
	column, err := domain.Column(target)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.CatalogItem{}).
		Where("sku = ?", target.EntityID).
		Where(column+" = ?", from).
		Updates(map[string]any{
			column:       to,
			"version":    gorm.Expr("version + 1"),
			"updated_at": updatedAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// another writer moved the row, or this process holds a stale snapshot
		return apperror.New(apperror.CodeValueMismatch, "stored value of %s no longer matches the expected old value", target.Field)
	}
	return nil
}
