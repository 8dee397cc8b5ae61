package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/panelquote/internal/quotation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, q *domain.Quotation) error {
	if q == nil {
		return nil
	}
	for i := range q.Lines {
		q.Lines[i].QuotationID = q.ID
	}
	// lines are inserted through the association in the same transaction
	return db.WithContext(ctx).Create(q).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Quotation, error) {
	var out []*domain.Quotation
	err := db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *repo) ListReferencing(ctx context.Context, db *gorm.DB, sku string, limit int) ([]*domain.Quotation, error) {
	var out []*domain.Quotation
	stmt := db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("id IN (?)", referencing(db.WithContext(ctx), sku)).
		Order("created_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) CountReferencing(ctx context.Context, db *gorm.DB, sku string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Quotation{}).
		Where("id IN (?)", referencing(db.WithContext(ctx), sku)).
		Count(&count).Error
	return count, err
}

func referencing(db *gorm.DB, sku string) *gorm.DB {
	return db.Model(&domain.LineItem{}).Select("DISTINCT quotation_id").Where("sku = ?", sku)
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}
