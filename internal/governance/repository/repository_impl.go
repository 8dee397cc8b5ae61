package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/panelquote/internal/governance/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Correction) error {
	if c == nil {
		return nil
	}
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Correction, error) {
	var out []*domain.Correction
	err := db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(id)).
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

func (r *repo) Transition(ctx context.Context, db *gorm.DB, c *domain.Correction, from domain.Status) (bool, error) {
	if err := c.BeforeSave(db); err != nil {
		return false, err
	}
	result := db.WithContext(ctx).
		Model(&domain.Correction{}).
		Where("id = ? AND status = ?", c.ID, from).
		Updates(map[string]any{
			"status":        c.Status,
			"active_key":    c.ActiveKey,
			"impact":        c.ImpactJSON,
			"reject_reason": c.RejectReason,
			"committed_by":  c.CommittedBy,
			"updated_at":    c.UpdatedAt,
			"validated_at":  c.ValidatedAt,
			"committed_at":  c.CommittedAt,
			"rejected_at":   c.RejectedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Correction, error) {
	var out []*domain.Correction
	stmt := db.WithContext(ctx).Model(&domain.Correction{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if entityType := strings.TrimSpace(filter.EntityType); entityType != "" {
		stmt = stmt.Where("entity_type = ?", entityType)
	}
	if entityID := strings.TrimSpace(filter.EntityID); entityID != "" {
		stmt = stmt.Where("entity_id = ?", entityID)
	}
	if field := strings.TrimSpace(filter.Field); field != "" {
		stmt = stmt.Where("field = ?", field)
	}
	if filter.ValidatedBefore != nil {
		stmt = stmt.Where("validated_at <= ?", *filter.ValidatedBefore)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
