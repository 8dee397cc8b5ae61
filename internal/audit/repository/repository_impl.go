package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/panelquote/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditEntry) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_entries (
			id, correction_id, entity_type, entity_id, field,
			before_value, after_value, actor, metadata, committed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CorrectionID,
		entry.EntityType,
		entry.EntityID,
		entry.Field,
		entry.Before,
		entry.After,
		entry.Actor,
		entry.Metadata,
		entry.CommittedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	stmt := db.WithContext(ctx).Model(&domain.AuditEntry{})

	if correctionID := strings.TrimSpace(filter.CorrectionID); correctionID != "" {
		stmt = stmt.Where("correction_id = ?", correctionID)
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
	if filter.Cursor != nil {
		stmt = stmt.Where("(committed_at < ?) OR (committed_at = ? AND id < ?)",
			filter.Cursor.CommittedAt,
			filter.Cursor.CommittedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("committed_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
