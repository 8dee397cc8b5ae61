package repository

import (
	"context"

	"github.com/smallbiznis/panelquote/internal/quotation/domain"
	"gorm.io/gorm"
)

type history struct {
	db   *gorm.DB
	repo domain.Repository
}

// NewHistory exposes the quotation store to impact simulation.
func NewHistory(db *gorm.DB, repo domain.Repository) domain.History {
	return &history{db: db, repo: repo}
}

func (h *history) ListReferencing(ctx context.Context, sku string, limit int) ([]*domain.Quotation, error) {
	return h.repo.ListReferencing(ctx, h.db, sku, limit)
}
