package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/panelquote/internal/apperror"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	"gorm.io/gorm"
)

type Service interface {
	// Assemble prices req against the live snapshot and records it when history is enabled.
	Assemble(ctx context.Context, req Request) (*Quotation, error)
	// AssembleWith prices req against snap without recording anything.
	AssembleWith(ctx context.Context, snap *catalogdomain.Snapshot, req Request) (*Quotation, error)
	Requote(ctx context.Context, id snowflake.ID) (*Quotation, error)
	Get(ctx context.Context, id snowflake.ID) (*Quotation, error)
}

// Repository is append-only: there is no update or delete.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, q *Quotation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Quotation, error)
	// ListReferencing returns up to limit quotations with a line for sku, newest first.
	ListReferencing(ctx context.Context, db *gorm.DB, sku string, limit int) ([]*Quotation, error)
	CountReferencing(ctx context.Context, db *gorm.DB, sku string) (int64, error)
}

// History is the read side used by impact simulation.
type History interface {
	ListReferencing(ctx context.Context, sku string, limit int) ([]*Quotation, error)
}

var ErrQuotationNotFound = apperror.New(apperror.CodeNotFound, "quotation not found")
