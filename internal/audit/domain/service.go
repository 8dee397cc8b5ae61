package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/pkg/db/pagination"
	"gorm.io/gorm"
)

type AppendRequest struct {
	CorrectionID string
	Target       catalogdomain.Target
	Before       decimal.Decimal
	After        decimal.Decimal
	Actor        string
	CommittedAt  time.Time
	Metadata     map[string]any
}

type ListRequest struct {
	pagination.Pagination
	CorrectionID string `form:"correction_id"`
	EntityType   string `form:"entity_type"`
	EntityID     string `form:"entity_id"`
	Field        string `form:"field"`
}

type ListResponse struct {
	pagination.PageInfo
	Entries []AuditEntry `json:"entries"`
}

type ListFilter struct {
	CorrectionID string
	EntityType   string
	EntityID     string
	Field        string
	Cursor       *Cursor
	Limit        int
}

type Cursor struct {
	ID          int64
	CommittedAt time.Time
}

type Service interface {
	// Append writes entry through tx so it commits or rolls back with the caller's transaction.
	// A nil tx uses the service's own connection.
	Append(ctx context.Context, tx *gorm.DB, req AppendRequest) (*AuditEntry, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

// Repository has no update or delete path.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditEntry) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditEntry, error)
}
