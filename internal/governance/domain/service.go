package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/pkg/db/pagination"
	"gorm.io/gorm"
)

type ProposeRequest struct {
	Target   catalogdomain.Target `json:"target" validate:"required"`
	OldValue decimal.Decimal      `json:"old_value" validate:"gte=0"`
	NewValue decimal.Decimal      `json:"new_value" validate:"gte=0"`
	Reason   string               `json:"reason" validate:"required,max=1024"`
	Reporter string               `json:"reporter" validate:"required,max=128"`
}

type CommitRequest struct {
	ID         string `json:"-" validate:"required"`
	Credential string `json:"-"`
	Actor      string `json:"actor" validate:"required,max=128"`
}

type RejectRequest struct {
	ID         string `json:"-" validate:"required"`
	Credential string `json:"-"`
	Reason     string `json:"reason" validate:"required,max=1024"`
}

type ListRequest struct {
	pagination.Pagination
	Status     string `form:"status"`
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	Field      string `form:"field"`
}

type ListResponse struct {
	pagination.PageInfo
	Corrections []Correction `json:"corrections"`
}

type ListFilter struct {
	Status     Status
	EntityType string
	EntityID   string
	Field      string
	// ValidatedBefore keeps corrections validated at or before the given time.
	ValidatedBefore *time.Time
	Cursor          *Cursor
	Limit           int
}

type Cursor struct {
	ID        string
	CreatedAt time.Time
}

type Service interface {
	Propose(ctx context.Context, req ProposeRequest) (*Correction, error)
	Validate(ctx context.Context, id string) (*Correction, error)
	Commit(ctx context.Context, req CommitRequest) (*Correction, error)
	Reject(ctx context.Context, req RejectRequest) (*Correction, error)
	Get(ctx context.Context, id string) (*Correction, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// ExpireStale rejects up to limit validated corrections whose impact report has
	// lapsed, freeing their fields, and returns how many were expired.
	ExpireStale(ctx context.Context, limit int) (int, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *Correction) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Correction, error)
	// Transition moves the correction from one status to another and returns false when
	// the row was no longer in from.
	Transition(ctx context.Context, db *gorm.DB, c *Correction, from Status) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Correction, error)
}
