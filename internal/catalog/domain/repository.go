package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists reference data. Tables are loaded and replaced wholesale; the
// only row-level write is UpdateField, used by a committed correction. UpdateField is a
// compare-and-swap: it only writes when the column still holds from.
type Repository interface {
	Load(ctx context.Context, db *gorm.DB) (*Snapshot, error)
	ReplaceAll(ctx context.Context, db *gorm.DB, snap *Snapshot) error
	UpdateField(ctx context.Context, db *gorm.DB, target Target, from, to decimal.Decimal, updatedAt time.Time) error
}

// Service reloads reference data into the live store.
type Service interface {
	Reload(ctx context.Context) (*Snapshot, error)
	Seed(ctx context.Context, snap *Snapshot) error
}
