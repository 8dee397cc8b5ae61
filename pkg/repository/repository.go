// Package repository provides a generic gorm-backed store for simple tables.
package repository

import (
	"context"

	"github.com/smallbiznis/panelquote/pkg/db/option"
)

type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	DeleteAll(ctx context.Context) error
}
