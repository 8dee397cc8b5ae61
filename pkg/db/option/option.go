// Package option holds composable gorm query modifiers used by repositories.
package option

import "gorm.io/gorm"

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type QueryOptionFunc func(*gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type QuerySortBy struct {
	Column string
	Desc   bool
	Allow  map[string]bool
}

// WithSortBy orders by Column when it is allowed; unknown columns are ignored.
func WithSortBy(s QuerySortBy) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if s.Column == "" || !s.Allow[s.Column] {
			return db
		}
		if s.Desc {
			return db.Order(s.Column + " desc")
		}
		return db.Order(s.Column + " asc")
	})
}
