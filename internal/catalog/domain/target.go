package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
)

type EntityType string

const EntityCatalogItem EntityType = "catalog_item"

// Target addresses one mutable reference field. It is resolved through the accessor
// registry, never parsed from a path string.
type Target struct {
	EntityType EntityType `json:"entity_type" validate:"required"`
	EntityID   string     `json:"entity_id" validate:"required"`
	Field      string     `json:"field" validate:"required"`
}

// Key is the stable identity of the (entity, field) pair used for locks and uniqueness.
func (t Target) Key() string {
	return string(t.EntityType) + ":" + t.EntityID + ":" + t.Field
}

func (t Target) Normalize() Target {
	return Target{
		EntityType: EntityType(strings.TrimSpace(string(t.EntityType))),
		EntityID:   strings.TrimSpace(t.EntityID),
		Field:      strings.TrimSpace(t.Field),
	}
}

type fieldAccessor struct {
	column      string
	nonNegative bool
	get         func(CatalogItem) decimal.Decimal
	set         func(*CatalogItem, decimal.Decimal)
}

var catalogItemFields = map[string]fieldAccessor{
	"unit_price": {
		column:      "unit_price",
		nonNegative: true,
		get:         func(i CatalogItem) decimal.Decimal { return i.UnitPrice },
		set:         func(i *CatalogItem, v decimal.Decimal) { i.UnitPrice = v },
	},
	"weight_grams": {
		column:      "weight_grams",
		nonNegative: true,
		get:         func(i CatalogItem) decimal.Decimal { return i.WeightGrams },
		set:         func(i *CatalogItem, v decimal.Decimal) { i.WeightGrams = v },
	},
	"length_mm": {
		column:      "length_mm",
		nonNegative: true,
		get:         func(i CatalogItem) decimal.Decimal { return i.LengthMm },
		set:         func(i *CatalogItem, v decimal.Decimal) { i.LengthMm = v },
	},
	"width_mm": {
		column:      "width_mm",
		nonNegative: true,
		get:         func(i CatalogItem) decimal.Decimal { return i.WidthMm },
		set:         func(i *CatalogItem, v decimal.Decimal) { i.WidthMm = v },
	},
	"thickness_mm": {
		column:      "thickness_mm",
		nonNegative: true,
		get:         func(i CatalogItem) decimal.Decimal { return i.ThicknessMm },
		set:         func(i *CatalogItem, v decimal.Decimal) { i.ThicknessMm = v },
	},
	"structural_rating_kpa": {
		column:      "structural_rating_kpa",
		nonNegative: true,
		get:         func(i CatalogItem) decimal.Decimal { return i.StructuralRatingKPa },
		set:         func(i *CatalogItem, v decimal.Decimal) { i.StructuralRatingKPa = v },
	},
}

var accessors = map[EntityType]map[string]fieldAccessor{
	EntityCatalogItem: catalogItemFields,
}

func resolve(t Target) (fieldAccessor, error) {
	fields, ok := accessors[t.EntityType]
	if !ok {
		return fieldAccessor{}, apperror.InputValidation("unknown entity type %q", t.EntityType)
	}
	acc, ok := fields[t.Field]
	if !ok {
		return fieldAccessor{}, apperror.InputValidation("unknown field %q for %s", t.Field, t.EntityType)
	}
	return acc, nil
}

// Column returns the storage column backing the target field.
func Column(t Target) (string, error) {
	acc, err := resolve(t)
	if err != nil {
		return "", err
	}
	return acc.column, nil
}

// ValidateValue checks a proposed value against the field's constraints.
func ValidateValue(t Target, v decimal.Decimal) error {
	acc, err := resolve(t)
	if err != nil {
		return err
	}
	if acc.nonNegative && v.IsNegative() {
		return apperror.InputValidation("%s must be non-negative", t.Field)
	}
	return nil
}

// ValueOf reads the current value of t from the snapshot.
func (s *Snapshot) ValueOf(t Target) (decimal.Decimal, error) {
	acc, err := resolve(t)
	if err != nil {
		return decimal.Zero, err
	}
	item, ok := s.Item(t.EntityID)
	if !ok {
		return decimal.Zero, apperror.CatalogLookup("catalog item %q not found", t.EntityID)
	}
	return acc.get(item), nil
}

// WithValue returns a copy of the snapshot with t set to v. The receiver is not modified.
// When bumpVersion is set the item's version counter is incremented.
func (s *Snapshot) WithValue(t Target, v decimal.Decimal, bumpVersion bool) (*Snapshot, error) {
	acc, err := resolve(t)
	if err != nil {
		return nil, err
	}
	if _, ok := s.Item(t.EntityID); !ok {
		return nil, apperror.CatalogLookup("catalog item %q not found", t.EntityID)
	}
	next := s.clone()
	item := next.Items[t.EntityID]
	acc.set(&item, v)
	if bumpVersion {
		item.Version++
	}
	next.Items[t.EntityID] = item
	return next, nil
}
