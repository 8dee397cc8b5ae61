// Package domain contains the reference data models for panel quoting.
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryPanel     Category = "panel"
	CategoryFastener  Category = "fastener"
	CategoryAccessory Category = "accessory"
)

// CatalogItem is a priced item. It only changes through a committed correction.
type CatalogItem struct {
	SKU                 string          `gorm:"primaryKey;type:text" json:"sku"`
	Name                string          `gorm:"type:text;not null" json:"name"`
	Category            Category        `gorm:"type:text;not null;index" json:"category"`
	UnitPrice           decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"unit_price"`
	WeightGrams         decimal.Decimal `gorm:"type:numeric(18,3);not null" json:"weight_grams"`
	LengthMm            decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"length_mm"`
	WidthMm             decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"width_mm"`
	ThicknessMm         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"thickness_mm"`
	StructuralRatingKPa decimal.Decimal `gorm:"column:structural_rating_kpa;type:numeric(12,3);not null;default:0" json:"structural_rating_kpa"`
	Version             int64           `gorm:"not null;default:1" json:"version"`
	UpdatedAt           time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CatalogItem) TableName() string { return "catalog_items" }

type Basis string

const (
	BasisCoverage     Basis = "coverage"
	BasisPerArea      Basis = "per_area"
	BasisPerPerimeter Basis = "per_perimeter"
	BasisPerOpening   Basis = "per_opening"
	BasisFixed        Basis = "fixed"
)

type Rounding string

const (
	RoundingCeil  Rounding = "ceil"
	RoundingExact Rounding = "exact"
)

// WildcardFamily matches every panel family.
const WildcardFamily = "*"

// BOMRule is one fixed-shape quantity rule. Rules are replaced wholesale on reload.
type BOMRule struct {
	ID             string          `gorm:"primaryKey;type:text" json:"id"`
	Family         string          `gorm:"type:text;not null;index" json:"family"`
	MinThicknessMm int             `gorm:"not null" json:"min_thickness_mm"`
	MaxThicknessMm int             `gorm:"not null" json:"max_thickness_mm"`
	SKU            string          `gorm:"type:text;not null" json:"sku"`
	Basis          Basis           `gorm:"type:text;not null" json:"basis"`
	Rate           decimal.Decimal `gorm:"type:numeric(12,4);not null;default:0" json:"rate"`
	CoverageM2     decimal.Decimal `gorm:"column:coverage_m2;type:numeric(12,4);not null;default:0" json:"coverage_m2"`
	PackSize       decimal.Decimal `gorm:"type:numeric(12,4);not null;default:1" json:"pack_size"`
	Unit           string          `gorm:"type:text;not null" json:"unit"`
	Rounding       Rounding        `gorm:"type:text;not null" json:"rounding"`
	Priority       int             `gorm:"not null;default:0" json:"priority"`
	Sequence       int             `gorm:"not null;default:0" json:"sequence"`
}

func (BOMRule) TableName() string { return "bom_rules" }

// Matches reports whether the rule applies to the family key and thickness.
func (r BOMRule) Matches(familyKey string, thicknessMm int) bool {
	if r.Family != WildcardFamily && FamilyKey(r.Family) != familyKey {
		return false
	}
	return thicknessMm >= r.MinThicknessMm && thicknessMm <= r.MaxThicknessMm
}

// SpanEntry is one row of a structural span table.
type SpanEntry struct {
	Family                     string          `gorm:"primaryKey;type:text" json:"family"`
	ThicknessMm                int             `gorm:"primaryKey" json:"thickness_mm"`
	MaxSpanM                   decimal.Decimal `gorm:"column:max_span_m;type:numeric(8,3);not null" json:"max_span_m"`
	RecommendedSupportSpacingM decimal.Decimal `gorm:"column:recommended_support_spacing_m;type:numeric(8,3);not null" json:"recommended_support_spacing_m"`
}

func (SpanEntry) TableName() string { return "span_entries" }

// PricingPolicy carries the currency, its minor unit exponent and the tax rate.
type PricingPolicy struct {
	ID         int             `gorm:"primaryKey" json:"-"`
	Currency   string          `gorm:"type:text;not null" json:"currency"`
	MinorUnits int32           `gorm:"not null" json:"minor_units"`
	TaxRate    decimal.Decimal `gorm:"type:numeric(8,6);not null" json:"tax_rate"`
}

func (PricingPolicy) TableName() string { return "pricing_policies" }

// FamilyKey normalises a panel family name, so "EPS", "eps" and " Eps " are one family.
func FamilyKey(family string) string {
	return slug.Make(strings.TrimSpace(family))
}

// Snapshot is an immutable view of all reference data. Readers may share it freely;
// writers publish a new Snapshot instead of editing one.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Pricing  PricingPolicy
	Items    map[string]CatalogItem
	Rules    []BOMRule
	Spans    []SpanEntry
}

func (s *Snapshot) Item(sku string) (CatalogItem, bool) {
	if s == nil {
		return CatalogItem{}, false
	}
	item, ok := s.Items[strings.TrimSpace(sku)]
	return item, ok
}

func (s *Snapshot) SpanFor(family string, thicknessMm int) (SpanEntry, bool) {
	if s == nil {
		return SpanEntry{}, false
	}
	key := FamilyKey(family)
	for _, entry := range s.Spans {
		if FamilyKey(entry.Family) == key && entry.ThicknessMm == thicknessMm {
			return entry, true
		}
	}
	return SpanEntry{}, false
}

// SearchQuery filters read-only catalog lookups.
type SearchQuery struct {
	Category Category
	Text     string
}

func (s *Snapshot) Search(q SearchQuery) []CatalogItem {
	if s == nil {
		return nil
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]CatalogItem, 0, len(s.Items))
	for _, item := range s.Items {
		if q.Category != "" && item.Category != q.Category {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(item.SKU), text) &&
			!strings.Contains(strings.ToLower(item.Name), text) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// clone copies the item map; rules and spans are never mutated so they are shared.
func (s *Snapshot) clone() *Snapshot {
	items := make(map[string]CatalogItem, len(s.Items))
	for k, v := range s.Items {
		items[k] = v
	}
	return &Snapshot{
		Version:  s.Version,
		LoadedAt: s.LoadedAt,
		Pricing:  s.Pricing,
		Items:    items,
		Rules:    s.Rules,
		Spans:    s.Spans,
	}
}
