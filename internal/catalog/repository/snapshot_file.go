package repository

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/pkg/validate"
	"gopkg.in/yaml.v3"
)

// snapshotFile is the on-disk shape of a reference data snapshot. Decimals are kept as
// strings so no value passes through a float.
type snapshotFile struct {
	Pricing struct {
		Currency   string `yaml:"currency" validate:"required,len=3"`
		MinorUnits int32  `yaml:"minor_units" validate:"gte=0,lte=4"`
		TaxRate    string `yaml:"tax_rate" validate:"required"`
	} `yaml:"pricing"`
	Items []itemRecord `yaml:"items" validate:"required,dive"`
	Rules []ruleRecord `yaml:"rules" validate:"dive"`
	Spans []spanRecord `yaml:"spans" validate:"dive"`
}

type itemRecord struct {
	SKU                 string `yaml:"sku" validate:"required"`
	Name                string `yaml:"name" validate:"required"`
	Category            string `yaml:"category" validate:"oneof=panel fastener accessory"`
	UnitPrice           string `yaml:"unit_price" validate:"required"`
	WeightGrams         string `yaml:"weight_grams" validate:"required"`
	LengthMm            string `yaml:"length_mm"`
	WidthMm             string `yaml:"width_mm"`
	ThicknessMm         string `yaml:"thickness_mm"`
	StructuralRatingKPa string `yaml:"structural_rating_kpa"`
}

type ruleRecord struct {
	ID             string `yaml:"id" validate:"required"`
	Family         string `yaml:"family" validate:"required"`
	MinThicknessMm int    `yaml:"min_thickness_mm" validate:"gte=0"`
	MaxThicknessMm int    `yaml:"max_thickness_mm" validate:"gtefield=MinThicknessMm"`
	SKU            string `yaml:"sku" validate:"required"`
	Basis          string `yaml:"basis" validate:"oneof=coverage per_area per_perimeter per_opening fixed"`
	Rate           string `yaml:"rate"`
	CoverageM2     string `yaml:"coverage_m2"`
	PackSize       string `yaml:"pack_size"`
	Unit           string `yaml:"unit" validate:"oneof=pcs m m2 l"`
	Rounding       string `yaml:"rounding" validate:"oneof=ceil exact"`
	Priority       int    `yaml:"priority"`
	Sequence       int    `yaml:"sequence"`
}

type spanRecord struct {
	Family                     string `yaml:"family" validate:"required"`
	ThicknessMm                int    `yaml:"thickness_mm" validate:"gt=0"`
	MaxSpanM                   string `yaml:"max_span_m" validate:"required"`
	RecommendedSupportSpacingM string `yaml:"recommended_support_spacing_m" validate:"required"`
}

// LoadSnapshotFile reads a YAML snapshot from disk.
func LoadSnapshotFile(path string) (*domain.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return ParseSnapshot(raw)
}

// ParseSnapshot decodes and validates a YAML snapshot document.
func ParseSnapshot(raw []byte) (*domain.Snapshot, error) {
	var file snapshotFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, apperror.InputValidation("snapshot is not valid yaml: %v", err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, err
	}

	p := &decimalParser{}
	snap := &domain.Snapshot{
		Pricing: domain.PricingPolicy{
			ID:         1,
			Currency:   file.Pricing.Currency,
			MinorUnits: file.Pricing.MinorUnits,
			TaxRate:    p.parse("pricing.tax_rate", file.Pricing.TaxRate, false),
		},
		Items: make(map[string]domain.CatalogItem, len(file.Items)),
	}

	for _, rec := range file.Items {
		if _, dup := snap.Items[rec.SKU]; dup {
			return nil, apperror.InputValidation("duplicate sku %q", rec.SKU)
		}
		snap.Items[rec.SKU] = domain.CatalogItem{
			SKU:                 rec.SKU,
			Name:                rec.Name,
			Category:            domain.Category(rec.Category),
			UnitPrice:           p.parse(rec.SKU+".unit_price", rec.UnitPrice, false),
			WeightGrams:         p.parse(rec.SKU+".weight_grams", rec.WeightGrams, false),
			LengthMm:            p.parse(rec.SKU+".length_mm", rec.LengthMm, true),
			WidthMm:             p.parse(rec.SKU+".width_mm", rec.WidthMm, true),
			ThicknessMm:         p.parse(rec.SKU+".thickness_mm", rec.ThicknessMm, true),
			StructuralRatingKPa: p.parse(rec.SKU+".structural_rating_kpa", rec.StructuralRatingKPa, true),
			Version:             1,
		}
	}

	for _, rec := range file.Rules {
		if _, ok := snap.Items[rec.SKU]; !ok {
			return nil, apperror.InputValidation("rule %s references unknown sku %q", rec.ID, rec.SKU)
		}
		packSize := p.parse(rec.ID+".pack_size", rec.PackSize, true)
		if packSize.IsZero() {
			packSize = decimal.NewFromInt(1)
		}
		rule := domain.BOMRule{
			ID:             rec.ID,
			Family:         rec.Family,
			MinThicknessMm: rec.MinThicknessMm,
			MaxThicknessMm: rec.MaxThicknessMm,
			SKU:            rec.SKU,
			Basis:          domain.Basis(rec.Basis),
			Rate:           p.parse(rec.ID+".rate", rec.Rate, true),
			CoverageM2:     p.parse(rec.ID+".coverage_m2", rec.CoverageM2, true),
			PackSize:       packSize,
			Unit:           rec.Unit,
			Rounding:       domain.Rounding(rec.Rounding),
			Priority:       rec.Priority,
			Sequence:       rec.Sequence,
		}
		if rule.Basis == domain.BasisCoverage && !rule.CoverageM2.IsPositive() {
			return nil, apperror.InputValidation("rule %s: coverage_m2 must be positive", rec.ID)
		}
		snap.Rules = append(snap.Rules, rule)
	}

	for _, rec := range file.Spans {
		snap.Spans = append(snap.Spans, domain.SpanEntry{
			Family:                     rec.Family,
			ThicknessMm:                rec.ThicknessMm,
			MaxSpanM:                   p.parse(rec.Family+".max_span_m", rec.MaxSpanM, false),
			RecommendedSupportSpacingM: p.parse(rec.Family+".recommended_support_spacing_m", rec.RecommendedSupportSpacingM, false),
		})
	}

	if p.err != nil {
		return nil, p.err
	}
	return snap, nil
}

var errNegative = errors.New("negative")

// decimalParser keeps the first parse failure so the mapping above stays linear.
type decimalParser struct {
	err error
}

func (p *decimalParser) parse(field, value string, optional bool) decimal.Decimal {
	if value == "" && optional {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err == nil && d.IsNegative() {
		err = errNegative
	}
	if err != nil && p.err == nil {
		p.err = apperror.InputValidation("%s: %q is not a valid non-negative decimal", field, value)
	}
	return d
}
