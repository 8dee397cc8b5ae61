// Package bom turns panel geometry into itemised material quantities using the loaded
// rule tables. Everything here is pure: the same rules and input give the same result.
package bom

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/pkg/validate"
)

const WarnDimensionExceedsCeiling = "dimension_exceeds_sanity_ceiling"

// DefaultSanityCeilingM is the largest single dimension accepted without a warning.
var DefaultSanityCeilingM = decimal.NewFromInt(100)

type Input struct {
	Family      string          `json:"family" validate:"required"`
	ThicknessMm int             `json:"thickness_mm" validate:"gt=0"`
	LengthM     decimal.Decimal `json:"length_m" validate:"gt=0"`
	WidthM      decimal.Decimal `json:"width_m" validate:"gt=0"`
	Openings    int             `json:"openings" validate:"gte=0"`
}

type Line struct {
	SKU      string          `json:"sku"`
	Unit     string          `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
	RuleID   string          `json:"rule_id"`
	Sequence int             `json:"-"`
}

type Result struct {
	AreaM2     decimal.Decimal `json:"area_m2"`
	PerimeterM decimal.Decimal `json:"perimeter_m"`
	Lines      []Line          `json:"lines"`
	Warnings   []string        `json:"warnings,omitempty"`
}

type Engine struct {
	ceiling decimal.Decimal
}

// New returns an engine that warns when a dimension exceeds ceilingM. A non-positive
// ceiling falls back to DefaultSanityCeilingM.
func New(ceilingM decimal.Decimal) *Engine {
	if !ceilingM.IsPositive() {
		ceilingM = DefaultSanityCeilingM
	}
	return &Engine{ceiling: ceilingM}
}

// Compute evaluates rules with the default sanity ceiling.
func Compute(rules []domain.BOMRule, in Input) (Result, error) {
	return New(DefaultSanityCeilingM).Compute(rules, in)
}

func (e *Engine) Compute(rules []domain.BOMRule, in Input) (Result, error) {
	if err := validate.Struct(in); err != nil {
		return Result{}, err
	}
	familyKey := domain.FamilyKey(in.Family)
	if familyKey == "" {
		return Result{}, apperror.InputValidation("family: required")
	}

	area := in.LengthM.Mul(in.WidthM)
	perimeter := in.LengthM.Add(in.WidthM).Mul(decimal.NewFromInt(2))
	res := Result{AreaM2: area, PerimeterM: perimeter}

	if in.LengthM.GreaterThan(e.ceiling) || in.WidthM.GreaterThan(e.ceiling) {
		res.Warnings = append(res.Warnings, WarnDimensionExceedsCeiling)
	}

	selected := selectRules(rules, familyKey, in.ThicknessMm)

	hasCoverage := false
	for _, rule := range selected {
		if rule.Basis == domain.BasisCoverage {
			hasCoverage = true
		}
		qty, err := quantity(rule, area, perimeter, in.Openings)
		if err != nil {
			return Result{}, err
		}
		if !qty.IsPositive() {
			continue
		}
		res.Lines = append(res.Lines, Line{
			SKU:      rule.SKU,
			Unit:     rule.Unit,
			Quantity: qty,
			RuleID:   rule.ID,
			Sequence: rule.Sequence,
		})
	}
	if !hasCoverage {
		return Result{}, apperror.CatalogLookup("no panel coverage rule for family %s at %d mm", in.Family, in.ThicknessMm)
	}

	sort.SliceStable(res.Lines, func(i, j int) bool {
		if res.Lines[i].Sequence != res.Lines[j].Sequence {
			return res.Lines[i].Sequence < res.Lines[j].Sequence
		}
		return res.Lines[i].SKU < res.Lines[j].SKU
	})
	return res, nil
}

// selectRules keeps one rule per SKU among the rules matching the family and thickness.
func selectRules(rules []domain.BOMRule, familyKey string, thicknessMm int) []domain.BOMRule {
	best := make(map[string]domain.BOMRule)
	for _, rule := range rules {
		if !rule.Matches(familyKey, thicknessMm) {
			continue
		}
		current, ok := best[rule.SKU]
		if !ok || preferred(rule, current) {
			best[rule.SKU] = rule
		}
	}
	out := make([]domain.BOMRule, 0, len(best))
	for _, rule := range best {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// preferred orders competing rules: exact family, then narrowest thickness range,
// then higher priority, then lowest id.
func preferred(a, b domain.BOMRule) bool {
	aExact, bExact := a.Family != domain.WildcardFamily, b.Family != domain.WildcardFamily
	if aExact != bExact {
		return aExact
	}
	aWidth, bWidth := a.MaxThicknessMm-a.MinThicknessMm, b.MaxThicknessMm-b.MinThicknessMm
	if aWidth != bWidth {
		return aWidth < bWidth
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.ID < b.ID
}

func quantity(rule domain.BOMRule, area, perimeter decimal.Decimal, openings int) (decimal.Decimal, error) {
	var base decimal.Decimal
	switch rule.Basis {
	case domain.BasisCoverage:
		if !rule.CoverageM2.IsPositive() {
			return decimal.Zero, apperror.CatalogLookup("rule %s has no coverage area", rule.ID)
		}
		base = area.Div(rule.CoverageM2).Ceil()
	case domain.BasisPerArea:
		base = area.Mul(rule.Rate)
	case domain.BasisPerPerimeter:
		base = perimeter.Mul(rule.Rate)
	case domain.BasisPerOpening:
		base = decimal.NewFromInt(int64(openings)).Mul(rule.Rate)
	case domain.BasisFixed:
		base = rule.Rate
	default:
		return decimal.Zero, apperror.CatalogLookup("rule %s has unknown basis %q", rule.ID, rule.Basis)
	}

	if rule.PackSize.IsPositive() && !rule.PackSize.Equal(decimal.NewFromInt(1)) {
		base = base.Div(rule.PackSize)
	}

	switch rule.Rounding {
	case domain.RoundingExact:
		return base.RoundCeil(2), nil
	default:
		return base.Ceil(), nil
	}
}
