// Package structural checks a requested span against the span table.
package structural

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/pkg/money"
)

const WarnSupportSpacingExceedsRecommended = "support_spacing_exceeds_recommended"

// MarginPlaces is the precision of the reported margin ratio.
const MarginPlaces = 4

// SpanTable resolves span entries. *domain.Snapshot satisfies it.
type SpanTable interface {
	SpanFor(family string, thicknessMm int) (domain.SpanEntry, bool)
}

// Check is the outcome of a span check. A failing check is a result, not an error.
type Check struct {
	Family                     string          `json:"family"`
	SpanM                      decimal.Decimal `json:"span_m"`
	ThicknessMm                int             `json:"thickness_mm"`
	SupportSpacingM            decimal.Decimal `json:"support_spacing_m"`
	MaxSpanM                   decimal.Decimal `json:"max_span_m"`
	RecommendedSupportSpacingM decimal.Decimal `json:"recommended_support_spacing_m"`
	Pass                       bool            `json:"pass"`
	Margin                     decimal.Decimal `json:"margin"`
	Warnings                   []string        `json:"warnings,omitempty"`
}

// ValidateSpan computes margin = (max - span) / max. The boundary is inclusive, so a
// span equal to the maximum passes with a margin of exactly zero.
func ValidateSpan(table SpanTable, family string, thicknessMm int, spanM, supportSpacingM decimal.Decimal) (Check, error) {
	if domain.FamilyKey(family) == "" {
		return Check{}, apperror.InputValidation("family: required")
	}
	if thicknessMm <= 0 {
		return Check{}, apperror.InputValidation("thickness_mm: gt=0")
	}
	if !spanM.IsPositive() {
		return Check{}, apperror.InputValidation("span_m: gt=0")
	}
	if !supportSpacingM.IsPositive() {
		return Check{}, apperror.InputValidation("support_spacing_m: gt=0")
	}

	entry, ok := table.SpanFor(family, thicknessMm)
	if !ok {
		return Check{}, apperror.CatalogLookup("no span table entry for %s at %d mm", family, thicknessMm)
	}
	if !entry.MaxSpanM.IsPositive() {
		return Check{}, apperror.CatalogLookup("span table entry for %s at %d mm has no maximum span", family, thicknessMm)
	}

	margin := money.RoundHalfUp(entry.MaxSpanM.Sub(spanM).Div(entry.MaxSpanM), MarginPlaces)
	check := Check{
		Family:                     entry.Family,
		SpanM:                      spanM,
		ThicknessMm:                thicknessMm,
		SupportSpacingM:            supportSpacingM,
		MaxSpanM:                   entry.MaxSpanM,
		RecommendedSupportSpacingM: entry.RecommendedSupportSpacingM,
		Pass:                       spanM.LessThanOrEqual(entry.MaxSpanM),
		Margin:                     margin,
	}
	// a tiny overshoot can round to zero; a failing check never reports a non-negative margin
	if !check.Pass && !margin.IsNegative() {
		check.Margin = decimal.New(-1, -MarginPlaces)
	}
	if entry.RecommendedSupportSpacingM.IsPositive() && supportSpacingM.GreaterThan(entry.RecommendedSupportSpacingM) {
		check.Warnings = append(check.Warnings, WarnSupportSpacingExceedsRecommended)
	}
	return check, nil
}
