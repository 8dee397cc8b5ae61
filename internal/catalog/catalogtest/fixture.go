// Package catalogtest provides a small, fully populated reference snapshot for tests.
package catalogtest

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/catalog/domain"
)

var LoadedAt = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Snapshot returns a fresh copy of the fixture catalog. Callers may modify the result.
func Snapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Version:  1,
		LoadedAt: LoadedAt,
		Pricing:  domain.PricingPolicy{ID: 1, Currency: "USD", MinorUnits: 2, TaxRate: d("0.11")},
		Items:    Items(),
		Rules:    Rules(),
		Spans:    Spans(),
	}
}

func Items() map[string]domain.CatalogItem {
	items := []domain.CatalogItem{
		{SKU: "PNL-EPS-50", Name: "EPS sandwich panel 50mm", Category: domain.CategoryPanel, UnitPrice: d("42.50"), WeightGrams: d("9800"), LengthMm: d("5000"), WidthMm: d("1150"), ThicknessMm: d("50"), StructuralRatingKPa: d("1.2")},
		{SKU: "PNL-EPS-75", Name: "EPS sandwich panel 75mm", Category: domain.CategoryPanel, UnitPrice: d("51.20"), WeightGrams: d("12400"), LengthMm: d("5000"), WidthMm: d("1150"), ThicknessMm: d("75"), StructuralRatingKPa: d("1.6")},
		{SKU: "PNL-PU-50", Name: "PU sandwich panel 50mm", Category: domain.CategoryPanel, UnitPrice: d("68.90"), WeightGrams: d("10500"), LengthMm: d("4000"), WidthMm: d("1150"), ThicknessMm: d("50"), StructuralRatingKPa: d("1.4")},
		{SKU: "FST-SDS", Name: "Self-drilling screw with washer", Category: domain.CategoryFastener, UnitPrice: d("0.1825"), WeightGrams: d("12")},
		{SKU: "ACC-FLASH-3M", Name: "Edge flashing 3m", Category: domain.CategoryAccessory, UnitPrice: d("12.75"), WeightGrams: d("1450"), LengthMm: d("3000")},
		{SKU: "ACC-SEAL", Name: "Joint sealant", Category: domain.CategoryAccessory, UnitPrice: d("8.40"), WeightGrams: d("1300")},
		{SKU: "ACC-TRIM-OPEN", Name: "Opening trim kit", Category: domain.CategoryAccessory, UnitPrice: d("23.00"), WeightGrams: d("2100")},
		{SKU: "ACC-CORNER", Name: "Corner bracket", Category: domain.CategoryAccessory, UnitPrice: d("3.10"), WeightGrams: d("150")},
	}
	out := make(map[string]domain.CatalogItem, len(items))
	for _, item := range items {
		item.Version = 1
		item.UpdatedAt = LoadedAt
		out[item.SKU] = item
	}
	return out
}

func Rules() []domain.BOMRule {
	one := d("1")
	return []domain.BOMRule{
		{ID: "r-pnl-eps-50", Family: "EPS", MinThicknessMm: 40, MaxThicknessMm: 60, SKU: "PNL-EPS-50", Basis: domain.BasisCoverage, CoverageM2: d("5.75"), PackSize: one, Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 10},
		{ID: "r-pnl-eps-75", Family: "EPS", MinThicknessMm: 61, MaxThicknessMm: 100, SKU: "PNL-EPS-75", Basis: domain.BasisCoverage, CoverageM2: d("5.75"), PackSize: one, Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 10},
		{ID: "r-pnl-pu-50", Family: "PU", MinThicknessMm: 40, MaxThicknessMm: 60, SKU: "PNL-PU-50", Basis: domain.BasisCoverage, CoverageM2: d("4.6"), PackSize: one, Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 10},
		{ID: "r-fst-eps", Family: "EPS", MinThicknessMm: 1, MaxThicknessMm: 200, SKU: "FST-SDS", Basis: domain.BasisPerPerimeter, Rate: d("4"), PackSize: one, Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 20},
		{ID: "r-fst-eps-thick", Family: "EPS", MinThicknessMm: 61, MaxThicknessMm: 100, SKU: "FST-SDS", Basis: domain.BasisPerPerimeter, Rate: d("5"), PackSize: one, Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 20},
		{ID: "r-fst-pu", Family: "PU", MinThicknessMm: 1, MaxThicknessMm: 200, SKU: "FST-SDS", Basis: domain.BasisPerPerimeter, Rate: d("3"), PackSize: one, Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 20},
		{ID: "r-flash-eps", Family: "EPS", MinThicknessMm: 1, MaxThicknessMm: 200, SKU: "ACC-FLASH-3M", Basis: domain.BasisPerPerimeter, Rate: one, PackSize: d("3"), Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 30},
		{ID: "r-flash-pu", Family: "PU", MinThicknessMm: 1, MaxThicknessMm: 200, SKU: "ACC-FLASH-3M", Basis: domain.BasisPerPerimeter, Rate: one, PackSize: d("3"), Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 30},
		{ID: "r-seal-eps", Family: "EPS", MinThicknessMm: 1, MaxThicknessMm: 200, SKU: "ACC-SEAL", Basis: domain.BasisPerArea, Rate: d("0.05"), PackSize: one, Unit: "l", Rounding: domain.RoundingExact, Sequence: 40},
		{ID: "r-trim-open", Family: domain.WildcardFamily, MinThicknessMm: 1, MaxThicknessMm: 500, SKU: "ACC-TRIM-OPEN", Basis: domain.BasisPerOpening, Rate: one, PackSize: one, Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 50},
		{ID: "r-corner", Family: domain.WildcardFamily, MinThicknessMm: 1, MaxThicknessMm: 500, SKU: "ACC-CORNER", Basis: domain.BasisFixed, Rate: d("4"), PackSize: one, Unit: "pcs", Rounding: domain.RoundingCeil, Sequence: 60},
	}
}

func Spans() []domain.SpanEntry {
	return []domain.SpanEntry{
		{Family: "EPS", ThicknessMm: 50, MaxSpanM: d("7.0"), RecommendedSupportSpacingM: d("1.2")},
		{Family: "EPS", ThicknessMm: 75, MaxSpanM: d("7.5"), RecommendedSupportSpacingM: d("1.5")},
		{Family: "PU", ThicknessMm: 50, MaxSpanM: d("4.5"), RecommendedSupportSpacingM: d("1.0")},
	}
}
