package bom

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/catalog/catalogtest"
	"github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quantities(res Result) map[string]string {
	out := make(map[string]string, len(res.Lines))
	for _, line := range res.Lines {
		out[line.SKU] = line.Quantity.StringFixed(2)
	}
	return out
}

func TestComputeEPS50(t *testing.T) {
	res, err := Compute(catalogtest.Rules(), Input{Family: "EPS", ThicknessMm: 50, LengthM: dec("6"), WidthM: dec("10"), Openings: 2})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"PNL-EPS-50":    "11.00",
		"FST-SDS":       "128.00",
		"ACC-FLASH-3M":  "11.00",
		"ACC-SEAL":      "3.00",
		"ACC-TRIM-OPEN": "2.00",
		"ACC-CORNER":    "4.00",
	}, quantities(res))
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "60", res.AreaM2.String())
	assert.Equal(t, "32", res.PerimeterM.String())

	order := make([]string, 0, len(res.Lines))
	for _, line := range res.Lines {
		order = append(order, line.SKU)
	}
	assert.Equal(t, []string{"PNL-EPS-50", "FST-SDS", "ACC-FLASH-3M", "ACC-SEAL", "ACC-TRIM-OPEN", "ACC-CORNER"}, order)
}

func TestComputeTieBreak(t *testing.T) {
	// 75 mm EPS matches both fastener rules; the narrower range wins
	res, err := Compute(catalogtest.Rules(), Input{Family: "eps", ThicknessMm: 75, LengthM: dec("8.5"), WidthM: dec("12.3")})
	require.NoError(t, err)
	q := quantities(res)
	assert.Equal(t, "208.00", q["FST-SDS"])
	assert.Equal(t, "19.00", q["PNL-EPS-75"])
	assert.Equal(t, "5.23", q["ACC-SEAL"])
	_, hasTrim := q["ACC-TRIM-OPEN"]
	assert.False(t, hasTrim, "zero quantity lines are dropped")

	for _, line := range res.Lines {
		if line.SKU == "FST-SDS" {
			assert.Equal(t, "r-fst-eps-thick", line.RuleID)
		}
	}
}

func TestPreferredOrdering(t *testing.T) {
	exact := domain.BOMRule{ID: "b", Family: "EPS", MinThicknessMm: 1, MaxThicknessMm: 500}
	wild := domain.BOMRule{ID: "a", Family: domain.WildcardFamily, MinThicknessMm: 50, MaxThicknessMm: 50, Priority: 9}
	assert.True(t, preferred(exact, wild))
	assert.False(t, preferred(wild, exact))

	narrow := domain.BOMRule{ID: "z", Family: "EPS", MinThicknessMm: 40, MaxThicknessMm: 60}
	assert.True(t, preferred(narrow, exact))

	high := domain.BOMRule{ID: "y", Family: "EPS", MinThicknessMm: 40, MaxThicknessMm: 60, Priority: 2}
	assert.True(t, preferred(high, narrow))

	twin := domain.BOMRule{ID: "x", Family: "EPS", MinThicknessMm: 40, MaxThicknessMm: 60, Priority: 2}
	assert.True(t, preferred(twin, high))
}

func TestComputeIsDeterministicAcrossRuleOrder(t *testing.T) {
	rules := catalogtest.Rules()
	reversed := make([]domain.BOMRule, len(rules))
	for i, r := range rules {
		reversed[len(rules)-1-i] = r
	}
	in := Input{Family: "EPS", ThicknessMm: 75, LengthM: dec("3.3"), WidthM: dec("7.1"), Openings: 1}

	a, err := Compute(rules, in)
	require.NoError(t, err)
	b, err := Compute(reversed, in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeMonotonicInArea(t *testing.T) {
	rules := catalogtest.Rules()
	sizes := []string{"0.5", "1", "2.75", "4", "5.75", "6", "9.9", "12", "25", "40"}

	for _, family := range []string{"EPS", "PU"} {
		for _, fixed := range sizes {
			prevPanels, prevFasteners := decimal.Zero, decimal.Zero
			for _, grow := range sizes {
				res, err := Compute(rules, Input{Family: family, ThicknessMm: 50, LengthM: dec(grow), WidthM: dec(fixed)})
				require.NoError(t, err)
				var panels, fasteners decimal.Decimal
				for _, line := range res.Lines {
					switch line.SKU {
					case "FST-SDS":
						fasteners = line.Quantity
					case "ACC-FLASH-3M", "ACC-SEAL", "ACC-CORNER":
					default:
						panels = line.Quantity
					}
				}
				assert.True(t, panels.GreaterThanOrEqual(prevPanels), "%s %sx%s panels", family, grow, fixed)
				assert.True(t, fasteners.GreaterThanOrEqual(prevFasteners), "%s %sx%s fasteners", family, grow, fixed)
				prevPanels, prevFasteners = panels, fasteners
			}
		}
	}
}

func TestComputeRejectsBadGeometry(t *testing.T) {
	rules := catalogtest.Rules()
	cases := []Input{
		{Family: "EPS", ThicknessMm: 50, LengthM: dec("0"), WidthM: dec("1")},
		{Family: "EPS", ThicknessMm: 50, LengthM: dec("1"), WidthM: dec("-2")},
		{Family: "EPS", ThicknessMm: 0, LengthM: dec("1"), WidthM: dec("1")},
		{Family: "", ThicknessMm: 50, LengthM: dec("1"), WidthM: dec("1")},
		{Family: "EPS", ThicknessMm: 50, LengthM: dec("1"), WidthM: dec("1"), Openings: -1},
		{Family: "EPS", ThicknessMm: 50, WidthM: dec("1")},
	}
	for _, in := range cases {
		_, err := Compute(rules, in)
		assert.ErrorIs(t, err, apperror.ErrInputValidation, "%+v", in)
	}
}

func TestComputeMissingCoverageRule(t *testing.T) {
	_, err := Compute(catalogtest.Rules(), Input{Family: "Rock Wool", ThicknessMm: 50, LengthM: dec("2"), WidthM: dec("2")})
	assert.ErrorIs(t, err, apperror.ErrCatalogLookup)

	_, err = Compute(catalogtest.Rules(), Input{Family: "PU", ThicknessMm: 80, LengthM: dec("2"), WidthM: dec("2")})
	assert.ErrorIs(t, err, apperror.ErrCatalogLookup)
}

func TestSanityCeilingWarns(t *testing.T) {
	res, err := Compute(catalogtest.Rules(), Input{Family: "EPS", ThicknessMm: 50, LengthM: dec("100.01"), WidthM: dec("2")})
	require.NoError(t, err)
	assert.Equal(t, []string{WarnDimensionExceedsCeiling}, res.Warnings)

	res, err = Compute(catalogtest.Rules(), Input{Family: "EPS", ThicknessMm: 50, LengthM: dec("100"), WidthM: dec("2")})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	res, err = New(dec("10")).Compute(catalogtest.Rules(), Input{Family: "EPS", ThicknessMm: 50, LengthM: dec("12"), WidthM: dec("2")})
	require.NoError(t, err)
	assert.Equal(t, []string{WarnDimensionExceedsCeiling}, res.Warnings)
}
