package structural

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/catalog/catalogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateSpan(t *testing.T) {
	snap := catalogtest.Snapshot()

	tests := []struct {
		name     string
		family   string
		thick    int
		span     string
		spacing  string
		pass     bool
		margin   string
		warnings []string
	}{
		{name: "comfortable", family: "EPS", thick: 50, span: "6", spacing: "1", pass: true, margin: "0.1429"},
		{name: "boundary", family: "EPS", thick: 75, span: "7.5", spacing: "1.5", pass: true, margin: "0"},
		{name: "just over", family: "EPS", thick: 75, span: "7.5000001", spacing: "1", pass: false, margin: "-0.0001"},
		{name: "over", family: "pu", thick: 50, span: "5", spacing: "1", pass: false, margin: "-0.1111"},
		{name: "wide spacing", family: "EPS", thick: 50, span: "3.5", spacing: "1.8", pass: true, margin: "0.5", warnings: []string{WarnSupportSpacingExceedsRecommended}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := ValidateSpan(snap, tt.family, tt.thick, dec(tt.span), dec(tt.spacing))
			require.NoError(t, err)
			assert.Equal(t, tt.pass, check.Pass)
			assert.True(t, dec(tt.margin).Equal(check.Margin), "margin %s", check.Margin)
			assert.Equal(t, tt.warnings, check.Warnings)
		})
	}
}

func TestValidateSpanBoundaryMarginIsExactlyZero(t *testing.T) {
	check, err := ValidateSpan(catalogtest.Snapshot(), "EPS", 50, dec("7.0"), dec("1"))
	require.NoError(t, err)
	assert.True(t, check.Pass)
	assert.True(t, check.Margin.IsZero())
	assert.False(t, check.Margin.IsNegative())
}

func TestValidateSpanErrors(t *testing.T) {
	snap := catalogtest.Snapshot()

	_, err := ValidateSpan(snap, "EPS", 60, dec("3"), dec("1"))
	assert.ErrorIs(t, err, apperror.ErrCatalogLookup)

	_, err = ValidateSpan(snap, "EPS", 50, dec("0"), dec("1"))
	assert.ErrorIs(t, err, apperror.ErrInputValidation)

	_, err = ValidateSpan(snap, "EPS", 50, dec("2"), dec("-1"))
	assert.ErrorIs(t, err, apperror.ErrInputValidation)

	_, err = ValidateSpan(snap, " ", 50, dec("2"), dec("1"))
	assert.ErrorIs(t, err, apperror.ErrInputValidation)
}
