package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/quotation/domain"
	"github.com/smallbiznis/panelquote/internal/structural"
	"github.com/smallbiznis/panelquote/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotation(id snowflake.ID, at time.Time, skus ...string) *domain.Quotation {
	q := &domain.Quotation{
		ID:          id,
		CustomerRef: "ACME-1",
		Family:      "EPS",
		ThicknessMm: 50,
		Request: domain.Request{
			CustomerRef: "ACME-1", Family: "EPS", ThicknessMm: 50,
			LengthM: decimal.NewFromInt(6), WidthM: decimal.NewFromInt(10),
			SpanM: decimal.NewFromInt(6), SupportSpacingM: decimal.NewFromInt(1),
		},
		Currency:         "USD",
		Subtotal:         decimal.RequireFromString("10.00"),
		Tax:              decimal.RequireFromString("1.10"),
		Total:            decimal.RequireFromString("11.10"),
		TotalWeightGrams: decimal.NewFromInt(100),
		Structural:       structural.Check{Family: "EPS", Pass: true, Margin: decimal.RequireFromString("0.1429")},
		Warnings:         []string{"dimension_exceeds_sanity_ceiling"},
		SnapshotVersion:  1,
		CreatedAt:        at,
	}
	for i, sku := range skus {
		q.Lines = append(q.Lines, domain.LineItem{
			Position: i + 1, SKU: sku, Description: sku, Unit: "pcs",
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5), Subtotal: decimal.NewFromInt(5), WeightGrams: decimal.NewFromInt(50),
		})
	}
	return q
}

func TestInsertAndFindByID(t *testing.T) {
	db := dbtest.Open(t, &domain.Quotation{}, &domain.LineItem{})
	r := Provide()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, r.Insert(ctx, db, quotation(1001, at, "PNL-EPS-50", "FST-SDS")))

	got, err := r.FindByID(ctx, db, 1001)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ACME-1", got.CustomerRef)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "PNL-EPS-50", got.Lines[0].SKU)
	assert.True(t, got.Request.LengthM.Equal(decimal.NewFromInt(6)))
	assert.True(t, got.Structural.Pass)
	assert.Equal(t, []string{"dimension_exceeds_sanity_ceiling"}, got.Warnings)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("11.10")))

	missing, err := r.FindByID(ctx, db, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListReferencingNewestFirstWithLimit(t *testing.T) {
	db := dbtest.Open(t, &domain.Quotation{}, &domain.LineItem{})
	r := Provide()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Insert(ctx, db, quotation(snowflake.ID(2000+i), base.Add(time.Duration(i)*time.Hour), "PNL-EPS-50", "ACC-SEAL")))
	}
	require.NoError(t, r.Insert(ctx, db, quotation(3000, base, "PNL-PU-50")))

	list, err := r.ListReferencing(ctx, db, "ACC-SEAL", 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, snowflake.ID(2004), list[0].ID)
	assert.Equal(t, snowflake.ID(2002), list[2].ID)
	assert.Len(t, list[0].Lines, 2)

	count, err := r.CountReferencing(ctx, db, "ACC-SEAL")
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	none, err := r.ListReferencing(ctx, db, "ACC-CORNER", 50)
	require.NoError(t, err)
	assert.Empty(t, none)
}
