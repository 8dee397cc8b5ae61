package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/bom"
	"github.com/smallbiznis/panelquote/internal/structural"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Request holds every input needed to price an installation. It is stored with the
// quotation so the same request can be re-run later.
type Request struct {
	CustomerRef     string          `json:"customer_ref" validate:"required,max=128"`
	Family          string          `json:"family" validate:"required"`
	ThicknessMm     int             `json:"thickness_mm" validate:"gt=0"`
	LengthM         decimal.Decimal `json:"length_m" validate:"gt=0"`
	WidthM          decimal.Decimal `json:"width_m" validate:"gt=0"`
	SpanM           decimal.Decimal `json:"span_m" validate:"gt=0"`
	SupportSpacingM decimal.Decimal `json:"support_spacing_m" validate:"gt=0"`
	Openings        int             `json:"openings" validate:"gte=0"`
}

func (r Request) BOMInput() bom.Input {
	return bom.Input{
		Family:      r.Family,
		ThicknessMm: r.ThicknessMm,
		LengthM:     r.LengthM,
		WidthM:      r.WidthM,
		Openings:    r.Openings,
	}
}

// Quotation is immutable once created. A re-quote produces a new row.
type Quotation struct {
	ID               snowflake.ID     `gorm:"primaryKey" json:"id"`
	CustomerRef      string           `gorm:"type:text;not null;index" json:"customer_ref"`
	Family           string           `gorm:"type:text;not null" json:"family"`
	ThicknessMm      int              `gorm:"not null" json:"thickness_mm"`
	Request          Request          `gorm:"-" json:"request"`
	RequestJSON      datatypes.JSON   `gorm:"column:request;type:json;not null" json:"-"`
	Lines            []LineItem       `gorm:"foreignKey:QuotationID;references:ID" json:"lines"`
	Currency         string           `gorm:"type:text;not null" json:"currency"`
	Subtotal         decimal.Decimal  `gorm:"type:numeric(18,4);not null" json:"subtotal"`
	Tax              decimal.Decimal  `gorm:"type:numeric(18,4);not null" json:"tax"`
	Total            decimal.Decimal  `gorm:"type:numeric(18,4);not null" json:"total"`
	TotalWeightGrams decimal.Decimal  `gorm:"type:numeric(18,0);not null" json:"total_weight_grams"`
	Structural       structural.Check `gorm:"-" json:"structural"`
	StructuralJSON   datatypes.JSON   `gorm:"column:structural;type:json;not null" json:"-"`
	Warnings         []string         `gorm:"-" json:"warnings"`
	WarningsJSON     datatypes.JSON   `gorm:"column:warnings;type:json" json:"-"`
	SnapshotVersion  int64            `gorm:"not null" json:"snapshot_version"`
	SourceID         *snowflake.ID    `gorm:"index" json:"source_id,omitempty"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
}

func (Quotation) TableName() string { return "quotations" }

// LineItem captures the unit price at quotation time; later catalog changes never
// reach an existing line.
type LineItem struct {
	QuotationID snowflake.ID    `gorm:"primaryKey" json:"-"`
	Position    int             `gorm:"primaryKey" json:"position"`
	SKU         string          `gorm:"type:text;not null;index" json:"sku"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Unit        string          `gorm:"type:text;not null" json:"unit"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"subtotal"`
	WeightGrams decimal.Decimal `gorm:"type:numeric(18,3);not null" json:"weight_grams"`
}

func (LineItem) TableName() string { return "quotation_lines" }

// References reports whether any line of q uses sku.
func (q *Quotation) References(sku string) bool {
	for _, line := range q.Lines {
		if line.SKU == sku {
			return true
		}
	}
	return false
}

// BeforeCreate serialises the structured fields into their JSON columns.
func (q *Quotation) BeforeCreate(*gorm.DB) error {
	var err error
	if q.RequestJSON, err = json.Marshal(q.Request); err != nil {
		return err
	}
	if q.StructuralJSON, err = json.Marshal(q.Structural); err != nil {
		return err
	}
	warnings := q.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	q.WarningsJSON, err = json.Marshal(warnings)
	return err
}

// AfterFind restores the structured fields from their JSON columns.
func (q *Quotation) AfterFind(*gorm.DB) error {
	if len(q.RequestJSON) > 0 {
		if err := json.Unmarshal(q.RequestJSON, &q.Request); err != nil {
			return err
		}
	}
	if len(q.StructuralJSON) > 0 {
		if err := json.Unmarshal(q.StructuralJSON, &q.Structural); err != nil {
			return err
		}
	}
	if len(q.WarningsJSON) > 0 {
		if err := json.Unmarshal(q.WarningsJSON, &q.Warnings); err != nil {
			return err
		}
	}
	return nil
}
