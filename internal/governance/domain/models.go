package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/pkg/money"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusProposed  Status = "proposed"
	StatusValidated Status = "validated"
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected"
)

// Terminal statuses have no outgoing transition.
func (s Status) Terminal() bool {
	return s == StatusCommitted || s == StatusRejected
}

// CanTransition reports whether the state machine allows s -> next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusProposed:
		return next == StatusValidated || next == StatusRejected
	case StatusValidated:
		return next == StatusCommitted || next == StatusRejected
	default:
		return false
	}
}

// Correction is a governed change to one reference field.
type Correction struct {
	ID           string          `gorm:"primaryKey;type:text" json:"id"`
	EntityType   string          `gorm:"type:text;not null;index:idx_corrections_target,priority:1" json:"entity_type"`
	EntityID     string          `gorm:"type:text;not null;index:idx_corrections_target,priority:2" json:"entity_id"`
	Field        string          `gorm:"type:text;not null;index:idx_corrections_target,priority:3" json:"field"`
	OldValue     decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"old_value"`
	NewValue     decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"new_value"`
	Reason       string          `gorm:"type:text;not null" json:"reason"`
	Reporter     string          `gorm:"type:text;not null" json:"reporter"`
	Status       Status          `gorm:"type:text;not null;index" json:"status"`
	// ActiveKey is the target key while the correction is non-terminal and NULL afterwards.
	// Its unique index allows a single open correction per field.
	ActiveKey    *string         `gorm:"type:text;uniqueIndex" json:"-"`
	Impact       *ImpactReport   `gorm:"-" json:"impact,omitempty"`
	ImpactJSON   datatypes.JSON  `gorm:"column:impact;type:json" json:"-"`
	RejectReason string          `gorm:"type:text" json:"reject_reason,omitempty"`
	CommittedBy  string          `gorm:"type:text" json:"committed_by,omitempty"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
	ValidatedAt  *time.Time      `json:"validated_at,omitempty"`
	CommittedAt  *time.Time      `json:"committed_at,omitempty"`
	RejectedAt   *time.Time      `json:"rejected_at,omitempty"`
}

func (Correction) TableName() string { return "corrections" }

func (c *Correction) Target() catalogdomain.Target {
	return catalogdomain.Target{
		EntityType: catalogdomain.EntityType(c.EntityType),
		EntityID:   c.EntityID,
		Field:      c.Field,
	}
}

func (c *Correction) BeforeSave(*gorm.DB) error {
	if c.Impact == nil {
		c.ImpactJSON = nil
		return nil
	}
	raw, err := json.Marshal(c.Impact)
	if err != nil {
		return err
	}
	c.ImpactJSON = raw
	return nil
}

func (c *Correction) AfterFind(*gorm.DB) error {
	if len(c.ImpactJSON) == 0 {
		return nil
	}
	var report ImpactReport
	if err := json.Unmarshal(c.ImpactJSON, &report); err != nil {
		return err
	}
	c.Impact = &report
	return nil
}

// ImpactReport summarises how a correction would move historical quotations.
// WeightDelta is reported in grams alongside the price delta so weight corrections do not
// read as zero impact.
type ImpactReport struct {
	CorrectionID     string      `json:"correction_id"`
	AnalyzedCount    int         `json:"analyzed_count"`
	SkippedCount     int         `json:"skipped_count"`
	ReferencingCount int         `json:"referencing_count"`
	Window           int         `json:"window"`
	SnapshotVersion  int64       `json:"snapshot_version"`
	PriceDelta       money.Stats `json:"price_delta"`
	WeightDelta      money.Stats `json:"weight_delta"`
	GeneratedAt      time.Time   `json:"generated_at"`
	ExpiresAt        time.Time   `json:"expires_at"`
}

func (r *ImpactReport) Expired(now time.Time) bool {
	return r == nil || !now.Before(r.ExpiresAt)
}
