package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AuditEntry records one committed correction. Rows are written once and never updated.
type AuditEntry struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	CorrectionID string            `gorm:"type:text;not null;index" json:"correction_id"`
	EntityType   string            `gorm:"type:text;not null;index:idx_audit_target,priority:1" json:"entity_type"`
	EntityID     string            `gorm:"type:text;not null;index:idx_audit_target,priority:2" json:"entity_id"`
	Field        string            `gorm:"type:text;not null;index:idx_audit_target,priority:3" json:"field"`
	Before       decimal.Decimal   `gorm:"column:before_value;type:numeric(18,4);not null" json:"before"`
	After        decimal.Decimal   `gorm:"column:after_value;type:numeric(18,4);not null" json:"after"`
	Actor        string            `gorm:"type:text;not null" json:"actor"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CommittedAt  time.Time         `gorm:"not null;index" json:"committed_at"`
}

func (AuditEntry) TableName() string { return "audit_entries" }
