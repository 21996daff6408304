// Package domain contains the audit trail contract consumed by the billing core.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records a billing-relevant event against an entity.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	EntityType string            `gorm:"type:text;not null;index:ix_audit_entity,priority:1"`
	EntityID   string            `gorm:"type:text;not null;index:ix_audit_entity,priority:2"`
	Event      string            `gorm:"type:text;not null;index"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
