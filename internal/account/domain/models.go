// Package domain contains persistence models for billing accounts and meters.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AccountStatus represents account lifecycle states.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusInactive  AccountStatus = "inactive"
)

// Account is the billing entity owning one or more meters. Suspended and
// inactive accounts are never billed.
type Account struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	AccountNumber string        `gorm:"type:text;not null;uniqueIndex:ux_accounts_number"`
	Name          string        `gorm:"type:text;not null"`
	Status        AccountStatus `gorm:"type:text;not null;default:'active'"`
	ActivatedAt   *time.Time    `gorm:""`
	SuspendedAt   *time.Time    `gorm:""`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// MeterStatus represents meter lifecycle states.
type MeterStatus string

const (
	MeterStatusActive   MeterStatus = "active"
	MeterStatusInactive MeterStatus = "inactive"
	MeterStatusReplaced MeterStatus = "replaced"
)

// MeterType distinguishes individually billed meters from bulk meters whose
// consumption is distributed across sub-meters.
type MeterType string

const (
	MeterTypeIndividual MeterType = "individual"
	MeterTypeBulk       MeterType = "bulk"
)

// Meter is a consumption point owned by an account. A sub-meter references
// its bulk parent through ParentMeterID.
type Meter struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	AccountID     snowflake.ID  `gorm:"not null;index"`
	MeterNumber   string        `gorm:"type:text;not null;uniqueIndex:ux_meters_number"`
	Status        MeterStatus   `gorm:"type:text;not null;default:'active'"`
	Type          MeterType     `gorm:"type:text;not null;default:'individual'"`
	ParentMeterID *snowflake.ID `gorm:"index"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Meter) TableName() string { return "meters" }
