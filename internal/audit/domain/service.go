package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service interface {
	// LogEvent records an event for an entity. Failures are logged but must
	// never abort the calling business operation.
	LogEvent(ctx context.Context, entityType, entityID, event string, metadata map[string]any) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	ListByEntity(ctx context.Context, db *gorm.DB, entityType, entityID string) ([]AuditLog, error)
}

var (
	ErrInvalidEvent  = errors.New("invalid_event")
	ErrInvalidEntity = errors.New("invalid_entity")
)
