package repository

import (
	"context"

	"github.com/smallbiznis/aquabill/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (id, entity_type, entity_id, event, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Event,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListByEntity(ctx context.Context, db *gorm.DB, entityType, entityID string) ([]domain.AuditLog, error) {
	var entries []domain.AuditLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, entity_type, entity_id, event, metadata, created_at
		 FROM audit_logs
		 WHERE entity_type = ? AND entity_id = ?
		 ORDER BY created_at ASC, id ASC`,
		entityType,
		entityID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
