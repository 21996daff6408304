package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	creditnotedomain "github.com/smallbiznis/aquabill/internal/creditnote/domain"
	"gorm.io/gorm"
)

const creditNoteColumns = `id, billing_id, reference, type, amount, reason, status, issued_by, void_reason, voided_at, created_at, updated_at`

type repo struct{}

func Provide() creditnotedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, note *creditnotedomain.CreditNote) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_notes (id, billing_id, reference, type, amount, reason, status, issued_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.BillingID,
		note.Reference,
		note.Type,
		note.Amount,
		note.Reason,
		note.Status,
		note.IssuedBy,
		note.CreatedAt,
		note.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*creditnotedomain.CreditNote, error) {
	var note creditnotedomain.CreditNote
	err := db.WithContext(ctx).Raw(
		`SELECT `+creditNoteColumns+` FROM credit_notes WHERE id = ?`,
		id,
	).Scan(&note).Error
	if err != nil {
		return nil, err
	}
	if note.ID == 0 {
		return nil, nil
	}
	return &note, nil
}

func (r *repo) ListByBilling(ctx context.Context, db *gorm.DB, billingID snowflake.ID) ([]creditnotedomain.CreditNote, error) {
	var notes []creditnotedomain.CreditNote
	err := db.WithContext(ctx).Raw(
		`SELECT `+creditNoteColumns+` FROM credit_notes
		 WHERE billing_id = ?
		 ORDER BY id ASC`,
		billingID,
	).Scan(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *repo) Void(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE credit_notes
		 SET status = 'voided', void_reason = ?, voided_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'applied'`,
		reason,
		at,
		id,
	).Error
}
