package repository

import (
	"context"
	"fmt"

	"payment-service/internal/data/entity"
	"payment-service/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditRepository is append-only. Entries are never updated or deleted;
// retention is handled outside this service.
type AuditRepository interface {
	Append(ctx context.Context, e *entity.AuditEntry) error
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*entity.AuditEntry, error)
}

type auditRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewAuditRepository(db database.Querier, log *zap.Logger) AuditRepository {
	return &auditRepository{
		db:  db,
		log: log.With(zap.String("repository", "audit")),
	}
}

func (r *auditRepository) Append(ctx context.Context, e *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (id, payment_id, charge_ref, signal, previous_status, result_status, outcome, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		e.ID,
		e.PaymentID,
		e.ChargeRef,
		e.Signal,
		e.PreviousStatus,
		e.ResultStatus,
		e.Outcome,
		e.Context,
		e.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to append audit entry",
			zap.Error(err),
			zap.String("payment_id", e.PaymentID.String()),
			zap.String("signal", string(e.Signal)),
		)
		return fmt.Errorf("append audit entry for payment %s: %w", e.PaymentID.String(), err)
	}

	return nil
}

func (r *auditRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, payment_id, charge_ref, signal, previous_status, result_status, outcome, context, created_at
		FROM audit_entries
		WHERE payment_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, paymentID)
	if err != nil {
		r.log.Error("Failed to find audit entries",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
		)
		return nil, fmt.Errorf("find audit entries for payment %s: %w", paymentID.String(), err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		err := rows.Scan(
			&e.ID,
			&e.PaymentID,
			&e.ChargeRef,
			&e.Signal,
			&e.PreviousStatus,
			&e.ResultStatus,
			&e.Outcome,
			&e.Context,
			&e.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan audit row", zap.Error(err))
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, nil
}
