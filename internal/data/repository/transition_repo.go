package repository

import (
	"context"
	"fmt"

	"payment-service/internal/data/entity"
	"payment-service/pkg/database"

	"go.uber.org/zap"
)

// TransitionRepository is the transaction boundary for the {payment,
// reservation} pair. Both records commit together or not at all, so the
// paid=>occupied / cancelled=>available invariants are never observable
// half-applied.
type TransitionRepository interface {
	// CreateWithHold inserts a new pending payment and, when reservation is
	// not nil, moves the reservation from available to held in the same
	// transaction. Returns ErrConflictingHold when the reservation is not
	// available.
	CreateWithHold(ctx context.Context, payment *entity.Payment, reservation *entity.Reservation) error

	// Apply persists an accepted status transition: the payment row and,
	// when reservation is not nil, the paired reservation row.
	Apply(ctx context.Context, payment *entity.Payment, reservation *entity.Reservation) error
}

type transitionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTransitionRepository(db database.PgxIface, log *zap.Logger) TransitionRepository {
	return &transitionRepository{
		db:  db,
		log: log.With(zap.String("repository", "transition")),
	}
}

func (r *transitionRepository) CreateWithHold(ctx context.Context, payment *entity.Payment, reservation *entity.Reservation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create payment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insertPayment := `
		INSERT INTO payments (id, charge_ref, amount, currency, payment_method, status,
			customer_email, description, metadata, reservation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.Exec(ctx, insertPayment,
		payment.ID,
		payment.ChargeRef,
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Status,
		payment.CustomerEmail,
		payment.Description,
		payment.Metadata,
		payment.ReservationID,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to insert payment",
			zap.Error(err),
			zap.String("charge_ref", payment.ChargeRef),
		)
		return fmt.Errorf("insert payment %s: %w", payment.ChargeRef, err)
	}

	if reservation != nil {
		// Conditional update is the optimistic hold: only an available seat
		// may be taken, and a concurrent holder wins by committing first.
		hold := `
			UPDATE reservations
			SET status = $2, held_until = $3, held_by = $4, updated_at = $5
			WHERE id = $1 AND status = $6
		`

		tag, err := tx.Exec(ctx, hold,
			reservation.ID,
			entity.ReservationStatusHeld,
			reservation.HeldUntil,
			reservation.HeldBy,
			reservation.UpdatedAt,
			entity.ReservationStatusAvailable,
		)
		if err != nil {
			r.log.Error("Failed to hold reservation",
				zap.Error(err),
				zap.String("reservation_id", reservation.ID.String()),
			)
			return fmt.Errorf("hold reservation %s: %w", reservation.ID.String(), err)
		}
		if tag.RowsAffected() == 0 {
			return ErrConflictingHold
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create payment tx: %w", err)
	}

	return nil
}

func (r *transitionRepository) Apply(ctx context.Context, payment *entity.Payment, reservation *entity.Reservation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updatePayment := `
		UPDATE payments
		SET status = $2, metadata = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, updatePayment,
		payment.ID,
		payment.Status,
		payment.Metadata,
		payment.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update payment",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return fmt.Errorf("update payment %s: %w", payment.ID.String(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}

	if reservation != nil {
		updateReservation := `
			UPDATE reservations
			SET status = $2, held_until = $3, held_by = $4, updated_at = $5
			WHERE id = $1
		`

		tag, err := tx.Exec(ctx, updateReservation,
			reservation.ID,
			reservation.Status,
			reservation.HeldUntil,
			reservation.HeldBy,
			reservation.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to update reservation",
				zap.Error(err),
				zap.String("reservation_id", reservation.ID.String()),
				zap.String("status", string(reservation.Status)),
			)
			return fmt.Errorf("update reservation %s: %w", reservation.ID.String(), err)
		}
		if tag.RowsAffected() == 0 {
			return ErrReservationNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transition tx: %w", err)
	}

	return nil
}
