package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-service/internal/data/entity"
	"payment-service/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByChargeRef(ctx context.Context, chargeRef string) (*entity.Payment, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.Payment, error)

	// FindExpiredPending returns pending payments created before the cutoff.
	// Used by the expiration sweeper; eligibility is re-checked at apply time.
	FindExpiredPending(ctx context.Context, cutoff time.Time) ([]*entity.Payment, error)
}

type paymentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewPaymentRepository(db database.Querier, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, charge_ref, amount, currency, payment_method, status,
	customer_email, description, metadata, reservation_id, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var payment entity.Payment
	err := row.Scan(
		&payment.ID,
		&payment.ChargeRef,
		&payment.Amount,
		&payment.Currency,
		&payment.Method,
		&payment.Status,
		&payment.CustomerEmail,
		&payment.Description,
		&payment.Metadata,
		&payment.ReservationID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)

	payment, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByChargeRef(ctx context.Context, chargeRef string) (*entity.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE charge_ref = $1`, paymentColumns)

	payment, err := scanPayment(r.db.QueryRow(ctx, query, chargeRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		r.log.Error("Failed to find payment by charge ref",
			zap.Error(err),
			zap.String("charge_ref", chargeRef),
		)
		return nil, fmt.Errorf("find payment by charge ref %s: %w", chargeRef, err)
	}

	return payment, nil
}

func (r *paymentRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payments
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, paymentColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to list payments",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (r *paymentRepository) FindExpiredPending(ctx context.Context, cutoff time.Time) ([]*entity.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
	`, paymentColumns)

	rows, err := r.db.Query(ctx, query, entity.PaymentStatusPending, cutoff)
	if err != nil {
		r.log.Error("Failed to find expired pending payments",
			zap.Error(err),
			zap.Time("cutoff", cutoff),
		)
		return nil, fmt.Errorf("find expired pending payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]*entity.Payment, error) {
	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, nil
}
