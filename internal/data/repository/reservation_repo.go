package repository

import (
	"context"
	"errors"
	"fmt"

	"payment-service/internal/data/entity"
	"payment-service/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation *entity.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	FindAll(ctx context.Context) ([]*entity.Reservation, error)
}

type reservationRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewReservationRepository(db database.Querier, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation")),
	}
}

func (r *reservationRepository) Create(ctx context.Context, reservation *entity.Reservation) error {
	query := `
		INSERT INTO reservations (id, label, status, held_until, held_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		reservation.ID,
		reservation.Label,
		reservation.Status,
		reservation.HeldUntil,
		reservation.HeldBy,
		reservation.CreatedAt,
		reservation.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("label", reservation.Label),
		)
		return fmt.Errorf("create reservation %s: %w", reservation.Label, err)
	}

	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	query := `
		SELECT id, label, status, held_until, held_by, created_at, updated_at
		FROM reservations
		WHERE id = $1
	`

	var reservation entity.Reservation
	err := r.db.QueryRow(ctx, query, id).Scan(
		&reservation.ID,
		&reservation.Label,
		&reservation.Status,
		&reservation.HeldUntil,
		&reservation.HeldBy,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		r.log.Error("Failed to find reservation by ID",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return nil, fmt.Errorf("find reservation by ID %s: %w", id.String(), err)
	}

	return &reservation, nil
}

func (r *reservationRepository) FindAll(ctx context.Context) ([]*entity.Reservation, error) {
	query := `
		SELECT id, label, status, held_until, held_by, created_at, updated_at
		FROM reservations
		ORDER BY label
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to list reservations", zap.Error(err))
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*entity.Reservation
	for rows.Next() {
		var reservation entity.Reservation
		err := rows.Scan(
			&reservation.ID,
			&reservation.Label,
			&reservation.Status,
			&reservation.HeldUntil,
			&reservation.HeldBy,
			&reservation.CreatedAt,
			&reservation.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan reservation row", zap.Error(err))
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, &reservation)
	}

	return reservations, nil
}
