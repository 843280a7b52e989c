package repository

import (
	"context"
	"testing"
	"time"

	"payment-service/internal/data/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seatAndPayment(chargeRef string, createdAt time.Time) (*entity.Reservation, *entity.Payment) {
	reservation := &entity.Reservation{
		Base:   entity.Base{ID: uuid.New(), CreatedAt: createdAt, UpdatedAt: createdAt},
		Label:  "A1",
		Status: entity.ReservationStatusAvailable,
	}
	payment := &entity.Payment{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: createdAt, UpdatedAt: createdAt},
		ChargeRef:     chargeRef,
		Amount:        10000,
		Currency:      "THB",
		Method:        entity.PaymentMethodPromptPay,
		Status:        entity.PaymentStatusPending,
		ReservationID: &reservation.ID,
	}
	return reservation, payment
}

func TestMemoryCreateWithHold_ConditionalOnAvailable(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	reservation, payment := seatAndPayment("chrg_mem_1", now)
	require.NoError(t, repo.Reservation.Create(ctx, reservation))

	reservation.Status = entity.ReservationStatusHeld
	require.NoError(t, repo.Transition.CreateWithHold(ctx, payment, reservation))

	seat, err := repo.Reservation.FindByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusHeld, seat.Status)

	// A second payment against the same seat loses the hold.
	second := &entity.Payment{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ChargeRef:     "chrg_mem_2",
		Status:        entity.PaymentStatusPending,
		ReservationID: &reservation.ID,
	}
	err = repo.Transition.CreateWithHold(ctx, second, reservation)
	require.ErrorIs(t, err, ErrConflictingHold)

	_, err = repo.Payment.FindByChargeRef(ctx, "chrg_mem_2")
	assert.ErrorIs(t, err, ErrPaymentNotFound, "losing payment must not be persisted")
}

func TestMemoryFindByChargeRef(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	reservation, payment := seatAndPayment("chrg_mem_find", time.Now())
	require.NoError(t, repo.Reservation.Create(ctx, reservation))
	require.NoError(t, repo.Transition.CreateWithHold(ctx, payment, reservation))

	found, err := repo.Payment.FindByChargeRef(ctx, "chrg_mem_find")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, found.ID)

	_, err = repo.Payment.FindByChargeRef(ctx, "chrg_mem_nope")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestMemoryFindExpiredPending(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	staleSeat, stale := seatAndPayment("chrg_mem_stale", now.Add(-30*time.Minute))
	require.NoError(t, repo.Reservation.Create(ctx, staleSeat))
	require.NoError(t, repo.Transition.CreateWithHold(ctx, stale, staleSeat))

	freshSeat, fresh := seatAndPayment("chrg_mem_fresh", now.Add(-time.Minute))
	require.NoError(t, repo.Reservation.Create(ctx, freshSeat))
	require.NoError(t, repo.Transition.CreateWithHold(ctx, fresh, freshSeat))

	expired, err := repo.Payment.FindExpiredPending(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
}

func TestMemoryApply_ReturnedCopiesDoNotAlias(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	reservation, payment := seatAndPayment("chrg_mem_alias", time.Now())
	require.NoError(t, repo.Reservation.Create(ctx, reservation))
	require.NoError(t, repo.Transition.CreateWithHold(ctx, payment, reservation))

	found, err := repo.Payment.FindByID(ctx, payment.ID)
	require.NoError(t, err)

	// Mutating a returned copy must not change the stored record.
	found.Status = entity.PaymentStatusPaid

	stored, err := repo.Payment.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, stored.Status)
}
