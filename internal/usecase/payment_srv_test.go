package usecase

import (
	"context"
	"testing"
	"time"

	"payment-service/internal/data/entity"
	"payment-service/internal/data/repository"
	"payment-service/internal/dto/request"
	"payment-service/internal/gateway"
	"payment-service/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{FrontendURL: "http://localhost:3000"},
		Payments: utils.PaymentsConfig{
			HoldTTL:       testHoldTTL,
			SweepInterval: time.Minute,
		},
	}
}

func newTestPaymentService(t *testing.T, gw gateway.Client) (PaymentService, *repository.Repository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	rec := NewReconciler(repo, gw, testHoldTTL, zap.NewNop())
	return NewPaymentService(repo, gw, rec, testConfig(), zap.NewNop()), repo
}

func seedReservation(t *testing.T, repo *repository.Repository, label string) *entity.Reservation {
	t.Helper()
	now := time.Now()
	reservation := &entity.Reservation{
		Base:   entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Label:  label,
		Status: entity.ReservationStatusAvailable,
	}
	require.NoError(t, repo.Reservation.Create(context.Background(), reservation))
	return reservation
}

// unavailableGateway fails every call the way a network outage would.
type unavailableGateway struct{}

func (unavailableGateway) CreateToken(ctx context.Context, card gateway.Card) (*gateway.Token, error) {
	return nil, gateway.ErrUnavailable
}
func (unavailableGateway) CreateSource(ctx context.Context, req gateway.SourceRequest) (*gateway.Source, error) {
	return nil, gateway.ErrUnavailable
}
func (unavailableGateway) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	return nil, gateway.ErrUnavailable
}
func (unavailableGateway) RetrieveCharge(ctx context.Context, chargeID string) (*gateway.Charge, error) {
	return nil, gateway.ErrUnavailable
}
func (unavailableGateway) CancelCharge(ctx context.Context, chargeID string) (*gateway.Charge, error) {
	return nil, gateway.ErrUnavailable
}

func TestCreatePayment_PromptPayHoldsReservation(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, repo := newTestPaymentService(t, sim)
	ctx := context.Background()
	reservation := seedReservation(t, repo, "B4")

	resp, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        25000,
		PaymentMethod: "promptpay",
		ReservationID: reservation.ID.String(),
		CustomerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, resp.Status)
	assert.NotEmpty(t, resp.QRCodeURL)

	seat, err := repo.Reservation.FindByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusHeld, seat.Status)
	require.NotNil(t, seat.HeldUntil)
	require.NotNil(t, seat.HeldBy)
	assert.Equal(t, "buyer@example.com", *seat.HeldBy)
	assert.WithinDuration(t, time.Now().Add(testHoldTTL), *seat.HeldUntil, 5*time.Second)

	paymentID, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	stored, err := repo.Payment.FindByID(ctx, paymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, stored.Status)
	assert.Equal(t, int64(25000), stored.Amount)
	require.NotNil(t, stored.ReservationID)
	assert.Equal(t, reservation.ID, *stored.ReservationID)
}

func TestCreatePayment_SecondHoldOnSameSeatConflicts(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, repo := newTestPaymentService(t, sim)
	ctx := context.Background()
	reservation := seedReservation(t, repo, "C7")

	_, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
		ReservationID: reservation.ID.String(),
	})
	require.NoError(t, err)

	_, err = svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
		ReservationID: reservation.ID.String(),
	})
	require.ErrorIs(t, err, repository.ErrConflictingHold)
}

// lostHoldTransitionRepo simulates losing the hold race between the
// availability pre-check and the transactional commit.
type lostHoldTransitionRepo struct {
	repository.TransitionRepository
}

func (lostHoldTransitionRepo) CreateWithHold(ctx context.Context, payment *entity.Payment, reservation *entity.Reservation) error {
	return repository.ErrConflictingHold
}

// chargeRecordingGateway remembers the last charge it created.
type chargeRecordingGateway struct {
	*gateway.Simulator
	lastChargeID string
}

func (g *chargeRecordingGateway) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	charge, err := g.Simulator.CreateCharge(ctx, req)
	if err == nil {
		g.lastChargeID = charge.ID
	}
	return charge, err
}

func TestCreatePayment_LostHoldRaceReversesCharge(t *testing.T) {
	gw := &chargeRecordingGateway{Simulator: gateway.NewSimulator(zap.NewNop())}
	repo := repository.NewMemoryRepository()
	repo.Transition = lostHoldTransitionRepo{repo.Transition}
	rec := NewReconciler(repo, gw, testHoldTTL, zap.NewNop())
	svc := NewPaymentService(repo, gw, rec, testConfig(), zap.NewNop())
	ctx := context.Background()
	reservation := seedReservation(t, repo, "F6")

	_, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
		ReservationID: reservation.ID.String(),
	})
	require.ErrorIs(t, err, repository.ErrConflictingHold)

	// The charge created before the lost race must not stay pending at
	// the gateway.
	require.NotEmpty(t, gw.lastChargeID)
	charge, err := gw.RetrieveCharge(ctx, gw.lastChargeID)
	require.NoError(t, err)
	assert.Equal(t, gateway.ChargeStatusReversed, charge.Status)
}

func TestCreatePayment_GatewayFailureLeavesSeatAvailable(t *testing.T) {
	svc, repo := newTestPaymentService(t, unavailableGateway{})
	ctx := context.Background()
	reservation := seedReservation(t, repo, "D2")

	_, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
		ReservationID: reservation.ID.String(),
	})
	require.ErrorIs(t, err, gateway.ErrUnavailable)

	seat, err := repo.Reservation.FindByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusAvailable, seat.Status)

	payments, err := repo.Payment.FindAll(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestCreatePayment_CardThenPaidOccupiesSeat(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	repo := repository.NewMemoryRepository()
	rec := NewReconciler(repo, sim, testHoldTTL, zap.NewNop())
	svc := NewPaymentService(repo, sim, rec, testConfig(), zap.NewNop())
	ctx := context.Background()
	reservation := seedReservation(t, repo, "G5")

	resp, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:          100000,
		PaymentMethod:   "card",
		ReservationID:   reservation.ID.String(),
		CardNumber:      "4242424242424242",
		CardName:        "Somchai Prasert",
		ExpirationMonth: 12,
		ExpirationYear:  2030,
		SecurityCode:    "123",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, resp.Status)

	seat, err := repo.Reservation.FindByID(ctx, reservation.ID)
	require.NoError(t, err)
	require.Equal(t, entity.ReservationStatusHeld, seat.Status)

	stored, err := repo.Payment.FindByID(ctx, uuid.MustParse(resp.ID))
	require.NoError(t, err)

	result, err := rec.SubmitSignal(ctx, SettlementSignal{
		ChargeRef: stored.ChargeRef,
		Kind:      entity.SignalGatewayPaid,
	})
	require.NoError(t, err)
	require.True(t, result.Applied())

	seat, err = repo.Reservation.FindByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusOccupied, seat.Status)
}

func TestCreatePayment_CardRequiresDetails(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, _ := newTestPaymentService(t, sim)

	_, err := svc.CreatePayment(context.Background(), &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "card",
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "card details")
}

func TestGetPayment_MalformedID(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, _ := newTestPaymentService(t, sim)

	_, err := svc.GetPayment(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreatePayment_UnknownReservation(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, _ := newTestPaymentService(t, sim)

	_, err := svc.CreatePayment(context.Background(), &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
		ReservationID: uuid.NewString(),
	})
	require.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestGetPaymentStatus_PiggybacksGatewayPoll(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, repo := newTestPaymentService(t, sim)
	ctx := context.Background()

	resp, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
	})
	require.NoError(t, err)

	paymentID := uuid.MustParse(resp.ID)
	stored, err := repo.Payment.FindByID(ctx, paymentID)
	require.NoError(t, err)
	require.NoError(t, sim.MarkPaid(stored.ChargeRef))

	status, err := svc.GetPaymentStatus(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, status.Status)

	// The poll result was reconciled, not just reported.
	stored, err = repo.Payment.FindByID(ctx, paymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, stored.Status)
}

func TestGetPaymentStatus_GatewayDownFallsBackToLocal(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, repo := newTestPaymentService(t, sim)
	ctx := context.Background()

	resp, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
	})
	require.NoError(t, err)

	// Same store, dead gateway: the status endpoint must still answer.
	rec := NewReconciler(repo, unavailableGateway{}, testHoldTTL, zap.NewNop())
	offline := NewPaymentService(repo, unavailableGateway{}, rec, testConfig(), zap.NewNop())

	status, err := offline.GetPaymentStatus(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, status.Status)
}

func TestCancelPayment_PendingOnly(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, repo := newTestPaymentService(t, sim)
	ctx := context.Background()
	reservation := seedReservation(t, repo, "E9")

	resp, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
		ReservationID: reservation.ID.String(),
	})
	require.NoError(t, err)

	cancelled, err := svc.CancelPayment(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCancelled, cancelled.Status)

	seat, err := repo.Reservation.FindByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusAvailable, seat.Status)

	_, err = svc.CancelPayment(ctx, resp.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestForceReconcile_TerminalPaymentUntouched(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, repo := newTestPaymentService(t, sim)
	ctx := context.Background()

	resp, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
	})
	require.NoError(t, err)

	_, err = svc.CancelPayment(ctx, resp.ID)
	require.NoError(t, err)

	// Terminal payments short-circuit; even a dead gateway is fine.
	rec := NewReconciler(repo, unavailableGateway{}, testHoldTTL, zap.NewNop())
	offline := NewPaymentService(repo, unavailableGateway{}, rec, testConfig(), zap.NewNop())

	status, err := offline.ForceReconcile(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCancelled, status.Status)
}

func TestForceReconcile_AppliesGatewayOutcome(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, repo := newTestPaymentService(t, sim)
	ctx := context.Background()

	resp, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
		Amount:        10000,
		PaymentMethod: "promptpay",
	})
	require.NoError(t, err)

	stored, err := repo.Payment.FindByID(ctx, uuid.MustParse(resp.ID))
	require.NoError(t, err)
	require.NoError(t, sim.MarkFailed(stored.ChargeRef, "insufficient_fund", "Insufficient funds"))

	status, err := svc.ForceReconcile(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, status.Status)
}

func TestGetPayments_NewestFirst(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, _ := newTestPaymentService(t, sim)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreatePayment(ctx, &request.CreatePaymentRequest{
			Amount:        int64(1000 * (i + 1)),
			PaymentMethod: "promptpay",
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	payments, err := svc.GetPayments(ctx, &request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.True(t, payments[0].CreatedAt.After(payments[1].CreatedAt))
}

func TestGetPaymentMethods_Catalog(t *testing.T) {
	sim := gateway.NewSimulator(zap.NewNop())
	svc, _ := newTestPaymentService(t, sim)

	methods, err := svc.GetPaymentMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 10)
	assert.Equal(t, "card", methods[0].ID)
	for _, m := range methods {
		assert.True(t, m.Enabled)
	}
}
