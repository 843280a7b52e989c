package adaptor

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payment-service/internal/data/entity"
	"payment-service/internal/data/repository"
	"payment-service/internal/gateway"
	"payment-service/internal/usecase"
	"payment-service/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const webhookTestSecret = "whsec_test"

func newWebhookFixture(t *testing.T) (*WebhookHandler, *repository.Repository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	sim := gateway.NewSimulator(zap.NewNop())
	rec := usecase.NewReconciler(repo, sim, 15*time.Minute, zap.NewNop())
	return NewWebhookHandler(rec, webhookTestSecret, zap.NewNop()), repo
}

func seedPendingPayment(t *testing.T, repo *repository.Repository, chargeRef string) (*entity.Payment, *entity.Reservation) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	reservation := &entity.Reservation{
		Base:   entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Label:  "F1",
		Status: entity.ReservationStatusAvailable,
	}
	require.NoError(t, repo.Reservation.Create(ctx, reservation))

	reservation.Status = entity.ReservationStatusHeld
	payment := &entity.Payment{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ChargeRef:     chargeRef,
		Amount:        25000,
		Currency:      "THB",
		Method:        entity.PaymentMethodPromptPay,
		Status:        entity.PaymentStatusPending,
		ReservationID: &reservation.ID,
	}
	require.NoError(t, repo.Transition.CreateWithHold(ctx, payment, reservation))
	return payment, reservation
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postEvent(t *testing.T, h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/omise", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Omise-Signature", signature)
	}
	w := httptest.NewRecorder()
	h.HandleEvent(w, req)
	return w
}

func eventBody(t *testing.T, key, chargeRef string, status gateway.ChargeStatus, paid bool) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"key": key,
		"data": map[string]any{
			"id":     chargeRef,
			"status": status,
			"paid":   paid,
		},
	})
	require.NoError(t, err)
	return body
}

func TestHandleEvent_ChargeCompletePaid(t *testing.T) {
	h, repo := newWebhookFixture(t)
	payment, reservation := seedPendingPayment(t, repo, "chrg_wh_paid")

	body := eventBody(t, "charge.complete", payment.ChargeRef, gateway.ChargeStatusSuccessful, true)
	w := postEvent(t, h, body, sign(body, webhookTestSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.Payment.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, stored.Status)

	seat, err := repo.Reservation.FindByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusOccupied, seat.Status)
}

func TestHandleEvent_ChargeCompleteFailed(t *testing.T) {
	h, repo := newWebhookFixture(t)
	payment, reservation := seedPendingPayment(t, repo, "chrg_wh_failed")

	body := eventBody(t, "charge.complete", payment.ChargeRef, gateway.ChargeStatusFailed, false)
	w := postEvent(t, h, body, sign(body, webhookTestSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.Payment.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, stored.Status)

	seat, err := repo.Reservation.FindByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusAvailable, seat.Status)
}

func TestHandleEvent_InvalidSignature(t *testing.T) {
	h, repo := newWebhookFixture(t)
	payment, _ := seedPendingPayment(t, repo, "chrg_wh_badsig")

	body := eventBody(t, "charge.complete", payment.ChargeRef, gateway.ChargeStatusSuccessful, true)
	w := postEvent(t, h, body, sign(body, "wrong_secret"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var envelope utils.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	assert.Equal(t, CodeSignatureInvalid, envelope.Code)

	// The event was dropped before reaching the reconciler.
	stored, err := repo.Payment.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, stored.Status)
}

func TestHandleEvent_MissingSignature(t *testing.T) {
	h, repo := newWebhookFixture(t)
	payment, _ := seedPendingPayment(t, repo, "chrg_wh_nosig")

	body := eventBody(t, "charge.complete", payment.ChargeRef, gateway.ChargeStatusSuccessful, true)
	w := postEvent(t, h, body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleEvent_UnknownEventKeyAcked(t *testing.T) {
	h, repo := newWebhookFixture(t)
	payment, _ := seedPendingPayment(t, repo, "chrg_wh_unknown")

	body := eventBody(t, "customer.update", payment.ChargeRef, gateway.ChargeStatusPending, false)
	w := postEvent(t, h, body, sign(body, webhookTestSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.Payment.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, stored.Status)
}

func TestHandleEvent_UnknownChargeAcked(t *testing.T) {
	h, _ := newWebhookFixture(t)

	// Delivery for a charge this service never created: acked so the
	// gateway stops retrying, recorded by the reconciler's audit path.
	body := eventBody(t, "charge.complete", "chrg_elsewhere", gateway.ChargeStatusSuccessful, true)
	w := postEvent(t, h, body, sign(body, webhookTestSecret))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleEvent_RefundAfterPaid(t *testing.T) {
	h, repo := newWebhookFixture(t)
	payment, reservation := seedPendingPayment(t, repo, "chrg_wh_refund")

	body := eventBody(t, "charge.complete", payment.ChargeRef, gateway.ChargeStatusSuccessful, true)
	w := postEvent(t, h, body, sign(body, webhookTestSecret))
	require.Equal(t, http.StatusOK, w.Code)

	body = eventBody(t, "charge.refund", payment.ChargeRef, gateway.ChargeStatusReversed, false)
	w = postEvent(t, h, body, sign(body, webhookTestSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.Payment.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusRefunded, stored.Status)

	seat, err := repo.Reservation.FindByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusOccupied, seat.Status)
}

func TestHandleEvent_DuplicateDeliveryAcked(t *testing.T) {
	h, repo := newWebhookFixture(t)
	payment, _ := seedPendingPayment(t, repo, "chrg_wh_dup")

	body := eventBody(t, "charge.complete", payment.ChargeRef, gateway.ChargeStatusSuccessful, true)
	for i := 0; i < 3; i++ {
		w := postEvent(t, h, body, sign(body, webhookTestSecret))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	stored, err := repo.Payment.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, stored.Status)
}
