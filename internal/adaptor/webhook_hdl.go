package adaptor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"payment-service/internal/data/entity"
	"payment-service/internal/gateway"
	"payment-service/internal/usecase"
	"payment-service/pkg/utils"

	"go.uber.org/zap"
)

// ErrSignatureInvalid is the one webhook failure the gateway should retry
// after fixing its configuration; everything else is acked.
var ErrSignatureInvalid = errors.New("invalid webhook signature")

const CodeSignatureInvalid = "signature_invalid"

// webhookEvent is the gateway's event envelope. Only the fields the
// reconciler needs are decoded; the rest of the payload is ignored.
type webhookEvent struct {
	Key  string `json:"key"`
	Data struct {
		ID             string               `json:"id"`
		Status         gateway.ChargeStatus `json:"status"`
		Paid           bool                 `json:"paid"`
		FailureCode    string               `json:"failure_code"`
		FailureMessage string               `json:"failure_message"`
	} `json:"data"`
}

type WebhookHandler struct {
	reconciler usecase.Reconciler
	secret     string
	log        *zap.Logger
}

func NewWebhookHandler(reconciler usecase.Reconciler, secret string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		secret:     secret,
		log:        log.With(zap.String("handler", "webhook")),
	}
}

// HandleEvent handles POST /webhooks/omise.
//
// A bad signature is the only non-2xx outcome. Everything after the
// event is accepted — unknown event keys, unknown charges, rejected
// transitions — is acked with 200 so the gateway stops retrying;
// the reconciler records what actually happened.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.ResponseBadRequest(w, "Failed to read request body", nil)
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Omise-Signature")) {
		h.log.Warn("Webhook rejected - invalid signature")
		utils.ResponseError(w, http.StatusUnauthorized, CodeSignatureInvalid, ErrSignatureInvalid.Error())
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.log.Warn("Webhook payload is not valid JSON", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid webhook payload", nil)
		return
	}

	signal, ok := h.mapEvent(&event)
	if !ok {
		h.log.Debug("Ignoring webhook event",
			zap.String("event_key", event.Key),
			zap.String("charge_ref", event.Data.ID),
		)
		utils.ResponseSuccess(w, "ignored", nil)
		return
	}

	result, err := h.reconciler.SubmitSignal(r.Context(), signal)
	if err != nil {
		// Already audited by the reconciler. Retrying the delivery would
		// not change the outcome, so the event is still acked.
		h.log.Error("Webhook reconcile failed",
			zap.Error(err),
			zap.String("event_key", event.Key),
			zap.String("charge_ref", event.Data.ID),
		)
		utils.ResponseSuccess(w, "accepted", nil)
		return
	}

	h.log.Info("Webhook processed",
		zap.String("event_key", event.Key),
		zap.String("charge_ref", event.Data.ID),
		zap.String("outcome", string(result.Outcome)),
		zap.String("status", string(result.Status)),
	)
	utils.ResponseSuccess(w, "success", nil)
}

// verifySignature checks the HMAC-SHA256 hex digest of the raw body. With
// no secret configured verification is skipped, which is only acceptable
// for local development and is logged as such.
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.secret == "" {
		h.log.Warn("Webhook signature verification skipped - no secret configured")
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// mapEvent translates a gateway event into a settlement signal. Returns
// ok=false for events that carry no settlement meaning.
func (h *WebhookHandler) mapEvent(event *webhookEvent) (usecase.SettlementSignal, bool) {
	signal := usecase.SettlementSignal{
		ChargeRef: event.Data.ID,
		Reason:    "webhook " + event.Key,
	}
	if signal.ChargeRef == "" {
		return signal, false
	}

	switch event.Key {
	case "charge.complete", "charge.update":
		// Completion does not mean success: the paid flag and charge
		// status decide which way the payment settles.
		switch {
		case event.Data.Paid && event.Data.Status == gateway.ChargeStatusSuccessful:
			signal.Kind = entity.SignalGatewayPaid
		case event.Data.Status == gateway.ChargeStatusFailed:
			signal.Kind = entity.SignalGatewayFailed
			if event.Data.FailureCode != "" {
				signal.Reason = event.Data.FailureCode + ": " + event.Data.FailureMessage
			}
		case event.Data.Status == gateway.ChargeStatusExpired:
			signal.Kind = entity.SignalGatewayCancelled
			signal.Reason = "charge expired at gateway"
		default:
			return signal, false
		}
		return signal, true

	case "charge.failed":
		signal.Kind = entity.SignalGatewayFailed
		if event.Data.FailureCode != "" {
			signal.Reason = event.Data.FailureCode + ": " + event.Data.FailureMessage
		}
		return signal, true

	case "charge.reverse", "charge.cancel":
		signal.Kind = entity.SignalGatewayCancelled
		return signal, true

	case "charge.refund", "refund.create":
		signal.Kind = entity.SignalGatewayRefunded
		return signal, true

	default:
		return signal, false
	}
}
