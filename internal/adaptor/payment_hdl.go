package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"payment-service/internal/data/repository"
	"payment-service/internal/dto/request"
	"payment-service/internal/gateway"
	"payment-service/internal/usecase"
	"payment-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.service.CreatePayment(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "create payment")
		return
	}

	utils.ResponseCreated(w, "success", payment)
}

// GetPayments handles GET /api/v1/payments
func (h *PaymentHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	payments, err := h.service.GetPayments(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "get payments")
		return
	}

	utils.ResponseSuccess(w, "success", payments)
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		utils.ResponseBadRequest(w, "Payment ID is required", nil)
		return
	}

	payment, err := h.service.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.handleServiceError(w, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// GetPaymentStatus handles GET /api/v1/payments/{id}/status
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		utils.ResponseBadRequest(w, "Payment ID is required", nil)
		return
	}

	status, err := h.service.GetPaymentStatus(r.Context(), paymentID)
	if err != nil {
		h.handleServiceError(w, err, "get payment status")
		return
	}

	utils.ResponseSuccess(w, "success", status)
}

// CancelPayment handles POST /api/v1/payments/{id}/cancel
func (h *PaymentHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		utils.ResponseBadRequest(w, "Payment ID is required", nil)
		return
	}

	payment, err := h.service.CancelPayment(r.Context(), paymentID)
	if err != nil {
		h.handleServiceError(w, err, "cancel payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// ForceUpdatePayment handles POST /api/v1/payments/{id}/force-update
func (h *PaymentHandler) ForceUpdatePayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		utils.ResponseBadRequest(w, "Payment ID is required", nil)
		return
	}

	status, err := h.service.ForceReconcile(r.Context(), paymentID)
	if err != nil {
		h.handleServiceError(w, err, "force update payment")
		return
	}

	utils.ResponseSuccess(w, "success", status)
}

// GetPaymentMethods handles GET /api/v1/payments/methods
func (h *PaymentHandler) GetPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.GetPaymentMethods(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "get payment methods")
		return
	}

	utils.ResponseSuccess(w, "success", methods)
}

// Stable cause codes carried in the response envelope. Clients branch on
// these; the message text is free to change.
const (
	CodeNotFound           = "not_found"
	CodeConflictingHold    = "conflicting_hold"
	CodeInvalidTransition  = "invalid_transition"
	CodeGatewayUnavailable = "gateway_unavailable"
	CodeGatewayRejected    = "gateway_rejected"
	CodeValidationFailed   = "validation_failed"
	CodeInternal           = "internal"
)

// handleServiceError maps service errors onto HTTP responses. Matching is
// on sentinel errors, not message text, so a reworded message cannot
// silently change a status or cause code.
func (h *PaymentHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrReservationNotFound):
		h.log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseError(w, http.StatusNotFound, CodeNotFound, err.Error())

	case errors.Is(err, repository.ErrConflictingHold):
		h.log.Warn(operation+" failed - reservation taken", zap.Error(err))
		utils.ResponseError(w, http.StatusConflict, CodeConflictingHold, "Reservation is no longer available")

	case errors.Is(err, usecase.ErrInvalidTransition):
		h.log.Warn(operation+" failed - invalid state", zap.Error(err))
		utils.ResponseError(w, http.StatusConflict, CodeInvalidTransition, err.Error())

	case errors.Is(err, usecase.ErrValidation):
		h.log.Warn(operation+" failed - bad input", zap.Error(err))
		utils.ResponseError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())

	case errors.Is(err, gateway.ErrUnavailable):
		h.log.Error(operation+" failed - gateway unavailable", zap.Error(err))
		utils.ResponseError(w, http.StatusBadGateway, CodeGatewayUnavailable, "Payment gateway is unavailable, try again later")

	case errors.Is(err, gateway.ErrChargeNotFound):
		h.log.Warn(operation+" failed - charge unknown at gateway", zap.Error(err))
		utils.ResponseError(w, http.StatusNotFound, CodeNotFound, err.Error())

	case errors.Is(err, gateway.ErrRejected):
		h.log.Warn(operation+" failed - gateway declined", zap.Error(err))
		utils.ResponseError(w, http.StatusUnprocessableEntity, CodeGatewayRejected, err.Error())

	default:
		h.log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}
