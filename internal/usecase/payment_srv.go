package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-service/internal/data/entity"
	"payment-service/internal/data/repository"
	"payment-service/internal/dto/request"
	"payment-service/internal/dto/response"
	"payment-service/internal/gateway"
	"payment-service/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrValidation marks caller-correctable input problems: malformed IDs,
// failed DTO validation, incomplete card details. Handlers branch on it
// with errors.Is, never on message text.
var ErrValidation = errors.New("validation failed")

type PaymentService interface {
	CreatePayment(ctx context.Context, req *request.CreatePaymentRequest) (*response.CreatePaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*response.PaymentResponse, error)
	GetPayments(ctx context.Context, req *request.PaginatedRequest) ([]response.PaymentResponse, error)
	GetPaymentStatus(ctx context.Context, id string) (*response.PaymentStatusResponse, error)
	CancelPayment(ctx context.Context, id string) (*response.PaymentResponse, error)
	ForceReconcile(ctx context.Context, id string) (*response.PaymentStatusResponse, error)
	GetPaymentMethods(ctx context.Context) ([]response.PaymentMethodResponse, error)
}

type paymentService struct {
	repo       *repository.Repository
	gateway    gateway.Client
	reconciler Reconciler
	holdTTL    time.Duration
	returnURI  string
	log        *zap.Logger
}

func NewPaymentService(repo *repository.Repository, gw gateway.Client, reconciler Reconciler, config *utils.Config, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:       repo,
		gateway:    gw,
		reconciler: reconciler,
		holdTTL:    config.Payments.HoldTTL,
		returnURI:  config.App.FrontendURL,
		log:        log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, req *request.CreatePaymentRequest) (*response.CreatePaymentResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create payment validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	method := entity.PaymentMethod(req.PaymentMethod)
	currency := req.Currency
	if currency == "" {
		currency = "THB"
	}
	description := req.Description
	if description == "" {
		description = "Payment for reservation"
	}

	// Resolve the reservation before touching the gateway so an obviously
	// taken seat fails fast. The authoritative check is the conditional
	// hold inside CreateWithHold.
	var reservation *entity.Reservation
	if req.ReservationID != "" {
		reservationID, err := uuid.Parse(req.ReservationID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed reservation ID %q", ErrValidation, req.ReservationID)
		}

		reservation, err = s.repo.Reservation.FindByID(ctx, reservationID)
		if err != nil {
			return nil, err
		}
		if reservation.Status != entity.ReservationStatusAvailable {
			return nil, repository.ErrConflictingHold
		}
	}

	charge, err := s.createCharge(ctx, req, method, currency, description)
	if err != nil {
		// No hold has been taken yet; a gateway failure aborts the whole
		// creation and the seat stays available.
		s.log.Error("Failed to create gateway charge",
			zap.Error(err),
			zap.String("payment_method", string(method)),
			zap.Int64("amount", req.Amount),
		)
		return nil, err
	}

	now := time.Now()
	payment := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ChargeRef:   charge.ID,
		Amount:      req.Amount,
		Currency:    currency,
		Method:      method,
		Status:      entity.PaymentStatusPending,
		Description: description,
		Metadata:    chargeMetadata(charge),
	}
	if req.CustomerEmail != "" {
		email := req.CustomerEmail
		payment.CustomerEmail = &email
	}

	if reservation != nil {
		payment.ReservationID = &reservation.ID

		holder := req.CustomerEmail
		if holder == "" {
			holder = payment.ID.String()
		}
		heldUntil := now.Add(s.holdTTL)
		reservation.Status = entity.ReservationStatusHeld
		reservation.HeldUntil = &heldUntil
		reservation.HeldBy = &holder
		reservation.UpdatedAt = now
	}

	if err := s.repo.Transition.CreateWithHold(ctx, payment, reservation); err != nil {
		// The charge exists at the gateway but no local record will: reverse
		// it so the customer is not left with an orphaned pending charge.
		// Best-effort, same as the expiry path.
		s.reverseCharge(ctx, charge.ID)

		if errors.Is(err, repository.ErrConflictingHold) {
			return nil, err
		}
		s.log.Error("Failed to persist payment",
			zap.Error(err),
			zap.String("charge_ref", charge.ID),
		)
		return nil, fmt.Errorf("persist payment %s: %w", charge.ID, err)
	}

	s.log.Info("Payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("charge_ref", charge.ID),
		zap.String("payment_method", string(method)),
		zap.Int64("amount", req.Amount),
	)

	resp := &response.CreatePaymentResponse{
		ID:           payment.ID.String(),
		Status:       payment.Status,
		AuthorizeURI: charge.AuthorizeURI,
		ExpiresAt:    charge.ExpiresAt,
	}
	if charge.Source != nil {
		resp.QRCodeURL = charge.Source.QRCodeURL
	}
	return resp, nil
}

func (s *paymentService) reverseCharge(ctx context.Context, chargeID string) {
	if _, err := s.gateway.CancelCharge(ctx, chargeID); err != nil {
		s.log.Warn("Best-effort charge reverse failed",
			zap.Error(err),
			zap.String("charge_ref", chargeID),
		)
	}
}

// createCharge runs the gateway leg of payment creation: tokenize the card
// or create a source, then charge.
func (s *paymentService) createCharge(ctx context.Context, req *request.CreatePaymentRequest, method entity.PaymentMethod, currency, description string) (*gateway.Charge, error) {
	chargeReq := gateway.ChargeRequest{
		Amount:      req.Amount,
		Currency:    currency,
		Description: description,
		Metadata:    map[string]any{},
	}
	if req.ReservationID != "" {
		chargeReq.Metadata["reservation_id"] = req.ReservationID
	}
	if req.CustomerEmail != "" {
		chargeReq.Metadata["customer_email"] = req.CustomerEmail
	}

	if method == entity.PaymentMethodCard {
		if req.CardNumber == "" || req.CardName == "" || req.ExpirationMonth == 0 || req.ExpirationYear == 0 || req.SecurityCode == "" {
			return nil, fmt.Errorf("%w: card details are incomplete for tokenization", ErrValidation)
		}

		token, err := s.gateway.CreateToken(ctx, gateway.Card{
			Number:          req.CardNumber,
			Name:            req.CardName,
			ExpirationMonth: req.ExpirationMonth,
			ExpirationYear:  req.ExpirationYear,
			SecurityCode:    req.SecurityCode,
		})
		if err != nil {
			return nil, fmt.Errorf("tokenize card: %w", err)
		}
		chargeReq.CardToken = token.ID
	} else {
		source, err := s.gateway.CreateSource(ctx, gateway.SourceRequest{
			Type:     sourceType(method),
			Amount:   req.Amount,
			Currency: currency,
		})
		if err != nil {
			return nil, fmt.Errorf("create source: %w", err)
		}
		chargeReq.SourceID = source.ID
		chargeReq.ReturnURI = s.returnURI
	}

	return s.gateway.CreateCharge(ctx, chargeReq)
}

// sourceType maps a payment method to the gateway's source type identifier.
func sourceType(method entity.PaymentMethod) string {
	switch method {
	case entity.PaymentMethodPromptPay:
		return "promptpay"
	case entity.PaymentMethodTrueMoney:
		return "truemoney"
	case entity.PaymentMethodWeChatPay:
		return "wechat"
	case entity.PaymentMethodInternetBankingSCB:
		return "internet_banking_scb"
	case entity.PaymentMethodInternetBankingBAY:
		return "internet_banking_bay"
	case entity.PaymentMethodInternetBankingBBL:
		return "internet_banking_bbl"
	case entity.PaymentMethodInternetBankingKBank:
		return "internet_banking_kbank"
	case entity.PaymentMethodInternetBankingKTB:
		return "internet_banking_ktb"
	case entity.PaymentMethodBankTransfer:
		return "bill_payment_tesco_lotus"
	default:
		return string(method)
	}
}

// chargeMetadata keeps the presentation payloads (QR image URL, redirect
// URI) opaque: stored as-is, returned as-is, never interpreted.
func chargeMetadata(charge *gateway.Charge) map[string]any {
	metadata := map[string]any{
		"gateway_charge_id": charge.ID,
	}
	if charge.Source != nil {
		metadata["gateway_source_id"] = charge.Source.ID
		if charge.Source.QRCodeURL != "" {
			metadata["qr_code_url"] = charge.Source.QRCodeURL
		}
	}
	if charge.AuthorizeURI != "" {
		metadata["authorize_uri"] = charge.AuthorizeURI
	}
	if charge.ExpiresAt != nil {
		metadata["expires_at"] = charge.ExpiresAt.Format(time.RFC3339)
	}
	return metadata
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*response.PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed payment ID %q", ErrValidation, id)
	}

	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	resp := response.PaymentToResponse(payment)
	return &resp, nil
}

func (s *paymentService) GetPayments(ctx context.Context, req *request.PaginatedRequest) ([]response.PaymentResponse, error) {
	payments, err := s.repo.Payment.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}

	responses := make([]response.PaymentResponse, len(payments))
	for i, p := range payments {
		responses[i] = response.PaymentToResponse(p)
	}
	return responses, nil
}

// GetPaymentStatus returns the local status; while the payment is still
// pending it also polls the gateway and feeds the answer through the
// reconciler. A gateway failure falls back to the local status.
func (s *paymentService) GetPaymentStatus(ctx context.Context, id string) (*response.PaymentStatusResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed payment ID %q", ErrValidation, id)
	}

	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	status := payment.Status
	if status == entity.PaymentStatusPending {
		result, pollErr := s.poll(ctx, payment)
		if pollErr != nil {
			s.log.Warn("Status poll failed, returning local status",
				zap.Error(pollErr),
				zap.String("payment_id", payment.ID.String()),
			)
		} else {
			status = result.Status
		}
	}

	return &response.PaymentStatusResponse{
		ID:        payment.ID.String(),
		Status:    status,
		ChargeRef: payment.ChargeRef,
	}, nil
}

func (s *paymentService) CancelPayment(ctx context.Context, id string) (*response.PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed payment ID %q", ErrValidation, id)
	}

	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	result, err := s.reconciler.SubmitSignal(ctx, SettlementSignal{
		ChargeRef: payment.ChargeRef,
		Kind:      entity.SignalUserCancel,
		Reason:    "cancel requested by user",
	})
	if err != nil {
		return nil, fmt.Errorf("cancel payment %s: %w", id, err)
	}
	if !result.Applied() {
		return nil, fmt.Errorf("%w: only pending payments can be cancelled (current status %s)", ErrInvalidTransition, result.Status)
	}

	s.log.Info("Payment cancelled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("charge_ref", payment.ChargeRef),
	)

	resp := response.PaymentToResponse(result.Payment)
	return &resp, nil
}

// ForceReconcile fetches the charge from the gateway and reconciles the
// local record against it. Already-settled payments are left alone.
func (s *paymentService) ForceReconcile(ctx context.Context, id string) (*response.PaymentStatusResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed payment ID %q", ErrValidation, id)
	}

	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status.IsTerminal() {
		return &response.PaymentStatusResponse{
			ID:        payment.ID.String(),
			Status:    payment.Status,
			ChargeRef: payment.ChargeRef,
		}, nil
	}

	result, err := s.poll(ctx, payment)
	if err != nil {
		return nil, err
	}

	return &response.PaymentStatusResponse{
		ID:        payment.ID.String(),
		Status:    result.Status,
		ChargeRef: payment.ChargeRef,
	}, nil
}

func (s *paymentService) poll(ctx context.Context, payment *entity.Payment) (*ReconcileResult, error) {
	charge, err := s.gateway.RetrieveCharge(ctx, payment.ChargeRef)
	if err != nil {
		return nil, fmt.Errorf("retrieve charge %s: %w", payment.ChargeRef, err)
	}

	return s.reconciler.SubmitSignal(ctx, SettlementSignal{
		ChargeRef:     payment.ChargeRef,
		Kind:          entity.SignalReconcilePoll,
		GatewayStatus: charge.Status,
		GatewayPaid:   charge.Paid,
	})
}

func (s *paymentService) GetPaymentMethods(ctx context.Context) ([]response.PaymentMethodResponse, error) {
	methods := []response.PaymentMethodResponse{
		{
			ID:          "card",
			Name:        "Credit/Debit Card",
			Type:        "card",
			Description: "Visa, Mastercard, American Express, JCB, UnionPay",
			Enabled:     true,
			MinAmount:   100,
			MaxAmount:   1000000,
		},
		{
			ID:             "promptpay",
			Name:           "PromptPay",
			Type:           "qr_code",
			Description:    "Scan QR Code with your banking app",
			Enabled:        true,
			SupportsQRCode: true,
			MinAmount:      100,
			MaxAmount:      1000000,
		},
		{
			ID:               "truemoney",
			Name:             "TrueMoney Wallet",
			Type:             "wallet",
			Description:      "Pay with TrueMoney Wallet",
			Enabled:          true,
			RequiresRedirect: true,
			MinAmount:        100,
			MaxAmount:        1000000,
		},
		{
			ID:             "wechat_pay",
			Name:           "WeChat Pay",
			Type:           "wallet",
			Description:    "Pay with WeChat Pay",
			Enabled:        true,
			SupportsQRCode: true,
			MinAmount:      100,
			MaxAmount:      1000000,
		},
		{
			ID:               "internet_banking_scb",
			Name:             "SCB Banking",
			Type:             "banking",
			Description:      "Siam Commercial Bank",
			Enabled:          true,
			RequiresRedirect: true,
			MinAmount:        100,
			MaxAmount:        1000000,
		},
		{
			ID:               "internet_banking_bay",
			Name:             "BAY Banking",
			Type:             "banking",
			Description:      "Bank of Ayudhya",
			Enabled:          true,
			RequiresRedirect: true,
			MinAmount:        100,
			MaxAmount:        1000000,
		},
		{
			ID:               "internet_banking_bbl",
			Name:             "BBL Banking",
			Type:             "banking",
			Description:      "Bangkok Bank",
			Enabled:          true,
			RequiresRedirect: true,
			MinAmount:        100,
			MaxAmount:        1000000,
		},
		{
			ID:               "internet_banking_kbank",
			Name:             "KBank Banking",
			Type:             "banking",
			Description:      "Kasikorn Bank",
			Enabled:          true,
			RequiresRedirect: true,
			MinAmount:        100,
			MaxAmount:        1000000,
		},
		{
			ID:               "internet_banking_ktb",
			Name:             "KTB Banking",
			Type:             "banking",
			Description:      "Krung Thai Bank",
			Enabled:          true,
			RequiresRedirect: true,
			MinAmount:        100,
			MaxAmount:        1000000,
		},
		{
			ID:          "bank_transfer",
			Name:        "Bank Transfer",
			Type:        "banking",
			Description: "Manual bank transfer",
			Enabled:     true,
			MinAmount:   100,
			MaxAmount:   1000000,
		},
	}

	return methods, nil
}
