package response

import (
	"time"

	"payment-service/internal/data/entity"
)

type CreatePaymentResponse struct {
	ID           string               `json:"id"`
	Status       entity.PaymentStatus `json:"status"`
	QRCodeURL    string               `json:"qr_code_url,omitempty"`
	AuthorizeURI string               `json:"authorize_uri,omitempty"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
}

type PaymentResponse struct {
	ID            string               `json:"id"`
	ChargeRef     string               `json:"charge_ref"`
	Amount        int64                `json:"amount"`
	Currency      string               `json:"currency"`
	PaymentMethod entity.PaymentMethod `json:"payment_method"`
	Status        entity.PaymentStatus `json:"status"`
	CustomerEmail *string              `json:"customer_email,omitempty"`
	Description   string               `json:"description,omitempty"`
	ReservationID *string              `json:"reservation_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type PaymentStatusResponse struct {
	ID        string               `json:"id"`
	Status    entity.PaymentStatus `json:"status"`
	ChargeRef string               `json:"charge_ref"`
}

type PaymentMethodResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Description      string `json:"description"`
	Enabled          bool   `json:"enabled"`
	SupportsQRCode   bool   `json:"supports_qr_code,omitempty"`
	RequiresRedirect bool   `json:"requires_redirect,omitempty"`
	MinAmount        int64  `json:"min_amount"`
	MaxAmount        int64  `json:"max_amount"`
}

type SweepResponse struct {
	Discovered int `json:"discovered"`
	Cancelled  int `json:"cancelled"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
}

// Helper converter
func PaymentToResponse(p *entity.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID.String(),
		ChargeRef:     p.ChargeRef,
		Amount:        p.Amount,
		Currency:      p.Currency,
		PaymentMethod: p.Method,
		Status:        p.Status,
		CustomerEmail: p.CustomerEmail,
		Description:   p.Description,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.ReservationID != nil {
		id := p.ReservationID.String()
		resp.ReservationID = &id
	}
	return resp
}
