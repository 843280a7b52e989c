package request

type CreatePaymentRequest struct {
	Amount        int64  `json:"amount" validate:"required,min=1"`
	Currency      string `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card promptpay truemoney wechat_pay bank_transfer internet_banking_scb internet_banking_bay internet_banking_bbl internet_banking_kbank internet_banking_ktb"`
	ReservationID string `json:"reservation_id" validate:"omitempty,uuid4"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	Description   string `json:"description" validate:"omitempty,max=255"`

	// Card details, required only when payment_method is card. The card is
	// tokenized at the gateway and never persisted.
	CardNumber      string `json:"card_number,omitempty" validate:"omitempty,min=12,max=19"`
	CardName        string `json:"card_name,omitempty" validate:"omitempty,max=100"`
	ExpirationMonth int    `json:"expiration_month,omitempty" validate:"omitempty,min=1,max=12"`
	ExpirationYear  int    `json:"expiration_year,omitempty" validate:"omitempty,min=2000"`
	SecurityCode    string `json:"security_code,omitempty" validate:"omitempty,len=3"`
}
