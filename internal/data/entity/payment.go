package entity

import (
	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// IsTerminal reports whether no further settlement signal may move the
// payment, except paid -> refunded.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

type PaymentMethod string

const (
	PaymentMethodCard                 PaymentMethod = "card"
	PaymentMethodPromptPay            PaymentMethod = "promptpay"
	PaymentMethodTrueMoney            PaymentMethod = "truemoney"
	PaymentMethodWeChatPay            PaymentMethod = "wechat_pay"
	PaymentMethodBankTransfer         PaymentMethod = "bank_transfer"
	PaymentMethodInternetBankingSCB   PaymentMethod = "internet_banking_scb"
	PaymentMethodInternetBankingBAY   PaymentMethod = "internet_banking_bay"
	PaymentMethodInternetBankingBBL   PaymentMethod = "internet_banking_bbl"
	PaymentMethodInternetBankingKBank PaymentMethod = "internet_banking_kbank"
	PaymentMethodInternetBankingKTB   PaymentMethod = "internet_banking_ktb"
)

// Payment is the authoritative local record of one gateway charge.
// ChargeRef is the gateway-side identifier; reconciliation keys on it, not
// on ID. Amount is in minor units (satang for THB).
type Payment struct {
	Base
	ChargeRef     string         `db:"charge_ref"`
	Amount        int64          `db:"amount"`
	Currency      string         `db:"currency"`
	Method        PaymentMethod  `db:"payment_method"`
	Status        PaymentStatus  `db:"status"`
	CustomerEmail *string        `db:"customer_email"`
	Description   string         `db:"description"`
	Metadata      map[string]any `db:"metadata"`
	ReservationID *uuid.UUID     `db:"reservation_id"`
}
