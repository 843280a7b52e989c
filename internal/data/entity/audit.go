package entity

import (
	"github.com/google/uuid"
)

type SignalKind string

const (
	SignalGatewayPaid      SignalKind = "gateway_reported_paid"
	SignalGatewayFailed    SignalKind = "gateway_reported_failed"
	SignalGatewayCancelled SignalKind = "gateway_reported_cancelled"
	SignalGatewayRefunded  SignalKind = "gateway_reported_refunded"
	SignalExpiredByTimeout SignalKind = "expired_by_timeout"
	SignalUserCancel       SignalKind = "user_requested_cancel"
	SignalReconcilePoll    SignalKind = "reconcile_poll"
)

type AuditOutcome string

const (
	AuditOutcomeApplied  AuditOutcome = "applied"
	AuditOutcomeRejected AuditOutcome = "rejected"
	AuditOutcomeError    AuditOutcome = "error"
)

// AuditEntry records one settlement-signal application attempt. Entries are
// append-only; they are never updated or deleted.
type AuditEntry struct {
	BaseSimple
	PaymentID      uuid.UUID      `db:"payment_id"`
	ChargeRef      string         `db:"charge_ref"`
	Signal         SignalKind     `db:"signal"`
	PreviousStatus PaymentStatus  `db:"previous_status"`
	ResultStatus   PaymentStatus  `db:"result_status"`
	Outcome        AuditOutcome   `db:"outcome"`
	Context        map[string]any `db:"context"`
}
