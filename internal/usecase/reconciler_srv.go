package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payment-service/internal/data/entity"
	"payment-service/internal/data/repository"
	"payment-service/internal/gateway"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidTransition marks an expected rejection: the signal arrived for a
// payment whose state cannot legally move. Callers that need a hard error
// (user-facing cancel of a settled payment) branch on it; the reconciler
// itself reports it as outcome rejected, not as a failure.
var ErrInvalidTransition = errors.New("invalid status transition")

// SettlementSignal is a normalized report of a payment's fate from one of
// the three racing channels: webhook, expiration sweep, reconcile poll.
// Payments are addressed by charge ref because that is the identifier every
// channel shares.
type SettlementSignal struct {
	ChargeRef     string
	Kind          entity.SignalKind
	GatewayStatus gateway.ChargeStatus // set for reconcile_poll signals
	GatewayPaid   bool                 // set for reconcile_poll signals
	Reason        string               // free-form context recorded in the audit trail
}

type ReconcileResult struct {
	Outcome  entity.AuditOutcome
	Previous entity.PaymentStatus
	Status   entity.PaymentStatus
	Payment  *entity.Payment
}

func (r *ReconcileResult) Applied() bool {
	return r.Outcome == entity.AuditOutcomeApplied
}

type Reconciler interface {
	SubmitSignal(ctx context.Context, signal SettlementSignal) (*ReconcileResult, error)
}

type reconcilerService struct {
	repo    *repository.Repository
	gateway gateway.Client
	holdTTL time.Duration
	locks   *keyedMutex
	log     *zap.Logger
}

func NewReconciler(repo *repository.Repository, gw gateway.Client, holdTTL time.Duration, log *zap.Logger) Reconciler {
	return &reconcilerService{
		repo:    repo,
		gateway: gw,
		holdTTL: holdTTL,
		locks:   newKeyedMutex(),
		log:     log.With(zap.String("service", "reconciler")),
	}
}

type reservationEffect int

const (
	effectNone reservationEffect = iota
	effectOccupy
	effectRelease
)

// SubmitSignal applies one settlement signal under the per-charge critical
// section. Everything between the lock and the commit — read, decide,
// persist both records — is serialized per charge ref, which is what makes
// duplicate, delayed and out-of-order deliveries safe.
func (s *reconcilerService) SubmitSignal(ctx context.Context, signal SettlementSignal) (*ReconcileResult, error) {
	if signal.ChargeRef == "" {
		return nil, fmt.Errorf("settlement signal missing charge ref")
	}

	unlock := s.locks.Lock(signal.ChargeRef)
	defer unlock()

	payment, err := s.repo.Payment.FindByChargeRef(ctx, signal.ChargeRef)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			s.audit(ctx, &entity.AuditEntry{
				PaymentID: uuid.Nil,
				ChargeRef: signal.ChargeRef,
				Signal:    signal.Kind,
				Outcome:   entity.AuditOutcomeRejected,
				Context:   map[string]any{"reason": "payment not found"},
			})
		}
		return nil, err
	}

	previous := payment.Status
	next, effect, reason, ok := s.decide(payment, signal)
	if !ok {
		s.log.Info("Settlement signal rejected",
			zap.String("charge_ref", signal.ChargeRef),
			zap.String("signal", string(signal.Kind)),
			zap.String("status", string(previous)),
			zap.String("reason", reason),
		)
		s.audit(ctx, &entity.AuditEntry{
			PaymentID:      payment.ID,
			ChargeRef:      payment.ChargeRef,
			Signal:         signal.Kind,
			PreviousStatus: previous,
			ResultStatus:   previous,
			Outcome:        entity.AuditOutcomeRejected,
			Context:        map[string]any{"reason": reason},
		})
		return &ReconcileResult{
			Outcome:  entity.AuditOutcomeRejected,
			Previous: previous,
			Status:   previous,
			Payment:  payment,
		}, nil
	}

	now := time.Now()
	payment.Status = next
	payment.UpdatedAt = now

	var reservation *entity.Reservation
	if payment.ReservationID != nil && effect != effectNone {
		reservation, err = s.repo.Reservation.FindByID(ctx, *payment.ReservationID)
		if err != nil {
			s.auditError(ctx, payment, signal, previous, err)
			return nil, fmt.Errorf("load reservation for payment %s: %w", payment.ID.String(), err)
		}

		switch effect {
		case effectOccupy:
			reservation.Status = entity.ReservationStatusOccupied
		case effectRelease:
			reservation.Status = entity.ReservationStatusAvailable
		}
		reservation.ClearHold()
		reservation.UpdatedAt = now
	}

	if err := s.repo.Transition.Apply(ctx, payment, reservation); err != nil {
		s.auditError(ctx, payment, signal, previous, err)
		return nil, fmt.Errorf("apply transition %s -> %s: %w", previous, next, err)
	}

	auditCtx := map[string]any{}
	if signal.Reason != "" {
		auditCtx["reason"] = signal.Reason
	}
	if reservation != nil {
		auditCtx["reservation_id"] = reservation.ID.String()
		auditCtx["reservation_status"] = string(reservation.Status)
	}
	s.audit(ctx, &entity.AuditEntry{
		PaymentID:      payment.ID,
		ChargeRef:      payment.ChargeRef,
		Signal:         signal.Kind,
		PreviousStatus: previous,
		ResultStatus:   next,
		Outcome:        entity.AuditOutcomeApplied,
		Context:        auditCtx,
	})

	s.log.Info("Settlement signal applied",
		zap.String("payment_id", payment.ID.String()),
		zap.String("charge_ref", payment.ChargeRef),
		zap.String("signal", string(signal.Kind)),
		zap.String("previous", string(previous)),
		zap.String("status", string(next)),
	)

	// The remote cancel is a courtesy call. It runs after the local commit
	// and its failure is only logged: a seat must never stay locked because
	// the gateway was down.
	if signal.Kind == entity.SignalExpiredByTimeout || signal.Kind == entity.SignalUserCancel {
		s.cancelAtGateway(ctx, payment)
	}

	return &ReconcileResult{
		Outcome:  entity.AuditOutcomeApplied,
		Previous: previous,
		Status:   next,
		Payment:  payment,
	}, nil
}

// decide evaluates the transition table. Returns ok=false for rejections,
// with the reason that goes into the audit trail.
func (s *reconcilerService) decide(payment *entity.Payment, signal SettlementSignal) (entity.PaymentStatus, reservationEffect, string, bool) {
	if payment.Status == entity.PaymentStatusPaid && signal.Kind == entity.SignalGatewayRefunded {
		// Refund keeps the seat occupied; releasing a refunded seat is an
		// operator decision, not an automatic one.
		return entity.PaymentStatusRefunded, effectNone, "", true
	}

	if payment.Status != entity.PaymentStatusPending {
		return payment.Status, effectNone, fmt.Sprintf("payment already %s", payment.Status), false
	}

	switch signal.Kind {
	case entity.SignalGatewayPaid:
		return entity.PaymentStatusPaid, effectOccupy, "", true
	case entity.SignalGatewayFailed:
		return entity.PaymentStatusFailed, effectRelease, "", true
	case entity.SignalGatewayCancelled:
		return entity.PaymentStatusCancelled, effectRelease, "", true
	case entity.SignalUserCancel:
		return entity.PaymentStatusCancelled, effectRelease, "", true
	case entity.SignalExpiredByTimeout:
		// Staleness is recomputed here, under the lock, not at sweep
		// discovery time: a webhook may have raced in between.
		if time.Since(payment.CreatedAt) < s.holdTTL {
			return payment.Status, effectNone, "payment not yet expired", false
		}
		return entity.PaymentStatusCancelled, effectRelease, "", true
	case entity.SignalReconcilePoll:
		switch {
		case signal.GatewayStatus == gateway.ChargeStatusSuccessful && signal.GatewayPaid:
			return entity.PaymentStatusPaid, effectOccupy, "", true
		case signal.GatewayStatus == gateway.ChargeStatusFailed:
			return entity.PaymentStatusFailed, effectRelease, "", true
		default:
			return payment.Status, effectNone, fmt.Sprintf("gateway still reports %s", signal.GatewayStatus), false
		}
	case entity.SignalGatewayRefunded:
		return payment.Status, effectNone, "refund signal for unpaid payment", false
	default:
		return payment.Status, effectNone, fmt.Sprintf("unknown signal kind %s", signal.Kind), false
	}
}

func (s *reconcilerService) cancelAtGateway(ctx context.Context, payment *entity.Payment) {
	if _, err := s.gateway.CancelCharge(ctx, payment.ChargeRef); err != nil {
		s.log.Warn("Best-effort gateway cancel failed",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("charge_ref", payment.ChargeRef),
		)
	}
}

// audit appends an entry. The trail must never block a transition: a failed
// append goes to the operational log and the transition stands.
func (s *reconcilerService) audit(ctx context.Context, e *entity.AuditEntry) {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	if err := s.repo.Audit.Append(ctx, e); err != nil {
		s.log.Error("Failed to append audit entry",
			zap.Error(err),
			zap.String("charge_ref", e.ChargeRef),
			zap.String("signal", string(e.Signal)),
			zap.String("outcome", string(e.Outcome)),
		)
	}
}

func (s *reconcilerService) auditError(ctx context.Context, payment *entity.Payment, signal SettlementSignal, previous entity.PaymentStatus, cause error) {
	s.audit(ctx, &entity.AuditEntry{
		PaymentID:      payment.ID,
		ChargeRef:      payment.ChargeRef,
		Signal:         signal.Kind,
		PreviousStatus: previous,
		ResultStatus:   previous,
		Outcome:        entity.AuditOutcomeError,
		Context:        map[string]any{"error": cause.Error()},
	})
}
