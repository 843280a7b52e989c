package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Simulator is the local/dev processor. It replaces the inline mock branches
// the service must never carry in business logic: the implementation is
// picked once at startup (GATEWAY_MODE=simulated) and injected like the real
// one. Charges settle only when MarkPaid/MarkFailed is called, which keeps
// the pending->settled race observable in development.
type Simulator struct {
	mu      sync.Mutex
	charges map[string]*Charge
	seq     int
	log     *zap.Logger
}

func NewSimulator(log *zap.Logger) *Simulator {
	return &Simulator{
		charges: make(map[string]*Charge),
		log:     log.With(zap.String("gateway", "simulator")),
	}
}

func (s *Simulator) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_sim_%d_%d", prefix, time.Now().UnixNano(), s.seq)
}

func (s *Simulator) CreateToken(ctx context.Context, card Card) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &Token{ID: s.nextID("tokn")}, nil
}

func (s *Simulator) CreateSource(ctx context.Context, req SourceRequest) (*Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &Source{
		ID:        s.nextID("src"),
		Type:      req.Type,
		QRCodeURL: "https://simulator.local/qr/" + req.Type,
	}, nil
}

func (s *Simulator) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	charge := &Charge{
		ID:       s.nextID("chrg"),
		Status:   ChargeStatusPending,
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	if req.SourceID != "" {
		charge.AuthorizeURI = "https://simulator.local/authorize/" + charge.ID
		charge.Source = &Source{
			ID:        req.SourceID,
			QRCodeURL: "https://simulator.local/qr/" + req.SourceID,
		}
	}

	s.charges[charge.ID] = charge
	s.log.Info("Simulated charge created", zap.String("charge_id", charge.ID))

	cp := *charge
	return &cp, nil
}

func (s *Simulator) RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	charge, ok := s.charges[chargeID]
	if !ok {
		return nil, ErrChargeNotFound
	}
	cp := *charge
	return &cp, nil
}

func (s *Simulator) CancelCharge(ctx context.Context, chargeID string) (*Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	charge, ok := s.charges[chargeID]
	if !ok {
		return nil, ErrChargeNotFound
	}

	charge.Status = ChargeStatusReversed
	charge.Paid = false

	s.log.Info("Simulated charge cancelled", zap.String("charge_id", chargeID))
	cp := *charge
	return &cp, nil
}

// MarkPaid settles a simulated charge as successful.
func (s *Simulator) MarkPaid(chargeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	charge, ok := s.charges[chargeID]
	if !ok {
		return ErrChargeNotFound
	}

	now := time.Now()
	charge.Status = ChargeStatusSuccessful
	charge.Paid = true
	charge.PaidAt = &now
	return nil
}

// MarkFailed settles a simulated charge as failed.
func (s *Simulator) MarkFailed(chargeID, code, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	charge, ok := s.charges[chargeID]
	if !ok {
		return ErrChargeNotFound
	}

	charge.Status = ChargeStatusFailed
	charge.Paid = false
	charge.FailureCode = code
	charge.FailureMessage = message
	return nil
}
