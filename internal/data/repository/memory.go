package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"payment-service/internal/data/entity"

	"github.com/google/uuid"
)

// MemoryStore keeps payments, reservations and audit entries in process
// memory. The per-interface views returned by Payments/Reservations/Audits/
// Transitions all share one mutex, so CreateWithHold and Apply are atomic
// the same way the pgx implementations are. Used by the local/dev profile
// (DB_DRIVER=memory) and by tests.
type MemoryStore struct {
	mu           sync.Mutex
	payments     map[uuid.UUID]*entity.Payment
	byChargeRef  map[string]uuid.UUID
	reservations map[uuid.UUID]*entity.Reservation
	audits       []*entity.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:     make(map[uuid.UUID]*entity.Payment),
		byChargeRef:  make(map[string]uuid.UUID),
		reservations: make(map[uuid.UUID]*entity.Reservation),
	}
}

func (m *MemoryStore) Payments() PaymentRepository         { return &memoryPaymentRepo{m} }
func (m *MemoryStore) Reservations() ReservationRepository { return &memoryReservationRepo{m} }
func (m *MemoryStore) Audits() AuditRepository             { return &memoryAuditRepo{m} }
func (m *MemoryStore) Transitions() TransitionRepository   { return &memoryTransitionRepo{m} }

func clonePayment(p *entity.Payment) *entity.Payment {
	cp := *p
	if p.Metadata != nil {
		cp.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func cloneReservation(r *entity.Reservation) *entity.Reservation {
	cr := *r
	if r.HeldUntil != nil {
		t := *r.HeldUntil
		cr.HeldUntil = &t
	}
	if r.HeldBy != nil {
		s := *r.HeldBy
		cr.HeldBy = &s
	}
	return &cr
}

// ---------- PaymentRepository ----------

type memoryPaymentRepo struct{ store *MemoryStore }

func (r *memoryPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	payment, ok := r.store.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return clonePayment(payment), nil
}

func (r *memoryPaymentRepo) FindByChargeRef(ctx context.Context, chargeRef string) (*entity.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	id, ok := r.store.byChargeRef[chargeRef]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return clonePayment(r.store.payments[id]), nil
}

func (r *memoryPaymentRepo) FindAll(ctx context.Context, limit, offset int) ([]*entity.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	all := make([]*entity.Payment, 0, len(r.store.payments))
	for _, p := range r.store.payments {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	out := make([]*entity.Payment, len(all))
	for i, p := range all {
		out[i] = clonePayment(p)
	}
	return out, nil
}

func (r *memoryPaymentRepo) FindExpiredPending(ctx context.Context, cutoff time.Time) ([]*entity.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var expired []*entity.Payment
	for _, p := range r.store.payments {
		if p.Status == entity.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			expired = append(expired, clonePayment(p))
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].CreatedAt.Before(expired[j].CreatedAt) })
	return expired, nil
}

// ---------- ReservationRepository ----------

type memoryReservationRepo struct{ store *MemoryStore }

func (r *memoryReservationRepo) Create(ctx context.Context, reservation *entity.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.reservations[reservation.ID] = cloneReservation(reservation)
	return nil
}

func (r *memoryReservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	reservation, ok := r.store.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	return cloneReservation(reservation), nil
}

func (r *memoryReservationRepo) FindAll(ctx context.Context) ([]*entity.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := make([]*entity.Reservation, 0, len(r.store.reservations))
	for _, res := range r.store.reservations {
		out = append(out, cloneReservation(res))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// ---------- AuditRepository ----------

type memoryAuditRepo struct{ store *MemoryStore }

func (r *memoryAuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cp := *e
	r.store.audits = append(r.store.audits, &cp)
	return nil
}

func (r *memoryAuditRepo) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*entity.AuditEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var entries []*entity.AuditEntry
	for _, e := range r.store.audits {
		if e.PaymentID == paymentID {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	return entries, nil
}

// ---------- TransitionRepository ----------

type memoryTransitionRepo struct{ store *MemoryStore }

func (r *memoryTransitionRepo) CreateWithHold(ctx context.Context, payment *entity.Payment, reservation *entity.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if reservation != nil {
		current, ok := r.store.reservations[reservation.ID]
		if !ok {
			return ErrReservationNotFound
		}
		if current.Status != entity.ReservationStatusAvailable {
			return ErrConflictingHold
		}
		held := cloneReservation(reservation)
		held.Status = entity.ReservationStatusHeld
		r.store.reservations[reservation.ID] = held
	}

	r.store.payments[payment.ID] = clonePayment(payment)
	r.store.byChargeRef[payment.ChargeRef] = payment.ID
	return nil
}

func (r *memoryTransitionRepo) Apply(ctx context.Context, payment *entity.Payment, reservation *entity.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.payments[payment.ID]; !ok {
		return ErrPaymentNotFound
	}
	if reservation != nil {
		if _, ok := r.store.reservations[reservation.ID]; !ok {
			return ErrReservationNotFound
		}
	}

	r.store.payments[payment.ID] = clonePayment(payment)
	if reservation != nil {
		r.store.reservations[reservation.ID] = cloneReservation(reservation)
	}
	return nil
}
