package repository

import (
	"payment-service/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Payment     PaymentRepository
	Reservation ReservationRepository
	Audit       AuditRepository
	Transition  TransitionRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Payment:     NewPaymentRepository(db, log),
		Reservation: NewReservationRepository(db, log),
		Audit:       NewAuditRepository(db, log),
		Transition:  NewTransitionRepository(db, log),
	}
}

// NewMemoryRepository wires every repository to one shared in-memory store.
// Used by the local/dev profile (DB_DRIVER=memory) and by tests.
func NewMemoryRepository() *Repository {
	store := NewMemoryStore()
	return &Repository{
		Payment:     store.Payments(),
		Reservation: store.Reservations(),
		Audit:       store.Audits(),
		Transition:  store.Transitions(),
	}
}
