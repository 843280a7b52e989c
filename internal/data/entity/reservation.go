package entity

import "time"

type ReservationStatus string

const (
	ReservationStatusAvailable ReservationStatus = "available"
	ReservationStatusHeld      ReservationStatus = "held"
	ReservationStatusOccupied  ReservationStatus = "occupied"
)

// Reservation is the seat being sold. HeldUntil and HeldBy are set only
// while the status is held; a paid payment moves the seat to occupied and
// a failed, cancelled or expired payment returns it to available.
type Reservation struct {
	Base
	Label     string            `db:"label"` // A1, A2, B1, etc.
	Status    ReservationStatus `db:"status"`
	HeldUntil *time.Time        `db:"held_until"`
	HeldBy    *string           `db:"held_by"`
}

// ClearHold resets the hold fields without touching the status.
func (r *Reservation) ClearHold() {
	r.HeldUntil = nil
	r.HeldBy = nil
}
