package repository

import "errors"

// Sentinel errors returned by the store. Handlers branch on these with
// errors.Is instead of matching message text.
var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrConflictingHold means the reservation was not available at hold
	// time; the caller should pick another seat.
	ErrConflictingHold = errors.New("reservation already held")
)
