package appointment

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidStatus       = errors.New("invalid appointment status")
	ErrInvalidAction       = errors.New("invalid admission action")

	// ErrStatusConflict means a conditional status write found a different
	// stored status than expected: another transition won the race.
	ErrStatusConflict = errors.New("appointment status changed concurrently")
)
