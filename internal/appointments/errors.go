package appointments

import "errors"

var (
	// ErrNotFound is returned when no appointment matches the id.
	ErrNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned when the (doctor, scheduled_at) slot already
	// holds a non-cancelled appointment.
	ErrSlotTaken = errors.New("slot already booked")
)
