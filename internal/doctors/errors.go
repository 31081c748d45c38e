package doctors

import "errors"

var (
	// ErrNotFound is returned when no doctor matches the lookup key.
	ErrNotFound = errors.New("doctor not found")

	// ErrDuplicatePhone is returned when a doctor already owns the phone number.
	ErrDuplicatePhone = errors.New("doctor with this phone number already exists")

	// ErrInvalidName is returned when the onboarding name is empty.
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidPhone is returned when the onboarding phone number is empty.
	ErrInvalidPhone = errors.New("phone number is required")

	// ErrInvalidSubscriptionStatus is returned when an update carries a
	// status outside the known enum.
	ErrInvalidSubscriptionStatus = errors.New("subscription status must be trial, active or inactive")
)
