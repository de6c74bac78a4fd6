package medication

import "errors"

var (
	ErrMedicationNotFound  = errors.New("medication not found")
	ErrMedicationInactive  = errors.New("medication is not active")
	ErrInvalidDose         = errors.New("dose must be greater than zero")
	ErrUnknownTimeSlot     = errors.New("unknown time slot")
	ErrInvalidClockTime    = errors.New("clock time must be HH:MM in 24h format")
	ErrTimesPerDayMismatch = errors.New("times_per_day does not match active slots")
	ErrMissingName         = errors.New("medication name is required")
)
