package reminder

import "errors"

var (
	ErrReminderNotFound  = errors.New("reminder not found")
	ErrReminderInactive  = errors.New("reminder is not active")
	ErrInvalidLogStatus  = errors.New("invalid log status")
	ErrEmptySchedule     = errors.New("dosage schedule has no active slots")
	ErrInvalidWindowDays = errors.New("window days must be positive")
)
