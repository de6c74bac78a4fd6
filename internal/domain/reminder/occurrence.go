package reminder

import (
	"time"

	"github.com/google/uuid"

	"github.com/dastern/medtrack/internal/domain/medication"
)

// Occurrence is the daily-view projection of one reminder on one date: the
// reminder joined with the medication it doses and with the day's log, if any.
type Occurrence struct {
	ReminderID         uuid.UUID           `json:"reminder_id"`
	MedicationID       uuid.UUID           `json:"medication_id"`
	PrescriptionID     uuid.UUID           `json:"prescription_id"`
	MedicationName     string              `json:"medication_name"`
	MedicationStrength string              `json:"medication_strength,omitempty"`
	TimeSlot           medication.TimeSlot `json:"time_slot"`
	ScheduledTime      string              `json:"scheduled_time"`
	DoseAmount         float64             `json:"dose_amount"`
	DoseUnit           string              `json:"dose_unit,omitempty"`
	Status             LogStatus           `json:"status"`
	TakenAt            *time.Time          `json:"taken_at,omitempty"`
	IsOverdue          bool                `json:"is_overdue"`
}

// ReminderWithMedication is the repository row backing an Occurrence: the
// reminder plus the denormalized medication columns the daily view displays.
type ReminderWithMedication struct {
	Reminder
	MedicationName     string
	MedicationStrength string
}

// FailedMedication reports one medication the bulk orchestrator could not
// create reminders for. The overall call still succeeds.
type FailedMedication struct {
	MedicationID uuid.UUID `json:"medication_id"`
	Error        string    `json:"error"`
}

// BulkResult aggregates the outcome of reminder creation for a prescription.
type BulkResult struct {
	PrescriptionID uuid.UUID          `json:"prescription_id"`
	Reminders      []*Reminder        `json:"reminders"`
	Failed         []FailedMedication `json:"failed,omitempty"`
}

// CreateFromScheduleCommand drives the reminder factory for one medication.
type CreateFromScheduleCommand struct {
	MedicationID uuid.UUID
	PatientID    uuid.UUID
	// CustomTimes overrides the scheduled time per slot; preferred_time from
	// the schedule and the configured slot default apply in that order when
	// absent.
	CustomTimes map[medication.TimeSlot]string
	// StartDate overrides the creation-date default, e.g. the prescription
	// effective date. Zero means today.
	StartDate time.Time
	// DaysOfWeek overrides the all-seven default, ISO numbering.
	DaysOfWeek []int
}

// CreateForPrescriptionCommand drives the bulk orchestrator.
type CreateForPrescriptionCommand struct {
	PrescriptionID uuid.UUID
	PatientID      uuid.UUID
	CustomTimes    map[medication.TimeSlot]string
	StartDate      time.Time
}

// LogDoseCommand records one dose event for a reminder occurrence.
type LogDoseCommand struct {
	ReminderID uuid.UUID
	PatientID  uuid.UUID
	Status     LogStatus
	// OccurrenceDate defaults to today.
	OccurrenceDate   time.Time
	ActualTime       *time.Time
	Notes            string
	DoseTaken        *float64
	SkippedReason    string
	LoggedFromDevice string
}

// AdherenceStats is the trailing-window report recomputed from the log
// history, independent of the per-reminder denormalized counters.
type AdherenceStats struct {
	TotalDoses    int     `json:"total_doses"`
	Taken         int     `json:"taken"`
	Missed        int     `json:"missed"`
	Skipped       int     `json:"skipped"`
	AdherenceRate float64 `json:"adherence_rate"`
}

type ListRemindersQuery struct {
	PatientID    uuid.UUID
	MedicationID *uuid.UUID
	ActiveOnly   bool
}
