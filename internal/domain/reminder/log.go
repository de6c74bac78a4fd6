package reminder

import (
	"time"

	"github.com/google/uuid"
)

// LogStatus is the outcome recorded for one calendar occurrence of a reminder.
type LogStatus string

const (
	StatusTaken   LogStatus = "taken"
	StatusMissed  LogStatus = "missed"
	StatusSnoozed LogStatus = "snoozed"
	StatusSkipped LogStatus = "skipped"
	// StatusPending is the implicit state of an occurrence with no log row.
	// It is never persisted; the resolver synthesizes it.
	StatusPending LogStatus = "pending"
)

func (s LogStatus) IsValid() bool {
	switch s {
	case StatusTaken, StatusMissed, StatusSnoozed, StatusSkipped:
		return true
	}
	return false
}

// CountsTowardTotals reports whether the status contributes to the reminder's
// rolling total/completed/missed counters.
func (s LogStatus) CountsTowardTotals() bool {
	return s == StatusTaken || s == StatusMissed
}

// ReminderLog is the authoritative record of a single dose event. At most one
// row exists per (reminder_id, scheduled_date); a later write for the same
// occurrence supersedes the row in place, it never appends a duplicate.
type ReminderLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	ReminderID   uuid.UUID `gorm:"column:reminder_id;type:uuid;not null;index:idx_reminder_logs_occurrence,unique"`
	MedicationID uuid.UUID `gorm:"column:medication_id;type:uuid;not null;index"`
	PatientID    uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	ScheduledDate time.Time  `gorm:"column:scheduled_date;type:date;not null;index:idx_reminder_logs_occurrence,unique"`
	ScheduledTime string     `gorm:"column:scheduled_time;type:varchar(5)"`
	ActualTime    *time.Time `gorm:"column:actual_time"`
	Status        LogStatus  `gorm:"column:status;type:varchar(20);not null;index"`

	Notes            string     `gorm:"column:notes;type:text"`
	DoseTaken        *float64   `gorm:"column:dose_taken"`
	SkippedReason    string     `gorm:"column:skipped_reason;type:text"`
	SnoozedUntil     *time.Time `gorm:"column:snoozed_until"`
	LoggedFromDevice string     `gorm:"column:logged_from_device;type:varchar(100)"`
}

func (ReminderLog) TableName() string {
	return "clinical.medication_reminder_logs"
}
