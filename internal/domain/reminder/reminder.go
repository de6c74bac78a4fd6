package reminder

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/dastern/medtrack/internal/domain/medication"
)

// Reminder is one recurring dosing instruction derived from exactly one
// (medication, time slot) pair. The rolling counters are a denormalized cache
// over the log history; they are only ever written together with the log row
// they reflect, in the same transaction.
type Reminder struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	MedicationID   uuid.UUID `gorm:"column:medication_id;type:uuid;not null;index:idx_reminders_med_slot,unique,where:deleted_at IS NULL"`
	PrescriptionID uuid.UUID `gorm:"column:prescription_id;type:uuid;not null;index"`
	// Denormalized from the medication for query efficiency; every read path
	// filters by patient.
	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	TimeSlot      medication.TimeSlot `gorm:"column:time_slot;type:varchar(20);not null;index:idx_reminders_med_slot,unique,where:deleted_at IS NULL"`
	ScheduledTime string              `gorm:"column:scheduled_time;type:varchar(5);not null"` // "HH:MM", 24h
	DoseAmount    float64             `gorm:"column:dose_amount;not null"`
	DoseUnit      string              `gorm:"column:dose_unit;type:varchar(30)"`

	StartDate  time.Time  `gorm:"column:start_date;type:date;not null;index"`
	EndDate    *time.Time `gorm:"column:end_date;type:date;index"` // nil = open-ended
	DaysOfWeek datatypes.JSONSlice[int] `gorm:"column:days_of_week;type:jsonb;not null"` // ISO, Monday=1

	IsActive                   bool `gorm:"column:is_active;default:true;index"`
	SnoozeDurationMinutes      int  `gorm:"column:snooze_duration_minutes;default:10"`
	AdvanceNotificationMinutes int  `gorm:"column:advance_notification_minutes;default:15"`

	TotalDoses     int     `gorm:"column:total_doses;default:0"`
	CompletedDoses int     `gorm:"column:completed_doses;default:0"`
	MissedDoses    int     `gorm:"column:missed_doses;default:0"`
	AdherenceRate  float64 `gorm:"column:adherence_rate;default:0"` // 0-100, derived

	LastTakenAt  *time.Time `gorm:"column:last_taken_at"`
	LastMissedAt *time.Time `gorm:"column:last_missed_at"`
}

func (Reminder) TableName() string {
	return "clinical.medication_reminders"
}

// AllWeekdays is the default days_of_week: every day, ISO numbering.
func AllWeekdays() []int {
	return []int{1, 2, 3, 4, 5, 6, 7}
}

// ISOWeekday returns the ISO-8601 day of week for t (Monday=1 .. Sunday=7).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DateOnly truncates t to midnight in its own location. All scheduled_date
// comparisons go through this so wall-clock time never leaks into the date key.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// OccursOn reports whether the reminder is due on the given calendar date:
// the date falls inside [start_date, end_date] and its ISO weekday is enabled.
// Inactivity is checked by callers; a deactivated reminder never occurs.
func (r *Reminder) OccursOn(date time.Time) bool {
	if !r.IsActive {
		return false
	}
	d := DateOnly(date)
	if d.Before(DateOnly(r.StartDate)) {
		return false
	}
	if r.EndDate != nil && d.After(DateOnly(*r.EndDate)) {
		return false
	}
	wd := ISOWeekday(d)
	for _, day := range r.DaysOfWeek {
		if day == wd {
			return true
		}
	}
	return false
}

// ApplyLogTransition reconciles the rolling counters with a log upsert that
// moves an occurrence from prev to next. Only taken and missed contribute to
// the totals; snoozed, skipped, and pending are schedule adjustments. The
// delta form keeps completed+missed <= total under re-logging: correcting a
// missed dose to taken moves one count instead of adding a second occurrence.
func (r *Reminder) ApplyLogTransition(prev, next LogStatus, now time.Time) {
	switch prev {
	case StatusTaken:
		r.CompletedDoses--
		r.TotalDoses--
	case StatusMissed:
		r.MissedDoses--
		r.TotalDoses--
	}

	switch next {
	case StatusTaken:
		r.CompletedDoses++
		r.TotalDoses++
		t := now
		r.LastTakenAt = &t
	case StatusMissed:
		r.MissedDoses++
		r.TotalDoses++
		t := now
		r.LastMissedAt = &t
	}

	r.RecomputeAdherence()
}

// RecomputeAdherence refreshes the derived adherence_rate from the counters.
func (r *Reminder) RecomputeAdherence() {
	if r.TotalDoses <= 0 {
		r.AdherenceRate = 0
		return
	}
	r.AdherenceRate = float64(r.CompletedDoses) / float64(r.TotalDoses) * 100
}
