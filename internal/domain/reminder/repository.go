package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dastern/medtrack/internal/domain/medication"
)

type Repository interface {
	// CreateBatch persists the reminder set for one medication atomically:
	// either every reminder row lands or none does.
	CreateBatch(ctx context.Context, reminders []*Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	List(ctx context.Context, q *ListRemindersQuery) ([]*Reminder, error)
	// ExistingSlots returns the slots already materialized for a medication,
	// the factory's idempotency check.
	ExistingSlots(ctx context.Context, medicationID uuid.UUID) (map[medication.TimeSlot]bool, error)
	// ActiveInWindow returns active reminders for the patient whose
	// [start_date, end_date] window contains date, joined with medication
	// name and strength. Weekday filtering happens in the service, where the
	// days_of_week JSON is already decoded.
	ActiveInWindow(ctx context.Context, patientID uuid.UUID, date time.Time) ([]*ReminderWithMedication, error)
	Deactivate(ctx context.Context, id, patientID uuid.UUID) error
	DeactivateByPrescription(ctx context.Context, prescriptionID, patientID uuid.UUID) (int64, error)

	// GetLog fetches the log row for one occurrence key, ErrLogNotFound-free:
	// a missing row returns (nil, nil).
	GetLog(ctx context.Context, reminderID uuid.UUID, date time.Time) (*ReminderLog, error)
	ListLogsForDate(ctx context.Context, patientID uuid.UUID, date time.Time) ([]*ReminderLog, error)
	ListLogsSince(ctx context.Context, patientID uuid.UUID, since time.Time) ([]*ReminderLog, error)
	// SaveLogWithCounters upserts the log row for its (reminder_id,
	// scheduled_date) key and writes the reminder's recomputed counters in
	// the same transaction, so the cache can never drift from the history.
	SaveLogWithCounters(ctx context.Context, log *ReminderLog, rem *Reminder) error
}
