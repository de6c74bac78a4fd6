package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dastern/medtrack/internal/domain"
	"github.com/dastern/medtrack/internal/domain/medication"
	"github.com/dastern/medtrack/internal/domain/reminder"
	"github.com/dastern/medtrack/pkg/metrics"
)

// The collector registers against the default prometheus registry, so all
// tests in the package share one instance.
var (
	collectorOnce sync.Once
	collector     *metrics.Collector
)

func testCollector() *metrics.Collector {
	collectorOnce.Do(func() {
		collector = metrics.NewCollector("medtrack_test")
	})
	return collector
}

type noopAuditRepo struct{}

func (noopAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error { return nil }

func newTestAuditService(t *testing.T) *AuditService {
	t.Helper()
	svc := NewAuditService(noopAuditRepo{}, zap.NewNop(), testCollector())
	t.Cleanup(svc.Shutdown)
	return svc
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// memMedicationRepo is an in-memory medication.Repository.
type memMedicationRepo struct {
	meds map[uuid.UUID]*medication.Medication
}

func newMemMedicationRepo() *memMedicationRepo {
	return &memMedicationRepo{meds: make(map[uuid.UUID]*medication.Medication)}
}

func (r *memMedicationRepo) CreateBatch(ctx context.Context, meds []*medication.Medication) error {
	for _, m := range meds {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		r.meds[m.ID] = m
	}
	return nil
}

func (r *memMedicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*medication.Medication, error) {
	m, ok := r.meds[id]
	if !ok {
		return nil, medication.ErrMedicationNotFound
	}
	return m, nil
}

func (r *memMedicationRepo) List(ctx context.Context, q *medication.ListMedicationsQuery) ([]*medication.Medication, error) {
	var out []*medication.Medication
	for _, m := range r.meds {
		if q.PrescriptionID != nil && m.PrescriptionID != *q.PrescriptionID {
			continue
		}
		if q.PatientID != nil && m.PatientID != *q.PatientID {
			continue
		}
		if q.ActiveOnly && !m.IsActive {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memMedicationRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	m, ok := r.meds[id]
	if !ok {
		return medication.ErrMedicationNotFound
	}
	m.IsActive = false
	return nil
}

func (r *memMedicationRepo) DeactivateByPrescription(ctx context.Context, prescriptionID uuid.UUID) (int64, error) {
	var n int64
	for _, m := range r.meds {
		if m.PrescriptionID == prescriptionID && m.IsActive {
			m.IsActive = false
			n++
		}
	}
	return n, nil
}

// memReminderRepo is an in-memory reminder.Repository. Log rows are keyed by
// (reminder_id, scheduled_date) the way the unique index keys them in postgres.
type memReminderRepo struct {
	reminders map[uuid.UUID]*reminder.Reminder
	logs      map[string]*reminder.ReminderLog
	medNames  map[uuid.UUID]string
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{
		reminders: make(map[uuid.UUID]*reminder.Reminder),
		logs:      make(map[string]*reminder.ReminderLog),
		medNames:  make(map[uuid.UUID]string),
	}
}

func logKey(reminderID uuid.UUID, date time.Time) string {
	return reminderID.String() + "|" + date.Format("2006-01-02")
}

func (r *memReminderRepo) CreateBatch(ctx context.Context, reminders []*reminder.Reminder) error {
	for _, rem := range reminders {
		if rem.ID == uuid.Nil {
			rem.ID = uuid.New()
		}
		r.reminders[rem.ID] = rem
	}
	return nil
}

func (r *memReminderRepo) GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	rem, ok := r.reminders[id]
	if !ok {
		return nil, reminder.ErrReminderNotFound
	}
	return rem, nil
}

func (r *memReminderRepo) List(ctx context.Context, q *reminder.ListRemindersQuery) ([]*reminder.Reminder, error) {
	var out []*reminder.Reminder
	for _, rem := range r.reminders {
		if rem.PatientID != q.PatientID {
			continue
		}
		if q.MedicationID != nil && rem.MedicationID != *q.MedicationID {
			continue
		}
		if q.ActiveOnly && !rem.IsActive {
			continue
		}
		out = append(out, rem)
	}
	return out, nil
}

func (r *memReminderRepo) ExistingSlots(ctx context.Context, medicationID uuid.UUID) (map[medication.TimeSlot]bool, error) {
	out := make(map[medication.TimeSlot]bool)
	for _, rem := range r.reminders {
		if rem.MedicationID == medicationID {
			out[rem.TimeSlot] = true
		}
	}
	return out, nil
}

func (r *memReminderRepo) ActiveInWindow(ctx context.Context, patientID uuid.UUID, date time.Time) ([]*reminder.ReminderWithMedication, error) {
	var out []*reminder.ReminderWithMedication
	for _, rem := range r.reminders {
		if rem.PatientID != patientID || !rem.IsActive {
			continue
		}
		d := reminder.DateOnly(date)
		if d.Before(reminder.DateOnly(rem.StartDate)) {
			continue
		}
		if rem.EndDate != nil && d.After(reminder.DateOnly(*rem.EndDate)) {
			continue
		}
		out = append(out, &reminder.ReminderWithMedication{
			Reminder:       *rem,
			MedicationName: r.medNames[rem.MedicationID],
		})
	}
	return out, nil
}

func (r *memReminderRepo) Deactivate(ctx context.Context, id, patientID uuid.UUID) error {
	rem, ok := r.reminders[id]
	if !ok || rem.PatientID != patientID {
		return reminder.ErrReminderNotFound
	}
	rem.IsActive = false
	return nil
}

func (r *memReminderRepo) DeactivateByPrescription(ctx context.Context, prescriptionID, patientID uuid.UUID) (int64, error) {
	var n int64
	for _, rem := range r.reminders {
		if rem.PrescriptionID == prescriptionID && rem.PatientID == patientID && rem.IsActive {
			rem.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *memReminderRepo) GetLog(ctx context.Context, reminderID uuid.UUID, date time.Time) (*reminder.ReminderLog, error) {
	return r.logs[logKey(reminderID, reminder.DateOnly(date))], nil
}

func (r *memReminderRepo) ListLogsForDate(ctx context.Context, patientID uuid.UUID, date time.Time) ([]*reminder.ReminderLog, error) {
	var out []*reminder.ReminderLog
	d := reminder.DateOnly(date)
	for _, l := range r.logs {
		if l.PatientID == patientID && reminder.DateOnly(l.ScheduledDate).Equal(d) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memReminderRepo) ListLogsSince(ctx context.Context, patientID uuid.UUID, since time.Time) ([]*reminder.ReminderLog, error) {
	var out []*reminder.ReminderLog
	for _, l := range r.logs {
		if l.PatientID == patientID && !l.ScheduledDate.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memReminderRepo) SaveLogWithCounters(ctx context.Context, log *reminder.ReminderLog, rem *reminder.Reminder) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	r.logs[logKey(log.ReminderID, reminder.DateOnly(log.ScheduledDate))] = log
	r.reminders[rem.ID] = rem
	return nil
}
