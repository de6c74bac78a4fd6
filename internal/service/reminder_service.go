package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dastern/medtrack/internal/domain/medication"
	"github.com/dastern/medtrack/internal/domain/reminder"
	"github.com/dastern/medtrack/pkg/metrics"
)

// ReminderDefaults are the scheduling defaults applied to every reminder the
// factory materializes. The slot table is configuration, not a hidden global.
type ReminderDefaults struct {
	SlotTimes                  medication.SlotTimes
	AdvanceNotificationMinutes int
	SnoozeDurationMinutes      int
}

// ReminderService derives recurring reminders from medication dosage
// schedules and resolves the daily occurrence view.
type ReminderService struct {
	repo     reminder.Repository
	medRepo  medication.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	defaults ReminderDefaults
	log      *zap.Logger

	// now is the clock used for start-date defaults and overdue detection.
	// Injected so tests can pin it.
	now func() time.Time
}

func NewReminderService(
	repo reminder.Repository,
	medRepo medication.Repository,
	auditSvc *AuditService,
	m *metrics.Collector,
	defaults ReminderDefaults,
	log *zap.Logger,
) (*ReminderService, error) {
	if err := defaults.SlotTimes.Validate(); err != nil {
		return nil, fmt.Errorf("slot time table: %w", err)
	}
	return &ReminderService{
		repo:     repo,
		medRepo:  medRepo,
		auditSvc: auditSvc,
		metrics:  m,
		defaults: defaults,
		log:      log,
		now:      time.Now,
	}, nil
}

// WithClock replaces the service clock. Test hook.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// CreateFromSchedule expands one medication's dosage schedule into one
// reminder per active slot. Slots that already have a reminder are skipped so
// a retry after partial failure never duplicates them.
func (s *ReminderService) CreateFromSchedule(ctx context.Context, cmd *reminder.CreateFromScheduleCommand, callerID uuid.UUID, callerRole string, ip string) ([]*reminder.Reminder, error) {
	med, err := s.medRepo.GetByID(ctx, cmd.MedicationID)
	if err != nil {
		return nil, fmt.Errorf("loading medication: %w", err)
	}
	if med.PatientID != cmd.PatientID {
		return nil, medication.ErrMedicationNotFound
	}

	created, err := s.expandSchedule(ctx, med, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "create", ResourceType: "reminder",
		ResourceID: med.ID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"reminders_created":%d}`, len(created)),
	})

	return created, nil
}

// CreateForPrescription drives reminder creation across every medication of a
// prescription. A failure on one medication does not stop the rest; failures
// are itemized in the result so the caller can retry just those.
func (s *ReminderService) CreateForPrescription(ctx context.Context, cmd *reminder.CreateForPrescriptionCommand, callerID uuid.UUID, callerRole string, ip string) (*reminder.BulkResult, error) {
	meds, err := s.medRepo.List(ctx, &medication.ListMedicationsQuery{
		PrescriptionID: &cmd.PrescriptionID,
		PatientID:      &cmd.PatientID,
		ActiveOnly:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("loading prescription medications: %w", err)
	}
	if len(meds) == 0 {
		return nil, medication.ErrMedicationNotFound
	}

	result := &reminder.BulkResult{PrescriptionID: cmd.PrescriptionID}
	for _, med := range meds {
		created, err := s.expandSchedule(ctx, med, &reminder.CreateFromScheduleCommand{
			MedicationID: med.ID,
			PatientID:    cmd.PatientID,
			CustomTimes:  cmd.CustomTimes,
			StartDate:    cmd.StartDate,
		})
		if err != nil {
			s.log.Warn("reminder creation failed for medication",
				zap.String("medication_id", med.ID.String()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, reminder.FailedMedication{
				MedicationID: med.ID,
				Error:        err.Error(),
			})
			continue
		}
		result.Reminders = append(result.Reminders, created...)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "create", ResourceType: "prescription_reminders",
		ResourceID: cmd.PrescriptionID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"reminders_created":%d,"medications_failed":%d}`, len(result.Reminders), len(result.Failed)),
	})

	return result, nil
}

// expandSchedule is the factory core: validate, resolve per-slot times, skip
// already-materialized slots, and persist the remainder atomically.
func (s *ReminderService) expandSchedule(ctx context.Context, med *medication.Medication, cmd *reminder.CreateFromScheduleCommand) ([]*reminder.Reminder, error) {
	if !med.IsActive {
		return nil, medication.ErrMedicationInactive
	}
	if err := med.DosageSchedule.Validate(); err != nil {
		return nil, err
	}

	active := med.DosageSchedule.ActiveSlots()
	if len(active) == 0 {
		// A medication with no timing information generates no reminders.
		// Surfaced as a warning, not an error.
		s.log.Warn("medication has no active dosage slots, no reminders created",
			zap.String("medication_id", med.ID.String()),
			zap.String("name", med.Name),
		)
		return nil, nil
	}

	existing, err := s.repo.ExistingSlots(ctx, med.ID)
	if err != nil {
		return nil, fmt.Errorf("checking existing reminders: %w", err)
	}

	startDate := reminder.DateOnly(cmd.StartDate)
	if cmd.StartDate.IsZero() {
		startDate = reminder.DateOnly(s.now())
	}
	var endDate *time.Time
	if med.DurationDays != nil {
		e := startDate.AddDate(0, 0, *med.DurationDays)
		endDate = &e
	}
	daysOfWeek := cmd.DaysOfWeek
	if len(daysOfWeek) == 0 {
		daysOfWeek = reminder.AllWeekdays()
	}

	var toCreate []*reminder.Reminder
	for _, sd := range active {
		if existing[sd.Slot] {
			continue
		}
		scheduledTime := s.defaults.SlotTimes[sd.Slot]
		if sd.Dose.PreferredTime != "" {
			scheduledTime = sd.Dose.PreferredTime
		}
		if t, ok := cmd.CustomTimes[sd.Slot]; ok {
			if !medication.ValidClockTime(t) {
				return nil, fmt.Errorf("%w: custom time %q for slot %s", medication.ErrInvalidClockTime, t, sd.Slot)
			}
			scheduledTime = t
		}

		toCreate = append(toCreate, &reminder.Reminder{
			MedicationID:               med.ID,
			PrescriptionID:             med.PrescriptionID,
			PatientID:                  med.PatientID,
			TimeSlot:                   sd.Slot,
			ScheduledTime:              scheduledTime,
			DoseAmount:                 sd.Dose.Dose,
			DoseUnit:                   med.DoseUnitFor(sd.Dose),
			StartDate:                  startDate,
			EndDate:                    endDate,
			DaysOfWeek:                 daysOfWeek,
			IsActive:                   true,
			SnoozeDurationMinutes:      s.defaults.SnoozeDurationMinutes,
			AdvanceNotificationMinutes: s.defaults.AdvanceNotificationMinutes,
		})
	}
	if len(toCreate) == 0 {
		// every active slot already has a reminder; nothing to do
		return nil, nil
	}

	if err := s.repo.CreateBatch(ctx, toCreate); err != nil {
		return nil, fmt.Errorf("creating reminders: %w", err)
	}
	s.metrics.RemindersCreatedTotal.Add(float64(len(toCreate)))
	return toCreate, nil
}

// DueOccurrences resolves the daily view: every active reminder due on the
// given date, joined with the day's log. Occurrences without a log are
// pending; a pending occurrence is overdue only when the date is today and
// its scheduled time has already passed.
func (s *ReminderService) DueOccurrences(ctx context.Context, patientID uuid.UUID, date time.Time) ([]*reminder.Occurrence, error) {
	if date.IsZero() {
		date = s.now()
	}
	day := reminder.DateOnly(date)

	rows, err := s.repo.ActiveInWindow(ctx, patientID, day)
	if err != nil {
		return nil, fmt.Errorf("loading reminders: %w", err)
	}

	logs, err := s.repo.ListLogsForDate(ctx, patientID, day)
	if err != nil {
		return nil, fmt.Errorf("loading reminder logs: %w", err)
	}
	logByReminder := make(map[uuid.UUID]*reminder.ReminderLog, len(logs))
	for _, l := range logs {
		logByReminder[l.ReminderID] = l
	}

	now := s.now()
	isToday := reminder.DateOnly(now).Equal(day)
	nowClock := now.Format("15:04")

	occurrences := make([]*reminder.Occurrence, 0, len(rows))
	for _, row := range rows {
		if !row.OccursOn(day) {
			continue
		}

		occ := &reminder.Occurrence{
			ReminderID:         row.ID,
			MedicationID:       row.MedicationID,
			PrescriptionID:     row.PrescriptionID,
			MedicationName:     row.MedicationName,
			MedicationStrength: row.MedicationStrength,
			TimeSlot:           row.TimeSlot,
			ScheduledTime:      row.ScheduledTime,
			DoseAmount:         row.DoseAmount,
			DoseUnit:           row.DoseUnit,
			Status:             reminder.StatusPending,
		}
		if l, ok := logByReminder[row.ID]; ok {
			occ.Status = l.Status
			occ.TakenAt = l.ActualTime
		}
		// Past dates with no log stay pending but are never flagged overdue
		// retroactively; overdue is a live-alert signal for today only.
		occ.IsOverdue = occ.Status == reminder.StatusPending && isToday && row.ScheduledTime < nowClock

		occurrences = append(occurrences, occ)
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].ScheduledTime < occurrences[j].ScheduledTime
	})
	return occurrences, nil
}

// ListReminders returns a patient's reminders, newest schedule first within
// the day ordering the repository provides.
func (s *ReminderService) ListReminders(ctx context.Context, q *reminder.ListRemindersQuery) ([]*reminder.Reminder, error) {
	return s.repo.List(ctx, q)
}

// Deactivate soft-disables one reminder. The row and its log history remain
// for adherence reporting.
func (s *ReminderService) Deactivate(ctx context.Context, id, patientID uuid.UUID, callerID uuid.UUID, callerRole string, ip string) error {
	if err := s.repo.Deactivate(ctx, id, patientID); err != nil {
		return err
	}
	s.metrics.RemindersDeactivated.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "update", ResourceType: "reminder", ResourceID: id.String(), IPAddress: ip,
		Changes: `{"is_active":false}`,
	})
	return nil
}

// DeactivateForPrescription soft-disables every reminder of a superseded
// prescription and returns how many were affected.
func (s *ReminderService) DeactivateForPrescription(ctx context.Context, prescriptionID, patientID uuid.UUID, callerID uuid.UUID, callerRole string, ip string) (int64, error) {
	n, err := s.repo.DeactivateByPrescription(ctx, prescriptionID, patientID)
	if err != nil {
		return 0, err
	}
	s.metrics.RemindersDeactivated.Add(float64(n))
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "update", ResourceType: "prescription_reminders",
		ResourceID: prescriptionID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"is_active":false,"count":%d}`, n),
	})
	return n, nil
}
