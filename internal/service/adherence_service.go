package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dastern/medtrack/internal/domain/reminder"
	"github.com/dastern/medtrack/pkg/metrics"
)

// AdherenceService records dose events and reports adherence statistics.
//
// Dose logging is an upsert keyed by (reminder_id, scheduled_date): logging
// the same occurrence again supersedes the earlier outcome, and the
// reminder's rolling counters move by the delta between the two statuses
// instead of incrementing again. Both writes happen in one transaction.
type AdherenceService struct {
	repo     reminder.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger

	now func() time.Time
}

func NewAdherenceService(repo reminder.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *AdherenceService {
	return &AdherenceService{repo: repo, auditSvc: auditSvc, metrics: m, log: log, now: time.Now}
}

// WithClock replaces the service clock. Test hook.
func (s *AdherenceService) WithClock(now func() time.Time) *AdherenceService {
	s.now = now
	return s
}

// LogDose records the outcome of one reminder occurrence and returns the
// persisted log together with the reminder's updated counters.
func (s *AdherenceService) LogDose(ctx context.Context, cmd *reminder.LogDoseCommand, callerID uuid.UUID, callerRole string, ip string) (*reminder.ReminderLog, *reminder.Reminder, error) {
	if !cmd.Status.IsValid() {
		return nil, nil, fmt.Errorf("%w: %q", reminder.ErrInvalidLogStatus, cmd.Status)
	}

	rem, err := s.repo.GetByID(ctx, cmd.ReminderID)
	if err != nil {
		return nil, nil, err
	}
	if rem.PatientID != cmd.PatientID {
		// Scoped lookup: a reminder owned by someone else is indistinguishable
		// from a missing one.
		return nil, nil, reminder.ErrReminderNotFound
	}
	if !rem.IsActive {
		return nil, nil, reminder.ErrReminderInactive
	}

	now := s.now()
	occurrenceDate := reminder.DateOnly(cmd.OccurrenceDate)
	if cmd.OccurrenceDate.IsZero() {
		occurrenceDate = reminder.DateOnly(now)
	}

	prev, err := s.repo.GetLog(ctx, rem.ID, occurrenceDate)
	if err != nil {
		return nil, nil, fmt.Errorf("loading existing log: %w", err)
	}

	prevStatus := reminder.StatusPending
	logRow := &reminder.ReminderLog{
		ReminderID:    rem.ID,
		MedicationID:  rem.MedicationID,
		PatientID:     rem.PatientID,
		ScheduledDate: occurrenceDate,
		ScheduledTime: rem.ScheduledTime,
	}
	if prev != nil {
		prevStatus = prev.Status
		logRow = prev
	}

	logRow.Status = cmd.Status
	logRow.Notes = cmd.Notes
	logRow.DoseTaken = cmd.DoseTaken
	logRow.SkippedReason = cmd.SkippedReason
	logRow.LoggedFromDevice = cmd.LoggedFromDevice

	actualTime := cmd.ActualTime
	if actualTime == nil && cmd.Status == reminder.StatusTaken {
		t := now
		actualTime = &t
	}
	logRow.ActualTime = actualTime

	if cmd.Status == reminder.StatusSnoozed {
		until := now.Add(time.Duration(rem.SnoozeDurationMinutes) * time.Minute)
		logRow.SnoozedUntil = &until
	} else {
		logRow.SnoozedUntil = nil
	}

	rem.ApplyLogTransition(prevStatus, cmd.Status, now)

	if err := s.repo.SaveLogWithCounters(ctx, logRow, rem); err != nil {
		return nil, nil, fmt.Errorf("saving dose log: %w", err)
	}

	s.metrics.DosesLoggedTotal.WithLabelValues(string(cmd.Status)).Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "create", ResourceType: "reminder_log",
		ResourceID: logRow.ReminderID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"status":%q,"date":%q}`, cmd.Status, occurrenceDate.Format("2006-01-02")),
	})

	if prevStatus != reminder.StatusPending && prevStatus != cmd.Status {
		s.log.Info("dose log corrected",
			zap.String("reminder_id", rem.ID.String()),
			zap.String("from", string(prevStatus)),
			zap.String("to", string(cmd.Status)),
		)
	}

	return logRow, rem, nil
}

// AdherenceStats recomputes adherence over the trailing window from the
// immutable log history. Every log row in the window counts toward the
// denominator, including skipped and snoozed occurrences, matching the
// per-occurrence accounting of the daily view.
func (s *AdherenceService) AdherenceStats(ctx context.Context, patientID uuid.UUID, windowDays int) (*reminder.AdherenceStats, error) {
	if windowDays <= 0 {
		return nil, reminder.ErrInvalidWindowDays
	}

	since := reminder.DateOnly(s.now()).AddDate(0, 0, -windowDays)
	logs, err := s.repo.ListLogsSince(ctx, patientID, since)
	if err != nil {
		return nil, fmt.Errorf("loading log history: %w", err)
	}

	stats := &reminder.AdherenceStats{}
	for _, l := range logs {
		stats.TotalDoses++
		switch l.Status {
		case reminder.StatusTaken:
			stats.Taken++
		case reminder.StatusMissed:
			stats.Missed++
		case reminder.StatusSkipped:
			stats.Skipped++
		}
	}
	if stats.TotalDoses > 0 {
		stats.AdherenceRate = float64(stats.Taken) / float64(stats.TotalDoses) * 100
	}
	return stats, nil
}
