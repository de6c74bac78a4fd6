package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dastern/medtrack/internal/domain/medication"
	"github.com/dastern/medtrack/internal/domain/reminder"
)

func newTestAdherenceService(t *testing.T, repo *memReminderRepo, now time.Time) *AdherenceService {
	t.Helper()
	return NewAdherenceService(repo, newTestAuditService(t), testCollector(), zap.NewNop()).
		WithClock(fixedClock(now))
}

func seedActiveReminder(repo *memReminderRepo, patientID uuid.UUID) *reminder.Reminder {
	return seedReminder(repo, &reminder.Reminder{
		MedicationID:          uuid.New(),
		PatientID:             patientID,
		TimeSlot:              medication.SlotMorning,
		ScheduledTime:         "07:00",
		StartDate:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:              true,
		SnoozeDurationMinutes: 10,
	})
}

func TestLogDoseTaken(t *testing.T) {
	repo := newMemReminderRepo()
	patientID := uuid.New()
	now := time.Date(2024, 1, 5, 7, 10, 0, 0, time.UTC)
	svc := newTestAdherenceService(t, repo, now)
	rem := seedActiveReminder(repo, patientID)

	log, updated, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
		ReminderID: rem.ID,
		PatientID:  patientID,
		Status:     reminder.StatusTaken,
	}, patientID, "patient", "127.0.0.1")
	if err != nil {
		t.Fatalf("LogDose: %v", err)
	}

	if log.Status != reminder.StatusTaken {
		t.Errorf("status = %s, want taken", log.Status)
	}
	wantDate := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if !log.ScheduledDate.Equal(wantDate) {
		t.Errorf("scheduled_date = %v, want today %v", log.ScheduledDate, wantDate)
	}
	if log.ActualTime == nil || !log.ActualTime.Equal(now) {
		t.Error("actual_time should default to the clock for a taken dose")
	}
	if log.ScheduledTime != "07:00" {
		t.Errorf("scheduled_time = %s, want copied from the reminder", log.ScheduledTime)
	}

	if updated.TotalDoses != 1 || updated.CompletedDoses != 1 || updated.MissedDoses != 0 {
		t.Errorf("counters = {total:%d completed:%d missed:%d}, want {1 1 0}",
			updated.TotalDoses, updated.CompletedDoses, updated.MissedDoses)
	}
	if updated.AdherenceRate != 100 {
		t.Errorf("adherence = %v, want 100", updated.AdherenceRate)
	}
	if updated.LastTakenAt == nil {
		t.Error("last_taken_at not set")
	}
}

func TestLogDoseReLogMovesDelta(t *testing.T) {
	repo := newMemReminderRepo()
	patientID := uuid.New()
	now := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	svc := newTestAdherenceService(t, repo, now)
	rem := seedActiveReminder(repo, patientID)

	first, _, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
		ReminderID: rem.ID, PatientID: patientID, Status: reminder.StatusMissed,
	}, patientID, "patient", "")
	if err != nil {
		t.Fatalf("first LogDose: %v", err)
	}

	second, updated, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
		ReminderID: rem.ID, PatientID: patientID, Status: reminder.StatusTaken,
	}, patientID, "patient", "")
	if err != nil {
		t.Fatalf("second LogDose: %v", err)
	}

	// Same occurrence, corrected in place: one row, one counted dose.
	if second.ID != first.ID {
		t.Errorf("correction created a new log row: %s vs %s", second.ID, first.ID)
	}
	if len(repo.logs) != 1 {
		t.Fatalf("repository holds %d log rows, want 1", len(repo.logs))
	}
	if updated.TotalDoses != 1 || updated.CompletedDoses != 1 || updated.MissedDoses != 0 {
		t.Errorf("counters = {total:%d completed:%d missed:%d}, want {1 1 0} after correction",
			updated.TotalDoses, updated.CompletedDoses, updated.MissedDoses)
	}
	if updated.AdherenceRate != 100 {
		t.Errorf("adherence = %v, want 100", updated.AdherenceRate)
	}
}

func TestLogDoseSnoozed(t *testing.T) {
	repo := newMemReminderRepo()
	patientID := uuid.New()
	now := time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC)
	svc := newTestAdherenceService(t, repo, now)
	rem := seedActiveReminder(repo, patientID)

	log, updated, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
		ReminderID: rem.ID, PatientID: patientID, Status: reminder.StatusSnoozed,
	}, patientID, "patient", "")
	if err != nil {
		t.Fatalf("LogDose: %v", err)
	}

	want := now.Add(10 * time.Minute)
	if log.SnoozedUntil == nil || !log.SnoozedUntil.Equal(want) {
		t.Errorf("snoozed_until = %v, want %v", log.SnoozedUntil, want)
	}
	if updated.TotalDoses != 0 || updated.CompletedDoses != 0 || updated.MissedDoses != 0 {
		t.Error("snooze must not move the dose counters")
	}

	// Taking the dose afterwards clears the snooze marker.
	log, _, err = svc.LogDose(context.Background(), &reminder.LogDoseCommand{
		ReminderID: rem.ID, PatientID: patientID, Status: reminder.StatusTaken,
	}, patientID, "patient", "")
	if err != nil {
		t.Fatalf("LogDose: %v", err)
	}
	if log.SnoozedUntil != nil {
		t.Error("snoozed_until not cleared on the follow-up log")
	}
}

func TestLogDoseSkipped(t *testing.T) {
	repo := newMemReminderRepo()
	patientID := uuid.New()
	svc := newTestAdherenceService(t, repo, time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC))
	rem := seedActiveReminder(repo, patientID)

	log, updated, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
		ReminderID:    rem.ID,
		PatientID:     patientID,
		Status:        reminder.StatusSkipped,
		SkippedReason: "fasting before blood test",
	}, patientID, "patient", "")
	if err != nil {
		t.Fatalf("LogDose: %v", err)
	}
	if log.SkippedReason != "fasting before blood test" {
		t.Errorf("skipped_reason = %q", log.SkippedReason)
	}
	if updated.TotalDoses != 0 {
		t.Error("skip must not move the dose counters")
	}
}

func TestLogDoseRejections(t *testing.T) {
	repo := newMemReminderRepo()
	patientID := uuid.New()
	svc := newTestAdherenceService(t, repo, time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC))
	rem := seedActiveReminder(repo, patientID)

	t.Run("invalid status", func(t *testing.T) {
		_, _, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
			ReminderID: rem.ID, PatientID: patientID, Status: "devoured",
		}, patientID, "patient", "")
		if !errors.Is(err, reminder.ErrInvalidLogStatus) {
			t.Fatalf("err = %v, want ErrInvalidLogStatus", err)
		}
	})

	t.Run("pending is not loggable", func(t *testing.T) {
		_, _, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
			ReminderID: rem.ID, PatientID: patientID, Status: reminder.StatusPending,
		}, patientID, "patient", "")
		if !errors.Is(err, reminder.ErrInvalidLogStatus) {
			t.Fatalf("err = %v, want ErrInvalidLogStatus", err)
		}
	})

	t.Run("other patient's reminder looks missing", func(t *testing.T) {
		_, _, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
			ReminderID: rem.ID, PatientID: uuid.New(), Status: reminder.StatusTaken,
		}, patientID, "patient", "")
		if !errors.Is(err, reminder.ErrReminderNotFound) {
			t.Fatalf("err = %v, want ErrReminderNotFound", err)
		}
	})

	t.Run("inactive reminder", func(t *testing.T) {
		rem.IsActive = false
		defer func() { rem.IsActive = true }()
		_, _, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
			ReminderID: rem.ID, PatientID: patientID, Status: reminder.StatusTaken,
		}, patientID, "patient", "")
		if !errors.Is(err, reminder.ErrReminderInactive) {
			t.Fatalf("err = %v, want ErrReminderInactive", err)
		}
	})
}

func TestLogDoseExplicitOccurrenceDate(t *testing.T) {
	repo := newMemReminderRepo()
	patientID := uuid.New()
	now := time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC)
	svc := newTestAdherenceService(t, repo, now)
	rem := seedActiveReminder(repo, patientID)

	// Backfilling yesterday must not collide with today's occurrence.
	yesterday := time.Date(2024, 1, 4, 23, 59, 0, 0, time.UTC)
	log, _, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
		ReminderID:     rem.ID,
		PatientID:      patientID,
		Status:         reminder.StatusMissed,
		OccurrenceDate: yesterday,
	}, patientID, "patient", "")
	if err != nil {
		t.Fatalf("LogDose: %v", err)
	}
	want := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	if !log.ScheduledDate.Equal(want) {
		t.Errorf("scheduled_date = %v, want date-only %v", log.ScheduledDate, want)
	}

	_, updated, err := svc.LogDose(context.Background(), &reminder.LogDoseCommand{
		ReminderID: rem.ID, PatientID: patientID, Status: reminder.StatusTaken,
	}, patientID, "patient", "")
	if err != nil {
		t.Fatalf("LogDose: %v", err)
	}
	if len(repo.logs) != 2 {
		t.Fatalf("repository holds %d log rows, want 2 distinct occurrences", len(repo.logs))
	}
	if updated.TotalDoses != 2 || updated.CompletedDoses != 1 || updated.MissedDoses != 1 {
		t.Errorf("counters = {total:%d completed:%d missed:%d}, want {2 1 1}",
			updated.TotalDoses, updated.CompletedDoses, updated.MissedDoses)
	}
	if updated.AdherenceRate != 50 {
		t.Errorf("adherence = %v, want 50", updated.AdherenceRate)
	}
}

func TestAdherenceStats(t *testing.T) {
	repo := newMemReminderRepo()
	patientID := uuid.New()
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestAdherenceService(t, repo, now)

	addLog := func(day time.Time, status reminder.LogStatus) {
		id := uuid.New()
		repo.logs[logKey(id, day)] = &reminder.ReminderLog{
			ID: uuid.New(), ReminderID: id, PatientID: patientID,
			ScheduledDate: day, Status: status,
		}
	}

	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	addLog(day(28), reminder.StatusTaken)
	addLog(day(29), reminder.StatusTaken)
	addLog(day(30), reminder.StatusTaken)
	addLog(day(30).Add(time.Hour), reminder.StatusMissed)
	addLog(day(31), reminder.StatusSkipped)
	addLog(day(31).Add(time.Hour), reminder.StatusSnoozed)
	// Outside the 7-day window.
	addLog(day(10), reminder.StatusMissed)

	stats, err := svc.AdherenceStats(context.Background(), patientID, 7)
	if err != nil {
		t.Fatalf("AdherenceStats: %v", err)
	}

	// Snoozed and skipped occurrences count toward the denominator.
	if stats.TotalDoses != 6 {
		t.Errorf("total = %d, want 6", stats.TotalDoses)
	}
	if stats.Taken != 3 || stats.Missed != 1 || stats.Skipped != 1 {
		t.Errorf("breakdown = {taken:%d missed:%d skipped:%d}, want {3 1 1}",
			stats.Taken, stats.Missed, stats.Skipped)
	}
	if stats.AdherenceRate != 50 {
		t.Errorf("adherence = %v, want 50", stats.AdherenceRate)
	}
}

func TestAdherenceStatsEdgeCases(t *testing.T) {
	repo := newMemReminderRepo()
	patientID := uuid.New()
	svc := newTestAdherenceService(t, repo, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))

	t.Run("empty history", func(t *testing.T) {
		stats, err := svc.AdherenceStats(context.Background(), patientID, 30)
		if err != nil {
			t.Fatalf("AdherenceStats: %v", err)
		}
		if stats.TotalDoses != 0 || stats.AdherenceRate != 0 {
			t.Errorf("stats = %+v, want zeroes", stats)
		}
	})

	t.Run("non-positive window", func(t *testing.T) {
		for _, days := range []int{0, -5} {
			if _, err := svc.AdherenceStats(context.Background(), patientID, days); !errors.Is(err, reminder.ErrInvalidWindowDays) {
				t.Errorf("windowDays=%d: err = %v, want ErrInvalidWindowDays", days, err)
			}
		}
	})
}
