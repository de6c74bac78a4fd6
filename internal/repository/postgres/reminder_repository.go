package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dastern/medtrack/internal/domain/medication"
	"github.com/dastern/medtrack/internal/domain/reminder"
)

type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// CreateBatch inserts the reminder set for one medication in a single
// transaction so a mid-batch failure leaves no partial slot coverage.
func (r *ReminderRepository) CreateBatch(ctx context.Context, reminders []*reminder.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&reminders).Error
	})
}

func (r *ReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	var rem reminder.Reminder
	err := r.db.WithContext(ctx).First(&rem, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reminder.ErrReminderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

func (r *ReminderRepository) List(ctx context.Context, q *reminder.ListRemindersQuery) ([]*reminder.Reminder, error) {
	db := r.db.WithContext(ctx).Where("patient_id = ?", q.PatientID)
	if q.MedicationID != nil {
		db = db.Where("medication_id = ?", *q.MedicationID)
	}
	if q.ActiveOnly {
		db = db.Where("is_active = TRUE")
	}

	var out []*reminder.Reminder
	if err := db.Order("scheduled_time, time_slot").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReminderRepository) ExistingSlots(ctx context.Context, medicationID uuid.UUID) (map[medication.TimeSlot]bool, error) {
	var slots []medication.TimeSlot
	err := r.db.WithContext(ctx).
		Model(&reminder.Reminder{}).
		Where("medication_id = ?", medicationID).
		Pluck("time_slot", &slots).Error
	if err != nil {
		return nil, err
	}
	out := make(map[medication.TimeSlot]bool, len(slots))
	for _, s := range slots {
		out[s] = true
	}
	return out, nil
}

func (r *ReminderRepository) ActiveInWindow(ctx context.Context, patientID uuid.UUID, date time.Time) ([]*reminder.ReminderWithMedication, error) {
	var rows []*reminder.ReminderWithMedication
	err := r.db.WithContext(ctx).
		Table("clinical.medication_reminders AS mr").
		Select("mr.*, m.name AS medication_name, m.strength AS medication_strength").
		Joins("JOIN clinical.medications m ON m.id = mr.medication_id").
		Where("mr.patient_id = ?", patientID).
		Where("mr.is_active = TRUE").
		Where("mr.deleted_at IS NULL").
		Where("mr.start_date <= ?", date).
		Where("mr.end_date IS NULL OR mr.end_date >= ?", date).
		Order("mr.scheduled_time").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ReminderRepository) Deactivate(ctx context.Context, id, patientID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&reminder.Reminder{}).
		Where("id = ? AND patient_id = ?", id, patientID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return reminder.ErrReminderNotFound
	}
	return nil
}

func (r *ReminderRepository) DeactivateByPrescription(ctx context.Context, prescriptionID, patientID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&reminder.Reminder{}).
		Where("prescription_id = ? AND patient_id = ? AND is_active = TRUE", prescriptionID, patientID).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *ReminderRepository) GetLog(ctx context.Context, reminderID uuid.UUID, date time.Time) (*reminder.ReminderLog, error) {
	var log reminder.ReminderLog
	err := r.db.WithContext(ctx).
		First(&log, "reminder_id = ? AND scheduled_date = ?", reminderID, date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *ReminderRepository) ListLogsForDate(ctx context.Context, patientID uuid.UUID, date time.Time) ([]*reminder.ReminderLog, error) {
	var out []*reminder.ReminderLog
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND scheduled_date = ?", patientID, date).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReminderRepository) ListLogsSince(ctx context.Context, patientID uuid.UUID, since time.Time) ([]*reminder.ReminderLog, error) {
	var out []*reminder.ReminderLog
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND scheduled_date >= ?", patientID, since).
		Order("scheduled_date, scheduled_time").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveLogWithCounters upserts the occurrence log and writes the reminder's
// recomputed counters in the same transaction. The unique index on
// (reminder_id, scheduled_date) makes concurrent first-logs for the same
// occurrence collapse into one row.
func (r *ReminderRepository) SaveLogWithCounters(ctx context.Context, log *reminder.ReminderLog, rem *reminder.Reminder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if log.ID == uuid.Nil {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "reminder_id"}, {Name: "scheduled_date"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"status", "actual_time", "notes", "dose_taken",
					"skipped_reason", "snoozed_until", "logged_from_device", "updated_at",
				}),
			}).Create(log).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Save(log).Error; err != nil {
				return err
			}
		}

		return tx.Model(&reminder.Reminder{}).
			Where("id = ?", rem.ID).
			Select("total_doses", "completed_doses", "missed_doses",
				"adherence_rate", "last_taken_at", "last_missed_at").
			Updates(rem).Error
	})
}
