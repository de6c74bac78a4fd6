package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dastern/medtrack/internal/domain/medication"
)

type MedicationRepository struct {
	db *gorm.DB
}

func NewMedicationRepository(db *gorm.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

func (r *MedicationRepository) CreateBatch(ctx context.Context, meds []*medication.Medication) error {
	if len(meds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&meds).Error
	})
}

func (r *MedicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*medication.Medication, error) {
	var med medication.Medication
	err := r.db.WithContext(ctx).First(&med, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, medication.ErrMedicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &med, nil
}

func (r *MedicationRepository) List(ctx context.Context, q *medication.ListMedicationsQuery) ([]*medication.Medication, error) {
	db := r.db.WithContext(ctx)
	if q.PrescriptionID != nil {
		db = db.Where("prescription_id = ?", *q.PrescriptionID)
	}
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.ActiveOnly {
		db = db.Where("is_active = TRUE")
	}

	var out []*medication.Medication
	if err := db.Order("sequence_number").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MedicationRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&medication.Medication{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return medication.ErrMedicationNotFound
	}
	return nil
}

func (r *MedicationRepository) DeactivateByPrescription(ctx context.Context, prescriptionID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&medication.Medication{}).
		Where("prescription_id = ? AND is_active = TRUE", prescriptionID).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
