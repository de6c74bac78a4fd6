package medication

import (
	"time"

	"github.com/google/uuid"
)

type Form string

const (
	FormTablet    Form = "tablet"
	FormCapsule   Form = "capsule"
	FormSyrup     Form = "syrup"
	FormInjection Form = "injection"
	FormCream     Form = "cream"
	FormDrops     Form = "drops"
	FormInhaler   Form = "inhaler"
	FormOther     Form = "other"
)

func (f Form) IsValid() bool {
	switch f {
	case FormTablet, FormCapsule, FormSyrup, FormInjection, FormCream, FormDrops, FormInhaler, FormOther:
		return true
	}
	return false
}

// Medication is one prescribed drug line item. Once a reminder set has been
// generated from it the row is treated as immutable except for soft
// deactivation when the prescription is revised or superseded.
type Medication struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	PrescriptionID uuid.UUID `gorm:"column:prescription_id;type:uuid;not null;index"`
	PatientID      uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	SequenceNumber int       `gorm:"column:sequence_number;not null;default:1"`

	Name        string `gorm:"column:name;type:varchar(255);not null;index"`
	GenericName string `gorm:"column:generic_name;type:varchar(255)"`
	BrandName   string `gorm:"column:brand_name;type:varchar(255)"`
	Strength    string `gorm:"column:strength;type:varchar(50)"` // e.g. "500mg"
	Form        Form   `gorm:"column:form;type:varchar(30);not null;default:'tablet'"`

	Quantity     float64 `gorm:"column:quantity;not null;default:0"`
	QuantityUnit string  `gorm:"column:quantity_unit;type:varchar(30);default:'tablet'"`
	DurationDays *int    `gorm:"column:duration_days"`

	DosageSchedule DosageSchedule `gorm:"column:dosage_schedule;serializer:json"`

	Instructions   string `gorm:"column:instructions;type:text"`
	TakeWithFood   bool   `gorm:"column:take_with_food;default:false"`
	TakeBeforeMeal bool   `gorm:"column:take_before_meal;default:false"`
	TakeAfterMeal  bool   `gorm:"column:take_after_meal;default:false"`

	IsActive bool `gorm:"column:is_active;default:true;index"`
}

func (Medication) TableName() string {
	return "clinical.medications"
}

// DoseUnitFor picks the unit reported on a reminder for the given slot dose:
// the slot's own unit when present, otherwise the medication quantity unit.
func (m *Medication) DoseUnitFor(d DoseAmount) string {
	if d.Unit != "" {
		return d.Unit
	}
	return m.QuantityUnit
}

// ExtractedMedication is the structured output of the prescription-parsing
// collaborator (OCR/AI pipeline). The core consumes it as-is.
type ExtractedMedication struct {
	SequenceNumber      int            `json:"sequence_number"`
	Name                string         `json:"name"`
	Strength            string         `json:"strength,omitempty"`
	Form                Form           `json:"form,omitempty"`
	Quantity            float64        `json:"quantity,omitempty"`
	Unit                string         `json:"unit,omitempty"`
	DurationDays        *int           `json:"duration_days,omitempty"`
	DosageSchedule      DosageSchedule `json:"dosage_schedule"`
	SpecialInstructions string         `json:"special_instructions,omitempty"`
	ConfidenceScore     float64        `json:"confidence_score,omitempty"`
}

type CreateFromExtractionCommand struct {
	PrescriptionID uuid.UUID
	PatientID      uuid.UUID
	Medications    []ExtractedMedication
}

type ListMedicationsQuery struct {
	PrescriptionID *uuid.UUID
	PatientID      *uuid.UUID
	ActiveOnly     bool
}
