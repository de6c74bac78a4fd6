package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dastern/medtrack/internal/domain/medication"
	"github.com/dastern/medtrack/pkg/metrics"
)

// MedicationService persists the structured output of the prescription
// parsing pipeline and exposes medication lookups for the reminder engine.
type MedicationService struct {
	repo     medication.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewMedicationService(repo medication.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *MedicationService {
	return &MedicationService{repo: repo, auditSvc: auditSvc, metrics: m, log: log}
}

// CreateFromExtraction stores one medication row per extracted line item.
// Validation runs over the whole batch before any write so a malformed item
// aborts the ingestion without partial state.
func (s *MedicationService) CreateFromExtraction(ctx context.Context, cmd *medication.CreateFromExtractionCommand, callerID uuid.UUID, callerRole string, ip string) ([]*medication.Medication, error) {
	if len(cmd.Medications) == 0 {
		return nil, &ValidationError{Fields: []string{"medications: at least one entry is required"}}
	}

	var fields []string
	meds := make([]*medication.Medication, 0, len(cmd.Medications))
	for i, ex := range cmd.Medications {
		if strings.TrimSpace(ex.Name) == "" {
			fields = append(fields, fmt.Sprintf("medications[%d].name: required", i))
		}
		if err := ex.DosageSchedule.Validate(); err != nil {
			fields = append(fields, fmt.Sprintf("medications[%d].dosage_schedule: %v", i, err))
		}

		form := ex.Form
		if form == "" {
			form = medication.FormTablet
		} else if !form.IsValid() {
			form = medication.FormOther
		}
		unit := ex.Unit
		if unit == "" {
			unit = "tablet"
		}
		seq := ex.SequenceNumber
		if seq == 0 {
			seq = i + 1
		}

		meds = append(meds, &medication.Medication{
			PrescriptionID: cmd.PrescriptionID,
			PatientID:      cmd.PatientID,
			SequenceNumber: seq,
			Name:           strings.TrimSpace(ex.Name),
			Strength:       ex.Strength,
			Form:           form,
			Quantity:       ex.Quantity,
			QuantityUnit:   unit,
			DurationDays:   ex.DurationDays,
			DosageSchedule: ex.DosageSchedule,
			Instructions:   ex.SpecialInstructions,
			IsActive:       true,
		})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.repo.CreateBatch(ctx, meds); err != nil {
		return nil, fmt.Errorf("storing medications: %w", err)
	}
	s.metrics.MedicationsIngestedTotal.Add(float64(len(meds)))

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "create", ResourceType: "medication",
		ResourceID: cmd.PrescriptionID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"count":%d}`, len(meds)),
	})

	return meds, nil
}

func (s *MedicationService) GetMedication(ctx context.Context, id, patientID uuid.UUID) (*medication.Medication, error) {
	med, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if med.PatientID != patientID {
		return nil, medication.ErrMedicationNotFound
	}
	return med, nil
}

func (s *MedicationService) ListMedications(ctx context.Context, q *medication.ListMedicationsQuery) ([]*medication.Medication, error) {
	return s.repo.List(ctx, q)
}

// DeactivateForPrescription soft-disables every medication of a superseded
// prescription; the caller is expected to deactivate its reminders alongside.
func (s *MedicationService) DeactivateForPrescription(ctx context.Context, prescriptionID uuid.UUID, callerID uuid.UUID, callerRole string, ip string) (int64, error) {
	n, err := s.repo.DeactivateByPrescription(ctx, prescriptionID)
	if err != nil {
		return 0, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: callerID, UserRole: callerRole,
		Action: "update", ResourceType: "medication",
		ResourceID: prescriptionID.String(), IPAddress: ip,
		Changes: fmt.Sprintf(`{"is_active":false,"count":%d}`, n),
	})
	return n, nil
}
