package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dastern/medtrack/internal/domain/medication"
	"github.com/dastern/medtrack/internal/service"
)

type MedicationHandler struct {
	svc *service.MedicationService
}

func NewMedicationHandler(svc *service.MedicationService) *MedicationHandler {
	return &MedicationHandler{svc: svc}
}

type ingestMedicationsRequest struct {
	PrescriptionID uuid.UUID                         `json:"prescription_id" binding:"required"`
	Medications    []medication.ExtractedMedication  `json:"medications" binding:"required"`
}

// CreateFromExtraction stores the structured medications produced by the
// prescription-parsing pipeline.
func (h *MedicationHandler) CreateFromExtraction(c *gin.Context) {
	patientID, claims, ok := patientScope(c)
	if !ok {
		return
	}

	var req ingestMedicationsRequest
	if !bindJSON(c, &req) {
		return
	}

	meds, err := h.svc.CreateFromExtraction(c.Request.Context(), &medication.CreateFromExtractionCommand{
		PrescriptionID: req.PrescriptionID,
		PatientID:      patientID,
		Medications:    req.Medications,
	}, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, meds)
}

func (h *MedicationHandler) Get(c *gin.Context) {
	patientID, _, ok := patientScope(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	med, err := h.svc.GetMedication(c.Request.Context(), id, patientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, med)
}

func (h *MedicationHandler) List(c *gin.Context) {
	patientID, _, ok := patientScope(c)
	if !ok {
		return
	}

	q := &medication.ListMedicationsQuery{
		PatientID:  &patientID,
		ActiveOnly: c.DefaultQuery("active", "true") == "true",
	}
	if raw := c.Query("prescription_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(400, ErrorResponse{Error: "invalid prescription_id: must be a valid UUID"})
			return
		}
		q.PrescriptionID = &id
	}

	meds, err := h.svc.ListMedications(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, meds)
}
