package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dastern/medtrack/internal/domain/medication"
	"github.com/dastern/medtrack/internal/domain/reminder"
	"github.com/dastern/medtrack/internal/service"
)

type ReminderHandler struct {
	svc *service.ReminderService
}

func NewReminderHandler(svc *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{svc: svc}
}

type createRemindersRequest struct {
	PrescriptionID uuid.UUID         `json:"prescription_id" binding:"required"`
	StartDate      string            `json:"start_date,omitempty"` // YYYY-MM-DD
	CustomTimes    map[string]string `json:"custom_times,omitempty"`
}

type bulkRemindersResponse struct {
	PrescriptionID   uuid.UUID                   `json:"prescription_id"`
	RemindersCreated int                         `json:"reminders_created"`
	Reminders        []*reminder.Reminder        `json:"reminders"`
	Failed           []reminder.FailedMedication `json:"failed,omitempty"`
}

// CreateForPrescription materializes reminders for every medication of a
// prescription. Per-medication failures are itemized, not fatal.
func (h *ReminderHandler) CreateForPrescription(c *gin.Context) {
	patientID, claims, ok := patientScope(c)
	if !ok {
		return
	}

	var req createRemindersRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &reminder.CreateForPrescriptionCommand{
		PrescriptionID: req.PrescriptionID,
		PatientID:      patientID,
	}
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(400, ErrorResponse{Error: "invalid start_date: must be YYYY-MM-DD"})
			return
		}
		cmd.StartDate = t
	}
	if len(req.CustomTimes) > 0 {
		cmd.CustomTimes = make(map[medication.TimeSlot]string, len(req.CustomTimes))
		for slot, t := range req.CustomTimes {
			ts := medication.TimeSlot(slot)
			if !ts.IsValid() {
				c.JSON(400, ErrorResponse{Error: "unknown time slot in custom_times: " + slot})
				return
			}
			cmd.CustomTimes[ts] = t
		}
	}

	result, err := h.svc.CreateForPrescription(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, bulkRemindersResponse{
		PrescriptionID:   result.PrescriptionID,
		RemindersCreated: len(result.Reminders),
		Reminders:        result.Reminders,
		Failed:           result.Failed,
	})
}

type todayRemindersResponse struct {
	Date           string                 `json:"date"`
	Reminders      []*reminder.Occurrence `json:"reminders"`
	TotalToday     int                    `json:"total_today"`
	CompletedToday int                    `json:"completed_today"`
	AdherenceToday float64                `json:"adherence_today"`
}

// Today resolves the daily occurrence view. An optional date parameter allows
// caregivers to inspect past days.
func (h *ReminderHandler) Today(c *gin.Context) {
	patientID, _, ok := patientScope(c)
	if !ok {
		return
	}
	date, ok := parseQueryDate(c, "date")
	if !ok {
		return
	}

	occurrences, err := h.svc.DueOccurrences(c.Request.Context(), patientID, date)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := todayRemindersResponse{Reminders: occurrences, TotalToday: len(occurrences)}
	for _, occ := range occurrences {
		if occ.Status == reminder.StatusTaken {
			resp.CompletedToday++
		}
	}
	if resp.TotalToday > 0 {
		resp.AdherenceToday = float64(resp.CompletedToday) / float64(resp.TotalToday) * 100
	}
	if date.IsZero() {
		date = time.Now()
	}
	resp.Date = reminder.DateOnly(date).Format("2006-01-02")

	respondOK(c, resp)
}

// List returns the patient's reminders, optionally scoped to one medication.
func (h *ReminderHandler) List(c *gin.Context) {
	patientID, _, ok := patientScope(c)
	if !ok {
		return
	}

	q := &reminder.ListRemindersQuery{
		PatientID:  patientID,
		ActiveOnly: c.DefaultQuery("active", "true") == "true",
	}
	if raw := c.Query("medication_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(400, ErrorResponse{Error: "invalid medication_id: must be a valid UUID"})
			return
		}
		q.MedicationID = &id
	}

	reminders, err := h.svc.ListReminders(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, reminders)
}

// ListForMedication returns the reminder set of one medication.
func (h *ReminderHandler) ListForMedication(c *gin.Context) {
	patientID, _, ok := patientScope(c)
	if !ok {
		return
	}
	medID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	reminders, err := h.svc.ListReminders(c.Request.Context(), &reminder.ListRemindersQuery{
		PatientID:    patientID,
		MedicationID: &medID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, reminders)
}

func (h *ReminderHandler) Deactivate(c *gin.Context) {
	patientID, claims, ok := patientScope(c)
	if !ok {
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), id, patientID, claims.UserID, string(claims.Role), c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"id": id, "is_active": false})
}

func (h *ReminderHandler) DeactivateForPrescription(c *gin.Context) {
	patientID, claims, ok := patientScope(c)
	if !ok {
		return
	}
	prescriptionID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	n, err := h.svc.DeactivateForPrescription(c.Request.Context(), prescriptionID, patientID, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"prescription_id": prescriptionID, "deactivated": n})
}
