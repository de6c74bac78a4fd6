package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dastern/medtrack/internal/domain/reminder"
	"github.com/dastern/medtrack/internal/service"
)

type AdherenceHandler struct {
	svc               *service.AdherenceService
	defaultWindowDays int
}

func NewAdherenceHandler(svc *service.AdherenceService, defaultWindowDays int) *AdherenceHandler {
	return &AdherenceHandler{svc: svc, defaultWindowDays: defaultWindowDays}
}

type logDoseRequest struct {
	ReminderID     uuid.UUID  `json:"reminder_id" binding:"required"`
	Status         string     `json:"status" binding:"required"`
	OccurrenceDate string     `json:"occurrence_date,omitempty"` // YYYY-MM-DD, default today
	ActualTime     *time.Time `json:"actual_time,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	DoseTaken      *float64   `json:"dose_taken,omitempty"`
	SkippedReason  string     `json:"skipped_reason,omitempty"`
	Device         string     `json:"device,omitempty"`
}

type logDoseResponse struct {
	Log      *reminder.ReminderLog `json:"log"`
	Reminder *reminder.Reminder    `json:"reminder"`
}

// LogDose records the outcome of one reminder occurrence and returns the log
// together with the reminder's refreshed counters.
func (h *AdherenceHandler) LogDose(c *gin.Context) {
	patientID, claims, ok := patientScope(c)
	if !ok {
		return
	}

	var req logDoseRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &reminder.LogDoseCommand{
		ReminderID:       req.ReminderID,
		PatientID:        patientID,
		Status:           reminder.LogStatus(req.Status),
		ActualTime:       req.ActualTime,
		Notes:            req.Notes,
		DoseTaken:        req.DoseTaken,
		SkippedReason:    req.SkippedReason,
		LoggedFromDevice: req.Device,
	}
	if req.OccurrenceDate != "" {
		t, err := time.Parse("2006-01-02", req.OccurrenceDate)
		if err != nil {
			c.JSON(400, ErrorResponse{Error: "invalid occurrence_date: must be YYYY-MM-DD"})
			return
		}
		cmd.OccurrenceDate = t
	}

	log, rem, err := h.svc.LogDose(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, logDoseResponse{Log: log, Reminder: rem})
}

// Stats reports adherence over a trailing window, default 30 days.
func (h *AdherenceHandler) Stats(c *gin.Context) {
	patientID, _, ok := patientScope(c)
	if !ok {
		return
	}
	windowDays := parseQueryInt(c, "days", h.defaultWindowDays)

	stats, err := h.svc.AdherenceStats(c.Request.Context(), patientID, windowDays)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"window_days": windowDays, "stats": stats})
}
