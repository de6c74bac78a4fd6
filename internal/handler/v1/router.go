package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dastern/medtrack/internal/config"
	"github.com/dastern/medtrack/pkg/auth"
	"github.com/dastern/medtrack/pkg/metrics"
)

type RouterDeps struct {
	Config     *config.Config
	Log        *zap.Logger
	Metrics    *metrics.Collector
	JWT        *auth.JWTManager
	DB         *gorm.DB
	Reminders  *ReminderHandler
	Adherence  *AdherenceHandler
	Medication *MedicationHandler
}

// NewRouter assembles the versioned API surface.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(deps.Log))
	r.Use(Metrics(deps.Metrics))
	r.Use(CORS(deps.Config.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		sqlDB, err := deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")
	api.Use(RequireAuth(deps.JWT))
	{
		api.POST("/medications/extracted", deps.Medication.CreateFromExtraction)
		api.GET("/medications", deps.Medication.List)
		api.GET("/medications/:id", deps.Medication.Get)
		api.GET("/medications/:id/reminders", deps.Reminders.ListForMedication)

		api.POST("/reminders", deps.Reminders.CreateForPrescription)
		api.GET("/reminders", deps.Reminders.List)
		api.GET("/reminders/today", deps.Reminders.Today)
		api.POST("/reminders/:id/deactivate", deps.Reminders.Deactivate)
		api.POST("/prescriptions/:id/reminders/deactivate", deps.Reminders.DeactivateForPrescription)

		api.POST("/reminders/logs", deps.Adherence.LogDose)
		api.GET("/adherence", deps.Adherence.Stats)
	}

	return r
}
