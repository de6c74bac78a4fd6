// Package main provides the medtrack API service entry point.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dastern/medtrack/internal/config"
	"github.com/dastern/medtrack/internal/domain/medication"
	v1 "github.com/dastern/medtrack/internal/handler/v1"
	"github.com/dastern/medtrack/internal/repository/postgres"
	"github.com/dastern/medtrack/internal/service"
	"github.com/dastern/medtrack/pkg/auth"
	"github.com/dastern/medtrack/pkg/database"
	"github.com/dastern/medtrack/pkg/logger"
	"github.com/dastern/medtrack/pkg/metrics"
	"github.com/dastern/medtrack/pkg/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("loading configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("building logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("starting medtrack api",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		log.Fatal("initializing tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("connecting to database", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("migrating database", zap.Error(err))
	}

	m := metrics.NewCollector("medtrack")
	jwtMgr := auth.NewJWTManager(cfg.JWT)

	medRepo := postgres.NewMedicationRepository(db)
	remRepo := postgres.NewReminderRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, log, m)
	defer auditSvc.Shutdown()

	medSvc := service.NewMedicationService(medRepo, auditSvc, m, log)
	remSvc, err := service.NewReminderService(remRepo, medRepo, auditSvc, m, service.ReminderDefaults{
		SlotTimes: medication.SlotTimes{
			medication.SlotMorning:   cfg.Reminder.MorningTime,
			medication.SlotNoon:      cfg.Reminder.NoonTime,
			medication.SlotAfternoon: cfg.Reminder.AfternoonTime,
			medication.SlotEvening:   cfg.Reminder.EveningTime,
			medication.SlotNight:     cfg.Reminder.NightTime,
		},
		AdvanceNotificationMinutes: cfg.Reminder.AdvanceNotificationMinutes,
		SnoozeDurationMinutes:      cfg.Reminder.SnoozeDurationMinutes,
	}, log)
	if err != nil {
		log.Fatal("building reminder service", zap.Error(err))
	}
	adhSvc := service.NewAdherenceService(remRepo, auditSvc, m, log)

	router := v1.NewRouter(v1.RouterDeps{
		Config:     cfg,
		Log:        log,
		Metrics:    m,
		JWT:        jwtMgr,
		DB:         db,
		Reminders:  v1.NewReminderHandler(remSvc),
		Adherence:  v1.NewAdherenceHandler(adhSvc, cfg.Reminder.DefaultAdherenceWindowDays),
		Medication: v1.NewMedicationHandler(medSvc),
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("shutdown error", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("address", cfg.Server.Address()))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server stopped")
}
