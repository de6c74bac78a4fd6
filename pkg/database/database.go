package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dastern/medtrack/internal/config"
	"github.com/dastern/medtrack/internal/domain"
	"github.com/dastern/medtrack/internal/domain/medication"
	"github.com/dastern/medtrack/internal/domain/reminder"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "audit"} // logical namespace
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.AuditLog{},
		&medication.Medication{},
		&reminder.Reminder{},
		&reminder.ReminderLog{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		// Daily view: active reminders for one patient within the date window
		{
			name:  "idx_reminders_patient_window",
			query: `CREATE INDEX IF NOT EXISTS idx_reminders_patient_window ON clinical.medication_reminders (patient_id, start_date, end_date) WHERE deleted_at IS NULL AND is_active = TRUE`,
		},
		// Occurrence upsert discipline: one log per (reminder, date)
		{
			name:  "idx_reminder_logs_occurrence",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS idx_reminder_logs_occurrence ON clinical.medication_reminder_logs (reminder_id, scheduled_date)`,
		},
		// Adherence window scans
		{
			name:  "idx_reminder_logs_patient_date",
			query: `CREATE INDEX IF NOT EXISTS idx_reminder_logs_patient_date ON clinical.medication_reminder_logs (patient_id, scheduled_date)`,
		},
		{
			name:  "idx_medications_prescription",
			query: `CREATE INDEX IF NOT EXISTS idx_medications_prescription ON clinical.medications (prescription_id, sequence_number) WHERE deleted_at IS NULL AND is_active = TRUE`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return nil
}
