package database

import (
	"fmt"
	"log/slog"
	"time"

	"restoran-pos/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is the part of the application config the store needs.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// GormConfig is shared by the Postgres store and the in-memory test store.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

func Open(cfg Config, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("database connected, migrations applied")
	return db, nil
}

// manualIndexes are the constraints AutoMigrate can not express.
// Both statements are valid for Postgres and SQLite.
var manualIndexes = []string{
	// at most one open tab per table
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_dining_sessions_table_in_progress
		ON dining_sessions (table_id) WHERE status = 'IN_PROGRESS'`,
	`CREATE INDEX IF NOT EXISTS idx_orders_branch_created
		ON orders (branch_id, created_at)`,
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Franchise{},
		&models.Branch{},
		&models.Role{},
		&models.Staff{},
		&models.AuthUser{},
		&models.AuthStaffMapping{},
		&models.RestaurantTable{},
		&models.MenuItem{},
		&models.DiningSession{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, stmt := range manualIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
