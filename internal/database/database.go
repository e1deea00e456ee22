package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"mentorly/config"
	"mentorly/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Driver == "sqlite" {
		return NewSQLite(cfg.DSN)
	}
	db, err := gorm.Open(mysql.Open(cfg.DSN), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// NewSQLite opens a SQLite database limited to one connection, which
// serializes writers the way row locks do on MySQL.
func NewSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// gormLogger logs failed statements but not record-not-found lookups.
var gormLogger = logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
	SlowThreshold:             200 * time.Millisecond,
	LogLevel:                  logger.Error,
	IgnoreRecordNotFoundError: true,
})

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	}
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.CreditBalance{},
		&models.LedgerEntry{},
		&models.Slot{},
		&models.Booking{},
		&models.CreditPackage{},
		&models.PaymentOrder{},
		&models.Payment{},
		&models.AuditLog{},
	)
}

// DefaultPackages is the catalogue installed on first start.
var DefaultPackages = []models.CreditPackage{
	{ID: "single", Name: "Single session", Price: 30000, Sessions: 1, Active: true, SortOrder: 1},
	{ID: "bundle-5", Name: "5 sessions", Price: 135000, Sessions: 5, Active: true, SortOrder: 2},
	{ID: "bundle-10", Name: "10 sessions", Price: 250000, Sessions: 10, Active: true, SortOrder: 3},
}

// SeedPackages inserts the default packages, leaving existing rows untouched.
func SeedPackages(db *gorm.DB) error {
	pkgs := make([]models.CreditPackage, len(DefaultPackages))
	copy(pkgs, DefaultPackages)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pkgs).Error; err != nil {
		return fmt.Errorf("seed packages: %w", err)
	}
	return nil
}
