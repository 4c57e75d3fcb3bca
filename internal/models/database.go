package models

import (
	"fmt"
	"time"

	"github.com/huangang/mealkiosk/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open builds a gorm connection for the given driver without touching the
// package-level DB. It is shared by the backend and the sqlite local store.
func Open(driver, dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg.Driver, cfg.DSN, logger.Warn)
	if err != nil {
		return err
	}

	// A kiosk must notice an unreachable backend quickly instead of
	// holding a stale pooled connection.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetConnMaxIdleTime(time.Minute)
		sqlDB.SetMaxOpenConns(10)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate creates or updates every backend table on db.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Group{},
		&MealRecord{},
		&AdminUser{},
		&SystemSettings{},
		&DailySummary{},
		&SystemLog{},
		&JobLock{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates default data if not exists
func SeedDefaultData() error {
	return Seed(DB)
}

// Seed inserts the settings singleton and the stock groups when missing.
func Seed(db *gorm.DB) error {
	var settingsCount int64
	db.Model(&SystemSettings{}).Where("id = ?", SystemSettingsID).Count(&settingsCount)
	if settingsCount == 0 {
		settings := SystemSettings{
			ID:                 SystemSettingsID,
			BreakfastStartTime: "06:00",
			BreakfastDeadline:  "09:30",
			LunchStartTime:     "10:00",
			LunchDeadline:      "13:30",
		}
		if err := db.Create(&settings).Error; err != nil {
			return err
		}
	}

	defaultGroups := []Group{
		{Name: "staff", DisplayName: "Staff", Color: "#1677ff", SortOrder: 1, Active: true},
		{Name: "contractor", DisplayName: "Contractor", Color: "#fa8c16", SortOrder: 2, Active: true},
		{Name: "visitor", DisplayName: "Visitor", Color: "#52c41a", SortOrder: 3, Active: true},
	}

	for _, g := range defaultGroups {
		var count int64
		db.Model(&Group{}).Where("name = ?", g.Name).Count(&count)
		if count == 0 {
			if err := db.Create(&g).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
