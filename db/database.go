package db

import (
	"fmt"
	"os"
	"path/filepath"

	"fleetinventory/config"
	"fleetinventory/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDatabase opens the configured database, migrates it and stores the handle in DB.
func InitDatabase(cfg *config.Config, log *zap.Logger) error {
	gdb, err := Open(cfg)
	if err != nil {
		return err
	}
	log.Info("Database connected", zap.String("driver", cfg.DB.Driver))

	if err := Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	DB = gdb
	return nil
}

func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		if err := ensureSQLiteDir(cfg.DB.Path); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(cfg.DSN())
	}

	gdb, err := gorm.Open(dialector, Options(gormlogger.Default.LogMode(cfg.DB.LogLevel)))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	return gdb, nil
}

// Options returns the gorm configuration every connection uses. TranslateError
// turns driver constraint errors into gorm.ErrDuplicatedKey.
func Options(l gormlogger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:         l,
		TranslateError: true,
	}
}

func ensureSQLiteDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	return nil
}

// Migrate creates or updates every table, including the partial unique index on
// delivery numbers of completed orders and the (vehicle, repaired_at) unique index.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{}, &models.UserProfile{}, &models.APIToken{},
		&models.Supplier{}, &models.Product{}, &models.Stock{},
		&models.Order{}, &models.OrderItem{}, &models.Invoice{},
		&models.Vehicle{}, &models.Driver{},
		&models.ReparationProduct{}, &models.ReparationProductItem{}, &models.ReparationInvoice{},
	)
}
