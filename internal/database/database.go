package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mantonx/sonar/internal/config"
	"github.com/mantonx/sonar/internal/logger"
)

var db *gorm.DB

// Initialize sets up the database connection from the loaded configuration.
// Schema migration is owned by the individual modules.
func Initialize() error {
	cfg := config.Get()

	var err error
	switch cfg.Database.Type {
	case "postgres":
		db, err = connectPostgres(&cfg.Database)
	case "sqlite":
		db, err = connectSQLite(&cfg.Database)
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", cfg.Database.Type, err)
	}

	logger.Info("Database initialized (%s)", cfg.Database.Type)
	return nil
}

func connectPostgres(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port)

	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: queryLogger(cfg),
	})
}

func connectSQLite(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.DataDir, "sonar.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: queryLogger(cfg),
	})
}

func queryLogger(cfg *config.DatabaseConfig) gormlogger.Interface {
	if cfg.LogQueries {
		return gormlogger.Default.LogMode(gormlogger.Info)
	}
	return gormlogger.Default.LogMode(gormlogger.Warn)
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// SetDB overrides the database instance. For use in tests only.
func SetDB(override *gorm.DB) {
	db = override
}
