package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/models"
)

// Driver names accepted in database URLs.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Dialector resolves the gorm dialector for a database URL. Supported forms are
// postgres://, postgresql://, mysql://<go-sql-driver dsn>, sqlite://<path> and file: URIs.
func Dialector(url string) (gorm.Dialector, string, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, "", fmt.Errorf("database url must not be empty")
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return postgres.Open(trimmed), DriverPostgres, nil
	case strings.HasPrefix(lower, "mysql://"):
		return mysql.Open(mysqlDSN(trimmed[len("mysql://"):])), DriverMySQL, nil
	case strings.HasPrefix(lower, "sqlite://"):
		path := trimmed[len("sqlite://"):]
		if path == "" {
			return nil, "", fmt.Errorf("sqlite path must not be empty")
		}
		return sqlite.Open(path), DriverSQLite, nil
	case strings.HasPrefix(lower, "file:"):
		return sqlite.Open(trimmed), DriverSQLite, nil
	default:
		return nil, "", fmt.Errorf("unsupported database url scheme")
	}
}

// Connect opens the database described by url.
func Connect(url string) (*gorm.DB, error) {
	dialector, driver, err := Dialector(url)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func mysqlDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}
