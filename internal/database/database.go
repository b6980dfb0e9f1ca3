package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// DB is the global database instance
var DB *gorm.DB

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel string
}

// Connect establishes database connection, runs migrations, and registers
// every table with the tenant scoping layer.
func Connect(cfg Config) error {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	// Configure GORM logger
	var gormLogger logger.Interface
	switch cfg.LogLevel {
	case "silent":
		gormLogger = logger.Default.LogMode(logger.Silent)
	case "error":
		gormLogger = logger.Default.LogMode(logger.Error)
	case "warn":
		gormLogger = logger.Default.LogMode(logger.Warn)
	default:
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB for connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}

	// Connection pool settings. The pool is shared across all tenants; no
	// tenant gets a dedicated connection.
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	DB = db

	// Run auto-migrations
	if err := AutoMigrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := RegisterTables(); err != nil {
		return fmt.Errorf("failed to register tables: %w", err)
	}

	log.Println("Database connected and migrated successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return DB.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.BillingLedgerEntry{},
		&models.Customer{},
		&models.Appointment{},
		&models.Invoice{},
		&models.Conversation{},
		&models.AuditLog{},
		&models.ImpersonationEvent{},
	)
}

// RegisterTables declares every table's scoping shape. A table missing here
// is unreachable through any handle, which is the safe failure mode.
func RegisterTables() error {
	tables := []tenantdb.TableInfo{
		{Name: models.Tenant{}.TableName(), PlatformScoped: true},
		{Name: models.User{}.TableName(), PlatformScoped: true},
		{Name: models.BillingLedgerEntry{}.TableName(), PlatformScoped: true},
		{Name: models.ImpersonationEvent{}.TableName(), PlatformScoped: true},
		{Name: models.Customer{}.TableName(), TenantColumn: "tenant_id"},
		{Name: models.Appointment{}.TableName(), TenantColumn: "tenant_id"},
		{Name: models.Invoice{}.TableName(), TenantColumn: "tenant_id"},
		{Name: models.Conversation{}.TableName(), TenantColumn: "tenant_id"},
		{Name: models.AuditLog{}.TableName(), TenantColumn: "tenant_id"},
	}

	for _, t := range tables {
		if err := tenantdb.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
