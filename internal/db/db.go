package db

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"authgate/internal/config"
	"authgate/internal/logging"
	"authgate/internal/model"
)

// GormConfig translates driver specific unique violations into gorm.ErrDuplicatedKey,
// which the services rely on to settle concurrent registrations. Slow and
// failed statements go to log; bind values are left out so password hashes
// and emails never reach the log.
func GormConfig(log *slog.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.NewSlogLogger(log.With("component", "gorm"), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		}),
	}
}

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), GormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// NewPostgres returns a connected GORM DB instance backed by PostgreSQL.
func NewPostgres(dsn string, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// Open connects using the driver selected in cfg, logging SQL errors through log.
func Open(cfg *config.Config, log *logging.SlogLogger) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return NewPostgres(cfg.DSN(), log.Slog())
	case config.DriverMySQL:
		return NewMySQL(cfg.DSN(), log.Slog())
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}
}

// Models lists every table owned by the service.
func Models() []interface{} {
	return []interface{}{&model.User{}}
}

// mysqlEmailCollation makes email lookups and the unique index exact on MySQL,
// whose default utf8mb4 collations ignore case. SQLite and PostgreSQL already
// compare text byte for byte.
const mysqlEmailCollation = "ALTER TABLE users MODIFY email VARCHAR(255) NOT NULL COLLATE utf8mb4_bin"

// Migrate creates or updates the schema, including the unique indexes the
// credential invariants depend on.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := migrateDialect(db); err != nil {
		return fmt.Errorf("dialect migration: %w", err)
	}
	return nil
}

func migrateDialect(db *gorm.DB) error {
	if db.Dialector.Name() != "mysql" {
		return nil
	}
	return db.Exec(mysqlEmailCollation).Error
}

// Reset drops every table owned by the service.
func Reset(db *gorm.DB) error {
	for _, table := range Models() {
		if err := db.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
