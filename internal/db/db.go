// Package db opens the relational store and prepares its schema.
package db

import (
	"fmt"
	"regexp"
	"time"

	"github.com/diewo77/go-faktur/internal/config"
	applog "github.com/diewo77/go-faktur/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 10

// Dialector picks the gorm driver for cfg.Driver.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	dsn := cfg.DSN()
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres", "":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: postgres, sqlite, mysql, sqlserver)", cfg.Driver)
	}
}

// GormConfig returns the shared gorm settings. Driver errors are translated
// so duplicate keys surface as gorm.ErrDuplicatedKey on every dialect.
func GormConfig(debug bool) *gorm.Config {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}
}

// Connect opens the store, retrying while the server comes up, and tunes the pool.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	var conn *gorm.DB
	for i := 0; i < connectAttempts; i++ {
		conn, err = gorm.Open(dialector, GormConfig(cfg.Debug))
		if err == nil {
			break
		}
		applog.L.Warn("database not ready, retrying", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		sqlDB.SetConnMaxIdleTime(2 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	applog.L.Info("database connected", "driver", cfg.Driver, "dsn", MaskDSN(cfg.DSN()))
	return conn, nil
}

var (
	kvPassword  = regexp.MustCompile(`(password=)([^\s&]+)`)
	urlPassword = regexp.MustCompile(`^([a-z]+://[^:/@]+:)([^@]+)(@)`)
	myPassword  = regexp.MustCompile(`^([^:@/]+:)([^@]+)(@tcp\()`)
)

// MaskDSN hides the password in key=value, URL and MySQL style DSNs.
func MaskDSN(dsn string) string {
	dsn = kvPassword.ReplaceAllString(dsn, `${1}***`)
	dsn = urlPassword.ReplaceAllString(dsn, `${1}***${3}`)
	return myPassword.ReplaceAllString(dsn, `${1}***${3}`)
}
