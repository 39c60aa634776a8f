package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/go-faktur/internal/config"
	applog "github.com/diewo77/go-faktur/internal/logger"
	"github.com/diewo77/go-faktur/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// requiredTables must exist once Migrate returns.
var requiredTables = []string{"users", "companies", "customers", "products", "invoices", "invoice_lines"}

// Migrate prepares the schema. With useSQL on a postgres store the embedded
// SQL migrations run through golang-migrate; otherwise gorm AutoMigrate is used.
func Migrate(conn *gorm.DB, cfg config.DatabaseConfig, useSQL bool) error {
	if useSQL && (cfg.Driver == "postgres" || cfg.Driver == "") {
		if err := runSQLMigrations(cfg.URL()); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if useSQL {
			applog.L.Warn("sql migrations only target postgres, falling back to AutoMigrate", "driver", cfg.Driver)
		}
		if err := AutoMigrate(conn); err != nil {
			return err
		}
	}

	// sanity check: ensure core tables exist
	for _, table := range requiredTables {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or updates every model table.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range models.All() {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// runSQLMigrations applies the embedded migrations against a postgres URL.
func runSQLMigrations(url string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
