// Package migration applies versioned SQL migrations with golang-migrate.
//
// Migration files live in an fs.FS (usually embedded) and follow the
// golang-migrate naming pattern VERSION_name.up.sql / VERSION_name.down.sql:
//
//	//go:embed migrations/*.sql
//	var migrationsFS embed.FS
//
//	err := migration.MigrateUp(gormDB, migrationsFS, "migrations", migration.Postgres)
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// DriverFunc creates a migrate database driver from sql.DB.
type DriverFunc func(*sql.DB) (database.Driver, error)

// Postgres is the DriverFunc for PostgreSQL over pgx/v5, the same driver
// the GORM postgres dialector uses.
func Postgres(db *sql.DB) (database.Driver, error) {
	return pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
}

// MigrateUp runs all pending versioned migrations from fsys.
// Returns nil if there are no new migrations to apply.
func MigrateUp(gormDB *gorm.DB, fsys fs.FS, path string, driverFunc DriverFunc) error {
	m, err := newMigrator(gormDB, fsys, path, driverFunc)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty flag.
// A database without any applied migration reports version 0.
func MigrateVersion(gormDB *gorm.DB, fsys fs.FS, path string, driverFunc DriverFunc) (version uint, dirty bool, err error) {
	m, err := newMigrator(gormDB, fsys, path, driverFunc)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Versions lists the migration versions available in fsys, in order.
func Versions(fsys fs.FS, path string) ([]uint, error) {
	source, err := iofs.New(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	defer source.Close()

	v, err := source.First()
	if err != nil {
		return nil, fmt.Errorf("read first migration: %w", err)
	}
	versions := []uint{v}
	for {
		next, err := source.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return versions, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read migration after %d: %w", v, err)
		}
		versions = append(versions, next)
		v = next
	}
}

// newMigrator creates a golang-migrate instance backed by fsys.
// Callers must NOT call m.Close(): it would close the shared sql.DB.
func newMigrator(gormDB *gorm.DB, fsys fs.FS, path string, driverFunc DriverFunc) (*migrate.Migrate, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	driver, err := driverFunc(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	source, err := iofs.New(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "database", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
