package database

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/kbukum/easychat/component"
	"github.com/kbukum/easychat/database/migration"
	"github.com/kbukum/easychat/logger"
)

// Component wraps DB and implements component.Component for lifecycle management.
type Component struct {
	db  *DB
	cfg Config
	log *logger.Logger

	migrations    fs.FS
	migrationsDir string
	models        []interface{}
}

// NewComponent creates a database component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("database"),
	}
}

// WithMigrations registers the versioned SQL migrations run on Postgres.
func (c *Component) WithMigrations(fsys fs.FS, dir string) *Component {
	c.migrations = fsys
	c.migrationsDir = dir
	return c
}

// WithAutoMigrate registers models for GORM auto-migration. SQLite databases
// are migrated from the models since the SQL migrations are Postgres-only.
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects to the database and runs migrations when enabled.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if !c.cfg.Migrate {
		return nil
	}
	if err := c.migrate(); err != nil {
		return fmt.Errorf("database migrate: %w", err)
	}
	return nil
}

func (c *Component) migrate() error {
	if c.cfg.Driver == DriverPostgres && c.migrations != nil {
		if err := migration.MigrateUp(c.db.GormDB, c.migrations, c.migrationsDir, migration.Postgres); err != nil {
			return err
		}
		version, dirty, err := migration.MigrateVersion(c.db.GormDB, c.migrations, c.migrationsDir, migration.Postgres)
		if err != nil {
			return err
		}
		c.log.Info("Schema migrated", map[string]interface{}{
			"version": version,
			"dirty":   dirty,
		})
		return nil
	}
	if len(c.models) > 0 {
		return c.db.AutoMigrate(c.models...)
	}
	return nil
}

// Stop gracefully closes the database connection.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the database and reports pool usage.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}

	stats := c.db.CheckHealth(ctx)
	if !stats.Connected {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %s", stats.Error),
		}
	}

	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("open=%d in_use=%d idle=%d", stats.OpenConns, stats.InUseConns, stats.IdleConns),
	}
}

// Describe returns infrastructure summary info for the startup log.
func (c *Component) Describe() component.Description {
	name := "PostgreSQL"
	if c.cfg.Driver == DriverSQLite {
		name = "SQLite"
	}
	details := fmt.Sprintf("pool=%d/%d", c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.Migrate {
		details += " migrate=on"
	}
	return component.Description{
		Name:    name,
		Type:    "database",
		Details: details,
	}
}
