// Package database provides the GORM connection used by the chat store:
// connection pooling with startup retry, health checks, transactions,
// error translation into AppErrors, and schema migrations.
//
// Two drivers are supported. PostgreSQL is the production driver and is
// migrated from versioned SQL files through golang-migrate. SQLite serves
// tests and local development and is migrated from the GORM models.
//
//	db := database.NewComponent(cfg.DB, log).
//	    WithMigrations(store.Migrations, store.MigrationsDir).
//	    WithAutoMigrate(store.Models()...)
//	registry.Register(db)
//
// GORM runs with TranslateError enabled, so unique violations from either
// driver surface as gorm.ErrDuplicatedKey and FromDatabase maps them to
// ALREADY_EXISTS.
package database
