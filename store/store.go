// Package store persists users, chats and messages through GORM.
//
// Errors returned by the stores are AppErrors: database failures are
// translated with database.FromDatabase, and ownership or membership
// violations are FORBIDDEN.
package store

import (
	"context"
	"embed"
	"errors"

	"gorm.io/gorm"

	"github.com/kbukum/easychat/database"
	apperrors "github.com/kbukum/easychat/errors"
)

// Migrations holds the versioned Postgres schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the SQL files.
const MigrationsDir = "migrations"

// Source yields the live database handle. *database.Component satisfies it,
// so stores can be built before the component has started.
type Source interface {
	DB() *database.DB
}

var errNotStarted = errors.New("database not started")

func conn(ctx context.Context, src Source) (*database.DB, *gorm.DB, error) {
	db := src.DB()
	if db == nil {
		return nil, nil, apperrors.DatabaseError(errNotStarted)
	}
	return db, db.WithContext(ctx), nil
}
