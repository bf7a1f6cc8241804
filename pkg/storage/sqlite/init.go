// Package sqlite persists coordinator run records in an SQLite database.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const migrationsTable = "fedkm_migrations"

var (
	ErrDBConnection = errors.New("database connection error")
	ErrMigration    = errors.New("database migration error")
	ErrDBQuery      = errors.New("database query error")
	ErrDBScan       = errors.New("database scan error")
)

//go:embed migrations/*.sql
var migrations embed.FS

type Database struct {
	*sql.DB
}

// NewDatabase opens the database at path and applies pending migrations.
// Path may be ":memory:".
func NewDatabase(path string) (*Database, error) {
	db, err := sql.Open(dataset.SQLiteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}
	// Every in-memory connection is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	database := &Database{DB: db}
	if err := database.Migrate(); err != nil {
		db.Close()

		return nil, err
	}

	return database, nil
}

func (db *Database) Migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	return nil
}
