package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// schemaVersionTable records which kv schema files have been applied.
const schemaVersionTable = "kv_schema_migrations"

//go:embed migrations/*.sql
var schemaFiles embed.FS

// migrateKV applies the embedded kv schema to the database at dbPath and
// returns the version it ends at. The migrator gets its own connection
// because closing it closes the database handle.
func migrateKV(dbPath string) (uint, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open %s for schema update: %w", dbPath, err)
	}
	defer conn.Close()

	files, err := iofs.New(schemaFiles, "migrations")
	if err != nil {
		return 0, fmt.Errorf("load kv schema files: %w", err)
	}
	target, err := sqlite.WithInstance(conn, &sqlite.Config{MigrationsTable: schemaVersionTable})
	if err != nil {
		return 0, fmt.Errorf("prepare %s: %w", dbPath, err)
	}
	m, err := migrate.NewWithInstance("kv-schema", files, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("prepare kv schema update: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply kv schema: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read kv schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("kv schema version %d is dirty, a previous update did not finish", version)
	}
	return version, nil
}
