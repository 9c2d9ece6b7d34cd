package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var ErrDirtySchema = errors.New("schema is dirty")

type migrator struct {
	db *sqlx.DB

	logger *slog.Logger
}

func NewDatabaseMigrator(db *sqlx.DB, logger *slog.Logger) *migrator {
	return &migrator{
		db:     db,
		logger: logger,
	}
}

// Migrate brings schemaName up to the latest embedded migration, creating the schema if needed
func (m *migrator) Migrate(ctx context.Context, schemaName string) error {
	_, err := m.migrate(ctx, schemaName)
	return err
}

// newMigrateInstance returns an instance bound to conn with search_path set to schemaName
func newMigrateInstance(ctx context.Context, conn *sqlx.Conn, schemaName string) (*migrate.Migrate, error) {
	_, err := conn.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(schemaName)))
	if err != nil {
		return nil, fmt.Errorf("failed to set search path: %w", err)
	}

	migrationSource, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create driver from embedded migrations: %w", err)
	}

	dbDriver, err := postgres.WithConnection(ctx, conn.Conn, &postgres.Config{
		DatabaseName: DB_NAME,
		SchemaName:   schemaName,
	})
	if err != nil {
		migrationSource.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", migrationSource, "postgres", dbDriver)
	if err != nil {
		migrationSource.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return instance, nil
}

// migrate returns the schema version after migrating
func (m *migrator) migrate(ctx context.Context, schemaName string) (uint, error) {
	conn, err := m.db.Connx(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate: failed to connect to db: %w", err)
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(schemaName)))
	if err != nil {
		return 0, fmt.Errorf("migrate: failed to create schema: %w", err)
	}

	instance, err := newMigrateInstance(ctx, conn, schemaName)
	if err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	defer instance.Close()

	m.logger.InfoContext(ctx, "Starting migrations", "schema", schemaName)
	err = instance.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.InfoContext(ctx, "No migrations to run", "schema", schemaName)
	} else if err != nil {
		return 0, fmt.Errorf("migrate: failed to migrate: %w", err)
	}

	version, dirty, err := instance.Version()
	if err != nil {
		return 0, fmt.Errorf("migrate: failed to read version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("migrate: %w at version %d", ErrDirtySchema, version)
	}

	m.logger.InfoContext(ctx, "Migrations completed", "schema", schemaName, "version", version)

	return version, nil
}
