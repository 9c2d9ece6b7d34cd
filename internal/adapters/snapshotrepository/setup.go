package snapshotrepository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Amund211/blitzstats/internal/adapters/database"
	"github.com/Amund211/blitzstats/internal/config"
)

// NewSnapshotRepositoryOrStub connects to and migrates postgres, or returns the in-memory stub when configured.
// The returned func releases the database connection.
func NewSnapshotRepositoryOrStub(ctx context.Context, conf config.Config, logger *slog.Logger) (SnapshotRepository, func(), error) {
	if conf.InMemoryStorage() {
		logger.WarnContext(ctx, "Using in-memory snapshot repository, sessions are lost on restart")
		return NewStubSnapshotRepository(), func() {}, nil
	}

	logger.InfoContext(ctx, "Initializing database connection")
	db, err := database.NewCloudsqlPostgresDatabase(conf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	schemaName := database.GetSchemaName(!conf.IsProduction())

	err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err.Error())
		}
	}

	return NewPostgresSnapshotRepository(db, schemaName), closeDB, nil
}
