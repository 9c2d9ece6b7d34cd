package snapshotrepository

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/Amund211/blitzstats/internal/adapters/database"
	"github.com/Amund211/blitzstats/internal/domain"
	"github.com/Amund211/blitzstats/internal/domaintest"
)

func newPostgresSnapshotRepository(t *testing.T, db *sqlx.DB, schema string) *PostgresSnapshotRepository {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db.MustExec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schema)))

	migrator := database.NewDatabaseMigrator(db, logger)

	err := migrator.Migrate(t.Context(), schema)
	require.NoError(t, err)

	return NewPostgresSnapshotRepository(db, schema)
}

func TestPostgresSnapshotRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping db tests in short mode.")
	}
	t.Parallel()

	ctx := t.Context()
	db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
	require.NoError(t, err)

	// Postgres stores microsecond precision
	now := time.Now().UTC().Truncate(time.Microsecond)

	SCHEMA_NAME := "last_snapshots"
	p := newPostgresSnapshotRepository(t, db, SCHEMA_NAME)

	requireStoredRows := func(t *testing.T, region domain.Region, accountID int) []dbSnapshot {
		t.Helper()

		txx, err := db.Beginx()
		require.NoError(t, err)
		defer txx.Rollback()

		_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(SCHEMA_NAME)))
		require.NoError(t, err)

		var rows []dbSnapshot
		err = txx.SelectContext(ctx, &rows, "SELECT id, region, account_id, queried_at, data_format_version, snapshot_data FROM last_snapshots WHERE region = $1 AND account_id = $2", string(region), accountID)
		require.NoError(t, err)

		require.NoError(t, txx.Commit())
		return rows
	}

	requireEqualSnapshot := func(t *testing.T, expected, actual *domain.PlayerSnapshot) {
		t.Helper()

		require.True(t, expected.Timestamp.Equal(actual.Timestamp))
		actual.Timestamp = expected.Timestamp
		require.Equal(t, expected, actual)
	}

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()

		_, err := p.GetLastSnapshot(ctx, domain.RegionEU, domaintest.NewAccountID(t))
		require.ErrorIs(t, err, domain.ErrSessionNotStarted)
	})

	t.Run("store and get", func(t *testing.T) {
		t.Parallel()

		accountID := domaintest.NewAccountID(t)
		snapshot := domaintest.NewSnapshotBuilder(accountID, now).
			WithClanTag("RDDT").
			WithBattles(1000, 550).
			WithRating(domain.BattleCounters{Battles: 100, Wins: 60}, 12.3, 0).
			WithTankBattles(1, 40).
			WithAchievement("warrior", 2).
			BuildNormalized()

		require.NoError(t, p.StoreLastSnapshot(ctx, snapshot))

		stored, err := p.GetLastSnapshot(ctx, domain.RegionEU, accountID)
		require.NoError(t, err)
		requireEqualSnapshot(t, snapshot, stored)

		rows := requireStoredRows(t, domain.RegionEU, accountID)
		require.Len(t, rows, 1)
		require.Equal(t, DATA_FORMAT_VERSION, rows[0].DataFormatVersion)

		parsed, err := uuid.Parse(rows[0].ID)
		require.NoError(t, err)
		require.Equal(t, uuid.Version(7), parsed.Version())
	})

	t.Run("store overwrites and keeps id", func(t *testing.T) {
		t.Parallel()

		accountID := domaintest.NewAccountID(t)
		first := domaintest.NewSnapshotBuilder(accountID, now).WithBattles(1000, 550).BuildNormalized()
		second := domaintest.NewSnapshotBuilder(accountID, now.Add(time.Hour)).WithBattles(1010, 556).BuildNormalized()

		require.NoError(t, p.StoreLastSnapshot(ctx, first))
		firstRows := requireStoredRows(t, domain.RegionEU, accountID)
		require.Len(t, firstRows, 1)

		require.NoError(t, p.StoreLastSnapshot(ctx, second))
		secondRows := requireStoredRows(t, domain.RegionEU, accountID)
		require.Len(t, secondRows, 1)
		require.Equal(t, firstRows[0].ID, secondRows[0].ID)

		stored, err := p.GetLastSnapshot(ctx, domain.RegionEU, accountID)
		require.NoError(t, err)
		requireEqualSnapshot(t, second, stored)
	})

	t.Run("regions are separate", func(t *testing.T) {
		t.Parallel()

		accountID := domaintest.NewAccountID(t)
		eu := domaintest.NewSnapshotBuilder(accountID, now).WithBattles(1000, 550).BuildNormalized()
		asia := domaintest.NewSnapshotBuilder(accountID, now).WithRegion(domain.RegionASIA).WithBattles(300, 100).BuildNormalized()

		require.NoError(t, p.StoreLastSnapshot(ctx, eu))
		require.NoError(t, p.StoreLastSnapshot(ctx, asia))

		stored, err := p.GetLastSnapshot(ctx, domain.RegionEU, accountID)
		require.NoError(t, err)
		requireEqualSnapshot(t, eu, stored)

		stored, err = p.GetLastSnapshot(ctx, domain.RegionASIA, accountID)
		require.NoError(t, err)
		requireEqualSnapshot(t, asia, stored)
	})

	t.Run("nil snapshot", func(t *testing.T) {
		t.Parallel()

		err := p.StoreLastSnapshot(ctx, nil)
		require.ErrorIs(t, err, domain.ErrIncompleteSnapshot)
	})
}
