package database_test

import (
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leighmacdonald/rglstats/internal/database"
	"github.com/leighmacdonald/rglstats/internal/test"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationAction(t *testing.T) {
	for name, want := range map[string]database.MigrationAction{
		"up":       database.MigrateUp,
		"down":     database.MigrateDn,
		"up_one":   database.MigrateUpOne,
		"down_one": database.MigrateDownOne,
	} {
		action, err := database.ParseMigrationAction(name)
		require.NoError(t, err)
		require.Equal(t, want, action)
	}

	_, err := database.ParseMigrationAction("sideways")
	require.ErrorIs(t, err, database.ErrUnknownAction)

	require.Equal(t, "down_one", database.MigrateDownOne.String())
	require.Equal(t, "unknown", database.MigrationAction(99).String())
}

func TestDBErr(t *testing.T) {
	require.NoError(t, database.DBErr(nil))
	require.ErrorIs(t, database.DBErr(pgx.ErrNoRows), database.ErrNoResult)
	require.ErrorIs(t, database.DBErr(&pgconn.PgError{Code: pgerrcode.UniqueViolation}), database.ErrDuplicate)
}

func TestMigrateAndQuery(t *testing.T) {
	conn := test.Database(t)
	ctx := t.Context()

	// Already migrated on connect, a second up is a no-op.
	require.NoError(t, conn.Migrate(database.MigrateUp))
	require.ErrorIs(t, conn.Migrate(database.MigrationAction(99)), database.ErrUnknownAction)

	current, errVersion := conn.Version()
	require.NoError(t, errVersion)
	require.Equal(t, database.SchemaVersion{Version: 1}, current)

	require.NoError(t, conn.ExecInsertBuilder(ctx, conn.Builder().
		Insert("players").
		Columns("steam_id", "name", "updated_on").
		Values(int64(76561198006890901), "player", "2024-01-01T00:00:00Z")))

	count, errCount := conn.GetCount(ctx, conn.Builder().Select("count(*)").From("players"))
	require.NoError(t, errCount)
	require.Equal(t, int64(1), count)

	errDup := conn.ExecInsertBuilder(ctx, conn.Builder().
		Insert("players").
		Columns("steam_id", "name", "updated_on").
		Values(int64(76561198006890901), "player", "2024-01-01T00:00:00Z"))
	require.ErrorIs(t, database.DBErr(errDup), database.ErrDuplicate)

	var name string
	errRow := conn.QueryRow(ctx, "SELECT name FROM players WHERE steam_id = $1", int64(1))
	require.ErrorIs(t, database.DBErr(errRow.Scan(&name)), database.ErrNoResult)

	require.NoError(t, conn.TruncateTable(ctx, "players"))
}
