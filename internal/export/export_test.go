package export_test

import (
	"testing"
	"time"

	"github.com/leighmacdonald/rglstats/internal/batch"
	"github.com/leighmacdonald/rglstats/internal/export"
	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/internal/linker"
	"github.com/leighmacdonald/rglstats/internal/rating"
	"github.com/leighmacdonald/rglstats/internal/stats"
	"github.com/leighmacdonald/rglstats/internal/test"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func TestMatchups(t *testing.T) {
	row := stats.PlayerClassStat{
		ClassKills:   map[gamelog.Class]int{gamelog.Scout: 2, gamelog.Medic: 1},
		ClassDeaths:  map[gamelog.Class]int{gamelog.Scout: 1},
		ClassAssists: map[gamelog.Class]int{gamelog.Sniper: 0},
	}

	require.Equal(t, []export.Matchup{
		{Versus: gamelog.Scout, Kills: 2, Deaths: 1},
		{Versus: gamelog.Medic, Kills: 1},
	}, export.Matchups(row))

	require.Empty(t, export.Matchups(stats.PlayerClassStat{}))
}

func exportLog() gamelog.GameLog {
	return gamelog.GameLog{
		ID:     3094861,
		Length: 1200,
		Players: map[string]gamelog.Player{
			"[U:1:1001]": {
				Team:       gamelog.RED,
				Kills:      10,
				ClassStats: []gamelog.ClassStat{{Class: gamelog.Soldier, TotalTime: 1200, Kills: 10}},
			},
			"[U:1:2001]": {
				Team:       gamelog.BLU,
				Deaths:     10,
				ClassStats: []gamelog.ClassStat{{Class: gamelog.Medic, TotalTime: 1200, Deaths: 10}},
			},
		},
		Names: map[string]string{"[U:1:1001]": "red soldier", "[U:1:2001]": "blue medic"},
		ClassKills: map[string]gamelog.ClassCounts{
			"[U:1:1001]": {gamelog.Medic: 10},
		},
		ClassDeaths: map[string]gamelog.ClassCounts{
			"[U:1:2001]": {gamelog.Soldier: 10},
		},
		Info:  gamelog.Info{Map: "cp_process_final", Date: time.Date(2024, 2, 10, 20, 0, 0, 0, time.UTC).Unix()},
		Teams: gamelog.Teams{Red: &gamelog.TeamSummary{Score: 5}, Blue: &gamelog.TeamSummary{Score: 3}},
	}
}

func TestExport(t *testing.T) {
	conn := test.Database(t)
	ctx := t.Context()

	normalizer := identity.NewSteamNormalizer()
	names := identity.NewNames()
	stream := gamestream.FromSlice([]gamelog.GameLog{exportLog()})

	runner := batch.New(2, nil)

	logStats, summary, errExtract := runner.ExtractAll(ctx, stream, stats.New(normalizer))
	require.NoError(t, errExtract)
	require.Len(t, logStats, 1)

	for _, entry := range logStats {
		names.Observe(normalizer, entry.Log)
	}

	ratings, _ := runner.Rate(stream, normalizer, rating.DefaultConfig())

	exporter := export.New(conn)
	input := export.Input{
		Stats:   logStats,
		Summary: summary,
		Ratings: ratings,
		Links:   []linker.Candidate{{MatchID: 42, LogID: 3094861}},
		Names:   names,
	}

	run, errExport := exporter.Export(ctx, input)
	require.NoError(t, errExport)
	require.Equal(t, 1, run.Logs)

	// Exporting the same results again replaces rows instead of failing on duplicates.
	_, errAgain := exporter.Export(ctx, input)
	require.NoError(t, errAgain)

	runs, errRuns := exporter.Runs(ctx, 10)
	require.NoError(t, errRuns)
	require.GreaterOrEqual(t, len(runs), 2)

	winner := steamid.New("[U:1:1001]")
	stored, errStored := exporter.StoredRating(ctx, winner)
	require.NoError(t, errStored)
	require.InDelta(t, ratings[winner].Mu, stored.Mu, 1e-9)
	require.Equal(t, 1, stored.Games)

	rowCount, errCount := conn.GetCount(ctx, conn.Builder().
		Select("count(*)").
		From("player_class_stats").
		Where("log_id = ?", 3094861))
	require.NoError(t, errCount)
	require.Equal(t, int64(2), rowCount)

	matchups, errMatchups := conn.GetCount(ctx, conn.Builder().
		Select("count(*)").
		From("class_matchups").
		Where("log_id = ?", 3094861))
	require.NoError(t, errMatchups)
	require.Equal(t, int64(2), matchups)

	named, errNamed := conn.GetCount(ctx, conn.Builder().
		Select("count(*)").
		From("players").
		Where("name = ?", "red soldier"))
	require.NoError(t, errNamed)
	require.Equal(t, int64(1), named)

	// Without observed names the rendered steam id is stored.
	input.Names = nil
	_, errUnnamed := exporter.Export(ctx, input)
	require.NoError(t, errUnnamed)

	medic := steamid.New("[U:1:2001]")
	fallback, errFallback := conn.GetCount(ctx, conn.Builder().
		Select("count(*)").
		From("players").
		Where("steam_id = ? AND name = ?", medic.Int64(), medic.String()))
	require.NoError(t, errFallback)
	require.Equal(t, int64(1), fallback)
}
