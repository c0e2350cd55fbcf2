package batch_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leighmacdonald/rglstats/internal/batch"
	"github.com/leighmacdonald/rglstats/internal/format"
	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/leighmacdonald/rglstats/internal/linker"
	"github.com/leighmacdonald/rglstats/internal/rating"
	"github.com/leighmacdonald/rglstats/internal/stats"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var played = time.Date(2024, 2, 10, 20, 0, 0, 0, time.UTC) //nolint:gochecknoglobals

func testLog(logID int64, length int, offset time.Duration) gamelog.GameLog {
	players := map[string]gamelog.Player{}

	for n := range 4 {
		team := gamelog.RED
		if n%2 == 1 {
			team = gamelog.BLU
		}

		players[fmt.Sprintf("[U:1:%d]", n+1)] = gamelog.Player{
			Team: team,
			ClassStats: []gamelog.ClassStat{
				{Class: gamelog.Soldier, TotalTime: length / 2},
				{Class: gamelog.Scout, TotalTime: length / 2},
			},
		}
	}

	return gamelog.GameLog{
		ID:      logID,
		Length:  length,
		Players: players,
		Info:    gamelog.Info{Map: "cp_process_final", Date: played.Add(offset).Unix()},
		Teams: gamelog.Teams{
			Red:  &gamelog.TeamSummary{Score: 3},
			Blue: &gamelog.TeamSummary{Score: 1},
		},
	}
}

func corpus() gamestream.Stream {
	broken := testLog(5, 600, 5*time.Minute)
	broken.Players["junk"] = gamelog.Player{
		Team:       gamelog.RED,
		ClassStats: []gamelog.ClassStat{{Class: gamelog.Pyro, TotalTime: 10}},
	}

	logs := []gamelog.GameLog{
		testLog(3, 600, 3*time.Minute),
		testLog(1, 600, time.Minute),
		testLog(4, 60, 4*time.Minute),
		broken,
	}

	for i := int64(10); i < 40; i++ {
		logs = append(logs, testLog(i, 900, time.Duration(i)*time.Minute))
	}

	return gamestream.FromSlice(logs)
}

func TestExtractAll(t *testing.T) {
	runner := batch.New(4, batch.NewCollector())

	results, summary, err := runner.ExtractAll(context.Background(), corpus(), stats.New(identity.NewSteamNormalizer()))
	require.NoError(t, err)
	require.Equal(t, batch.Summary{Processed: 33, Skipped: 1}, summary)
	require.Len(t, results, 33)

	for i := 1; i < len(results); i++ {
		require.Less(t, results[i-1].Log.ID, results[i].Log.ID)
	}

	require.Equal(t, format.Fours, results[0].Format)
	require.Len(t, results[0].Rows, 8)
	require.Equal(t, gamelog.Scout, results[0].Rows[0].Class)
	require.Equal(t, gamelog.Soldier, results[0].Rows[1].Class)

	collector := runner.Collector()
	require.InDelta(t, 33.0, testutil.ToFloat64(collector.LogCounter.With(prometheus.Labels{"operation": "extract", "result": "processed"})), 0.1)
	require.InDelta(t, 1.0, testutil.ToFloat64(collector.LogCounter.With(prometheus.Labels{"operation": "extract", "result": "skipped"})), 0.1)
	require.InDelta(t, 33.0*4, testutil.ToFloat64(collector.RowCounter.With(prometheus.Labels{"class": "scout"})), 0.1)
}

func TestLinkAll(t *testing.T) {
	var (
		rosters = league.NewRosters()
		date    = played
	)

	for n := 1; n <= 4; n++ {
		team := 1
		if n%2 == 0 {
			team = 2
		}

		rosters.Add(team, steamid.New(fmt.Sprintf("[U:1:%d]", n)))
	}

	rosters.Formats[1] = format.Fours

	config := linker.DefaultConfig()
	config.Location = time.UTC

	link := linker.New([]league.OfficialMatch{
		{ID: 77, Date: &date, Maps: []string{"cp_process_final"}, Team1: 1, Team2: 2},
	}, rosters, identity.NewSteamNormalizer(), config)

	runner := batch.New(3, nil)

	candidates, summary, err := runner.LinkAll(context.Background(), corpus(), link)
	require.NoError(t, err)
	require.Equal(t, batch.Summary{Processed: 32, Skipped: 1, Filtered: 1}, summary)
	require.Len(t, candidates, 32)
	require.Equal(t, linker.Candidate{MatchID: 77, LogID: 1}, candidates[0])
	require.InDelta(t, 32.0, testutil.ToFloat64(runner.Collector().LinkCounter), 0.1)
}

func TestRate(t *testing.T) {
	runner := batch.New(2, nil)

	ratings, summary := runner.Rate(corpus(), identity.NewSteamNormalizer(), rating.DefaultConfig())
	require.Equal(t, batch.Summary{Processed: 33, Skipped: 1}, summary)
	require.Len(t, ratings, 4)
	require.Greater(t, ratings[steamid.New("[U:1:1]")].Mu, ratings[steamid.New("[U:1:2]")].Mu)
	require.InDelta(t, 4.0, testutil.ToFloat64(runner.Collector().RatedPlayers), 0.1)
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := batch.New(1, nil).ExtractAll(ctx, corpus(), stats.New(identity.NewSteamNormalizer()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteTextfile(t *testing.T) {
	runner := batch.New(2, nil)

	_, _, err := runner.ExtractAll(context.Background(), corpus(), stats.New(identity.NewSteamNormalizer()))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rglstats.prom")
	require.NoError(t, runner.Collector().WriteTextfile(path))

	body, errRead := os.ReadFile(path)
	require.NoError(t, errRead)
	require.Contains(t, string(body), "rglstats_logs_total")
	require.Contains(t, string(body), "rglstats_class_stats_total")

	require.NoError(t, runner.Collector().WriteTextfile(""))
}
