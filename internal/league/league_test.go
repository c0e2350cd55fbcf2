package league_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/leighmacdonald/rglstats/internal/format"
	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func TestBuildRosters(t *testing.T) {
	var (
		playerA = steamid.New(76561198006890901)
		playerB = steamid.New(76561198084134027)
	)

	rosters := league.BuildRosters([]league.RosterEntry{
		{PlayerID: playerA, TeamID: 10, RegionID: 40},
		{PlayerID: playerB, TeamID: 10, RegionID: 40},
		{PlayerID: playerA, TeamID: 11, RegionID: 41},
		{PlayerID: playerB, TeamID: 12, RegionID: 99},
	}, map[int]format.Format{40: format.Sixes, 41: format.Highlander})

	members, found := rosters.Roster(10)
	require.True(t, found)
	require.Len(t, members, 2)

	_, missing := rosters.Roster(13)
	require.False(t, missing)

	teamFormat, hasFormat := rosters.Format(11)
	require.True(t, hasFormat)
	require.Equal(t, format.Highlander, teamFormat)

	_, noFormat := rosters.Format(12)
	require.False(t, noFormat)

	matchFormat, ok := rosters.MatchFormat(league.OfficialMatch{Team1: 12, Team2: 10})
	require.True(t, ok)
	require.Equal(t, format.Sixes, matchFormat)

	_, ok = rosters.MatchFormat(league.OfficialMatch{Team1: 12, Team2: 99})
	require.False(t, ok)
}

func TestSnapshotRoundTrip(t *testing.T) {
	var (
		played = time.Date(2023, 11, 14, 21, 0, 0, 0, time.UTC)
		score1 = 3.0
		score2 = 1.5
		path   = filepath.Join(t.TempDir(), "nested", "league.json")
	)

	snapshot := league.Snapshot{
		UpdatedOn: played,
		Seasons:   []league.Season{{ID: 130, Name: "Sixes S13"}},
		Teams:     []league.Team{{ID: 10, Name: "froyotech"}, {ID: 11, Name: "Ascent"}},
		Roster:    []league.RosterEntry{{PlayerID: steamid.New(76561198006890901), TeamID: 10, Joined: &played}},
		Matches: []league.OfficialMatch{
			{ID: 7, Date: &played, Maps: []string{"cp_sunshine"}, Team1: 10, Team2: 11, Team1Score: &score1, Team2Score: &score2},
			{ID: 5, Maps: []string{"koth_product_final"}, Team1: 11, Team2: 10},
			{ID: 7, Date: &played, Maps: []string{"cp_sunshine"}, Team1: 10, Team2: 11},
		},
	}

	require.NoError(t, snapshot.Save(path))

	loaded, errLoad := league.LoadSnapshot(path)
	require.NoError(t, errLoad)
	require.Len(t, loaded.Matches, 3)
	require.Equal(t, snapshot.Roster[0].PlayerID, loaded.Roster[0].PlayerID)
	require.Nil(t, loaded.Matches[1].Date)
	require.InDelta(t, 1.5, *loaded.Matches[0].Team2Score, 0.001)

	unique := loaded.UniqueMatches()
	require.Len(t, unique, 2)
	require.Equal(t, 5, unique[0].ID)
	require.Equal(t, 7, unique[1].ID)
	require.NotNil(t, unique[1].Team1Score)

	require.Equal(t, "Ascent", loaded.TeamNames()[11])

	_, errMissing := league.LoadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, errMissing, league.ErrReadSnapshot)
}

func TestFormatFromName(t *testing.T) {
	for name, want := range map[string]format.Format{
		"Sixes S14":              format.Sixes,
		"NA Highlander Season 9": format.Highlander,
		"Prolander - Season 3":   format.Prolander,
		"NR 6s S2":               format.Sixes,
	} {
		guess, found := league.FormatFromName(name)
		require.True(t, found, name)
		require.Equal(t, want, guess, name)
	}

	_, found := league.FormatFromName("Season 3 Playoffs")
	require.False(t, found)
}

func TestSnapshotRosters(t *testing.T) {
	player := steamid.New(76561198006890901)

	snapshot := league.Snapshot{
		Seasons: []league.Season{{ID: 1, Name: "Sixes S14"}, {ID: 2, Name: "Playoffs"}},
		Roster: []league.RosterEntry{
			{PlayerID: player, TeamID: 10, RegionID: 40, SeasonID: 1},
			{PlayerID: player, TeamID: 11, RegionID: 41, SeasonID: 1},
			{PlayerID: player, TeamID: 12, RegionID: 42, SeasonID: 2},
		},
	}

	rosters := snapshot.Rosters(map[int]format.Format{41: format.Highlander})

	byRegion, _ := rosters.Format(11)
	require.Equal(t, format.Highlander, byRegion)

	bySeason, _ := rosters.Format(10)
	require.Equal(t, format.Sixes, bySeason)

	_, unknown := rosters.Format(12)
	require.False(t, unknown)
	require.Len(t, rosters.Members, 3)
}
