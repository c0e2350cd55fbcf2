package gamelog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) gamelog.GameLog {
	t.Helper()

	body, errRead := os.ReadFile(filepath.Join("testdata", "log_3094861.json"))
	require.NoError(t, errRead)

	log, errDecode := gamelog.Decode(body)
	require.NoError(t, errDecode)

	return log
}

func TestDecode(t *testing.T) {
	log := loadFixture(t)

	require.NoError(t, log.Validate())
	require.Equal(t, int64(3094861), log.ID)
	require.Equal(t, "cp_gullywash_final1", log.Info.Map)
	require.Equal(t, 600, log.Length)
	require.Len(t, log.Players, 4)
	require.Equal(t, gamelog.RED, log.Players["[U:1:1001]"].Team)
	require.Equal(t, gamelog.BLU, log.Players["[U:1:2001]"].Team)
	require.Equal(t, 600, log.Players["[U:1:1001]"].TotalTime())
	require.Equal(t, gamelog.Soldier, log.Players["[U:1:1001]"].ClassStats[0].Class)
	require.Equal(t, gamelog.Undefined, log.Players["[U:1:2002]"].ClassStats[2].Class)
	require.Equal(t, 5, log.Players["[U:1:1002]"].UberTypes[gamelog.Uber])
	require.Equal(t, 1, log.Players["[U:1:1002]"].UberTypes[gamelog.Kritzkrieg])
	require.Equal(t, 6, log.ClassKills["[U:1:1001]"][gamelog.Sniper])
	require.Equal(t, "rocket", log.Names["[U:1:1001]"])

	red, blue, errScores := log.Scores()
	require.NoError(t, errScores)
	require.Equal(t, 5, red)
	require.Equal(t, 3, blue)
}

func TestDecodeEvents(t *testing.T) {
	log := loadFixture(t)

	require.Len(t, log.Rounds, 2)

	events := log.Rounds[0].Events
	require.Len(t, events, 5)
	require.Equal(t, gamelog.EventCharge, events[0].Kind)
	require.Equal(t, gamelog.Uber, events[0].Medigun)
	require.Equal(t, gamelog.BLU, events[0].Team)
	require.Equal(t, gamelog.EventDrop, events[1].Kind)
	require.Equal(t, 42, events[1].Time)
	require.Equal(t, gamelog.EventMedicDeath, events[2].Kind)
	require.Equal(t, "[U:1:1001]", events[2].Killer)
	require.Equal(t, gamelog.EventPointCap, events[3].Kind)
	require.Equal(t, 3, events[3].Point)
	require.Equal(t, gamelog.EventUnknown, events[4].Kind)
	require.Equal(t, gamelog.Kritzkrieg, log.Rounds[1].Events[0].Medigun)
}

func TestValidate(t *testing.T) {
	log := loadFixture(t)

	noID := log
	noID.ID = 0
	require.ErrorIs(t, noID.Validate(), gamelog.ErrNoID)

	noPlayers := log
	noPlayers.Players = nil
	require.ErrorIs(t, noPlayers.Validate(), gamelog.ErrNoPlayers)

	noDate := log
	noDate.Info.Date = 0
	require.ErrorIs(t, noDate.Validate(), gamelog.ErrNoTimestamp)

	noScores := log
	noScores.Teams.Blue = nil
	_, _, errScores := noScores.Scores()
	require.ErrorIs(t, errScores, gamelog.ErrNoScores)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := gamelog.Decode([]byte(`{"id": "nope"`))
	require.ErrorIs(t, err, gamelog.ErrDecode)
}

func TestTeamPlayers(t *testing.T) {
	log := loadFixture(t)

	require.Equal(t, []string{"[U:1:1001]", "[U:1:1002]"}, log.TeamPlayers(gamelog.RED))
	require.Equal(t, []string{"[U:1:2001]", "[U:1:2002]"}, log.TeamPlayers(gamelog.BLU))
	require.Empty(t, log.TeamPlayers(gamelog.UNASSIGNED))
	require.Len(t, log.PlayerIDs(), 4)
}

func TestParseClass(t *testing.T) {
	for _, tc := range []struct {
		name  string
		class gamelog.Class
	}{
		{"scout", gamelog.Scout},
		{"heavyweapons", gamelog.Heavy},
		{"heavy", gamelog.Heavy},
		{"demoman", gamelog.Demo},
		{"Medic", gamelog.Medic},
		{"undefined", gamelog.Undefined},
		{"civilian", gamelog.Undefined},
	} {
		require.Equal(t, tc.class, gamelog.ParseClass(tc.name), tc.name)
	}

	require.Equal(t, gamelog.RED, gamelog.BLU.Opponent())
	require.Equal(t, gamelog.UNASSIGNED, gamelog.UNASSIGNED.Opponent())
}
