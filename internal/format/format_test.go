package format_test

import (
	"fmt"
	"testing"

	"github.com/leighmacdonald/rglstats/internal/format"
	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/stretchr/testify/require"
)

// makeLog spreads playerSeconds evenly over count players.
func makeLog(length int, count int, playerSeconds int) gamelog.GameLog {
	players := map[string]gamelog.Player{}

	for i := range count {
		seconds := playerSeconds / count
		if i == 0 {
			seconds += playerSeconds % count
		}

		players[fmt.Sprintf("[U:1:%d]", i+1)] = gamelog.Player{
			ClassStats: []gamelog.ClassStat{{Class: gamelog.Scout, TotalTime: seconds}},
		}
	}

	return gamelog.GameLog{ID: 1, Length: length, Players: players}
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name          string
		length        int
		playerSeconds int
		want          format.Format
	}{
		{"density 9", 600, 5400, format.Fours},
		{"just under sixes", 1000, 9999, format.Fours},
		{"sixes lower bound", 1000, 10000, format.Sixes},
		{"sixes", 1800, 21600, format.Sixes},
		{"prolander lower bound", 1000, 12200, format.Prolander},
		{"prolander", 1000, 14000, format.Prolander},
		{"highlander lower bound", 1000, 14200, format.Highlander},
		{"highlander", 1800, 32400, format.Highlander},
		{"zero length", 0, 5000, format.Fours},
		{"negative length", -10, 5000, format.Fours},
	} {
		t.Run(tc.name, func(t *testing.T) {
			log := makeLog(tc.length, 9, tc.playerSeconds)
			require.Equal(t, tc.want, format.Classify(log))
			require.Equal(t, format.Classify(log), format.Classify(log))
			require.Contains(t, format.Formats, format.Classify(log))
		})
	}
}

func TestDensity(t *testing.T) {
	require.InDelta(t, 9.0, format.Density(makeLog(600, 8, 5400)), 0.0001)
	require.InDelta(t, 0.0, format.Density(gamelog.GameLog{Length: 600}), 0.0001)
}

func TestParse(t *testing.T) {
	for _, f := range format.Formats {
		parsed, err := format.Parse(f.String())
		require.NoError(t, err)
		require.Equal(t, f, parsed)
	}

	hl, errHL := format.Parse("HL")
	require.NoError(t, errHL)
	require.Equal(t, format.Highlander, hl)

	_, errUnknown := format.Parse("ultiduo")
	require.ErrorIs(t, errUnknown, format.ErrUnknownFormat)
}

func TestUnmarshalText(t *testing.T) {
	var value format.Format
	require.NoError(t, value.UnmarshalText([]byte("sixes")))
	require.Equal(t, format.Sixes, value)
	require.Error(t, value.UnmarshalText([]byte("bogus")))
}
