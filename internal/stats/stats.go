// Package stats derives per player, per class statistics from a single log.
package stats

import (
	"fmt"
	"math"

	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

type Key struct {
	PlayerID steamid.SteamID
	Class    gamelog.Class
}

// PlayerClassStat is the slice of a players log spent on a single class. Counters that the log only
// records for the player as a whole are apportioned by the share of time spent on the class.
type PlayerClassStat struct {
	LogID        int64
	PlayerID     steamid.SteamID
	NativeID     string
	Team         gamelog.Team
	Class        gamelog.Class
	Kills        int
	Deaths       int
	Assists      int
	Damage       int
	TotalTime    int
	PlaytimePct  int
	Heal         int
	HealReceived int
	DamageTaken  int
	MedsDropped  int
	ClassKills   map[gamelog.Class]int
	ClassDeaths  map[gamelog.Class]int
	ClassAssists map[gamelog.Class]int

	// Medic
	Drops            int
	Ubers            int
	MidFightEligible bool
	MidEscapes       int
	MidDeaths        int

	// Sniper
	HeadshotsHit int

	// Spy
	Backstabs int
}

type Extractor struct {
	normalizer identity.Normalizer
}

func New(normalizer identity.Normalizer) *Extractor {
	return &Extractor{normalizer: normalizer}
}

// Extract builds a stat row for every player and class with recorded time. Nothing is retained
// between calls.
//
// Time spent on an undefined class still counts toward the player's total, so the rows of such a
// player cover less than their full time and their fractions sum to below one.
func (e *Extractor) Extract(log gamelog.GameLog) (map[Key]PlayerClassStat, error) {
	if len(log.Players) == 0 {
		return nil, fmt.Errorf("%w: log %d", gamelog.ErrNoPlayers, log.ID)
	}

	var (
		results     = map[Key]PlayerClassStat{}
		medsDropped = MedsDropped(log)
		eligible    = MidFightEligible(log.Info.Map)
	)

	for _, native := range log.PlayerIDs() {
		player := log.Players[native]

		playerTime := player.TotalTime()
		if playerTime <= 0 {
			continue
		}

		sid, errSID := e.normalizer.Normalize(native)
		if errSID != nil {
			return nil, fmt.Errorf("log %d: %w", log.ID, errSID)
		}

		for _, classStat := range player.ClassStats {
			if !classStat.Class.Valid() || classStat.TotalTime <= 0 {
				continue
			}

			fraction := float64(classStat.TotalTime) / float64(playerTime)

			stat := PlayerClassStat{
				LogID:        log.ID,
				PlayerID:     sid,
				NativeID:     native,
				Team:         player.Team,
				Class:        classStat.Class,
				Kills:        classStat.Kills,
				Deaths:       classStat.Deaths,
				Assists:      classStat.Assists,
				Damage:       classStat.Damage,
				TotalTime:    classStat.TotalTime,
				PlaytimePct:  apportion(100, fraction),
				Heal:         apportion(player.Heal, fraction),
				HealReceived: apportion(player.HealReceived, fraction),
				DamageTaken:  apportion(player.DamageTaken, fraction),
				MedsDropped:  apportion(medsDropped[native], fraction),
				ClassKills:   apportionCounts(log.ClassKills[native], fraction),
				ClassDeaths:  apportionCounts(log.ClassDeaths[native], fraction),
				ClassAssists: apportionCounts(log.ClassKillAssists[native], fraction),
			}

			switch classStat.Class {
			case gamelog.Medic:
				stat.Drops = player.Drops
				stat.Ubers = player.UberTypes[gamelog.Uber]
				stat.MidFightEligible = eligible
				stat.MidEscapes, stat.MidDeaths = MidFight(log, native)
			case gamelog.Sniper:
				stat.HeadshotsHit = player.HeadshotsHit
			case gamelog.Spy:
				stat.Backstabs = player.Backstabs
			}

			results[Key{PlayerID: sid, Class: classStat.Class}] = stat
		}
	}

	return results, nil
}

// apportion scales a whole player counter by fraction, rounding half to even.
func apportion(value int, fraction float64) int {
	return int(math.RoundToEven(float64(value) * fraction))
}

func apportionCounts(counts gamelog.ClassCounts, fraction float64) map[gamelog.Class]int {
	out := map[gamelog.Class]int{}

	for class, value := range counts {
		if !class.Valid() {
			continue
		}

		if share := apportion(value, fraction); share != 0 {
			out[class] = share
		}
	}

	return out
}
