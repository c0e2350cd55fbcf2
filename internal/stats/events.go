package stats

import (
	"strings"

	"github.com/leighmacdonald/rglstats/internal/gamelog"
)

// MedsDropped counts, per killer native id, the enemy medics killed while holding a full stock
// medigun charge.
//
// A kill counts when the medic death lines up exactly with the most recent drop event of the
// victims team in the same round. The medigun a player last charged with is tracked for the
// whole log. Players with no recorded charge, or whose last charge names no known medigun, are
// assumed to be on the stock medigun. The source sometimes omits charge events, so this can over
// count for players using other mediguns.
func MedsDropped(log gamelog.GameLog) map[string]int {
	var (
		mediguns = map[string]gamelog.Medigun{}
		dropped  = map[string]int{}
	)

	for _, round := range log.Rounds {
		latestDrop := map[gamelog.Team]gamelog.Event{}

		for _, event := range round.Events {
			switch event.Kind {
			case gamelog.EventCharge:
				mediguns[event.SteamID] = event.Medigun
			case gamelog.EventDrop:
				latestDrop[event.Team] = event
			case gamelog.EventMedicDeath:
				killer, found := log.Players[event.Killer]
				if !found {
					continue
				}

				drop, hasDrop := latestDrop[killer.Team.Opponent()]
				if !hasDrop || drop.SteamID != event.SteamID || drop.Time != event.Time {
					continue
				}

				if !stockCharge(mediguns, drop.SteamID) {
					continue
				}

				dropped[event.Killer]++
			default:
			}
		}
	}

	return dropped
}

func stockCharge(mediguns map[string]gamelog.Medigun, steamID string) bool {
	medigun, charged := mediguns[steamID]

	return !charged || medigun == gamelog.Uber || medigun == gamelog.UnknownMedigun
}

// MidFightEligible reports whether the map has a single contested point at round start.
func MidFightEligible(mapName string) bool {
	mapName = strings.ToLower(mapName)

	return strings.HasPrefix(mapName, "cp_") || strings.HasPrefix(mapName, "koth_")
}

// MidFight counts the rounds a medic survived or died in the opening fight. Only rounds where the
// medic charged or died are considered. The first point capture or death of the medic decides
// the round, and a round with neither is a survival. Ineligible maps always return zero.
func MidFight(log gamelog.GameLog, medic string) (int, int) {
	if !MidFightEligible(log.Info.Map) {
		return 0, 0
	}

	escapes, deaths := 0, 0

	for _, round := range log.Rounds {
		if !medicRound(round, medic) {
			continue
		}

		died := false

		for _, event := range round.Events {
			if event.Kind == gamelog.EventPointCap {
				break
			}

			if event.Kind == gamelog.EventMedicDeath && event.SteamID == medic {
				died = true

				break
			}
		}

		if died {
			deaths++
		} else {
			escapes++
		}
	}

	return escapes, deaths
}

func medicRound(round gamelog.Round, medic string) bool {
	for _, event := range round.Events {
		if (event.Kind == gamelog.EventMedicDeath || event.Kind == gamelog.EventCharge) && event.SteamID == medic {
			return true
		}
	}

	return false
}
