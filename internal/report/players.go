package report

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/pkg/log"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

// PlayerTotals are a player's counters summed over every log they appeared in. Seconds counts the
// full length of each log rather than the time the player was connected.
type PlayerTotals struct {
	PlayerID steamid.SteamID
	Name     string
	Games    int
	Seconds  int
	Kills    int
	Assists  int
	Deaths   int
	Damage   int
	Taken    int
	Heal     int
	Drops    int
}

func (p PlayerTotals) minutes() float64 {
	return float64(p.Seconds) / 60
}

func (p PlayerTotals) perMinute(value int) float64 {
	minutes := p.minutes()
	if minutes <= 0 {
		return 0
	}

	return float64(value) / minutes
}

// KAD is kills plus assists per death. The second value is false for players that never died.
func (p PlayerTotals) KAD() (float64, bool) {
	if p.Deaths == 0 {
		return 0, false
	}

	return float64(p.Kills+p.Assists) / float64(p.Deaths), true
}

func (p PlayerTotals) DPM() float64 {
	return p.perMinute(p.Damage)
}

func (p PlayerTotals) DTPM() float64 {
	return p.perMinute(p.Taken)
}

func (p PlayerTotals) KillsPM() float64 {
	return p.perMinute(p.Kills)
}

func (p PlayerTotals) HealPM() float64 {
	return p.perMinute(p.Heal)
}

func (p PlayerTotals) DropsPM() float64 {
	return p.perMinute(p.Drops)
}

func logLength(game gamelog.GameLog) int {
	if game.Info.TotalLength > 0 {
		return game.Info.TotalLength
	}

	return game.Length
}

// Players totals every normalizable player across the stream, ordered by damage per minute.
// Unreadable logs are skipped.
func Players(stream gamestream.Stream, normalizer identity.Normalizer, names *identity.Names) []PlayerTotals {
	totals := map[steamid.SteamID]*PlayerTotals{}

	for game, errGame := range stream.Games() {
		if errGame != nil {
			slog.Warn("Skipping unreadable log", log.ErrAttr(errGame))

			continue
		}

		length := logLength(game)

		for native, player := range game.Players {
			sid, errSID := normalizer.Normalize(native)
			if errSID != nil {
				continue
			}

			total, found := totals[sid]
			if !found {
				total = &PlayerTotals{PlayerID: sid}
				totals[sid] = total
			}

			total.Games++
			total.Seconds += length
			total.Kills += player.Kills
			total.Assists += player.Assists
			total.Deaths += player.Deaths
			total.Damage += player.Damage
			total.Taken += player.DamageTaken
			total.Heal += player.Heal
			total.Drops += player.Drops
		}
	}

	players := make([]PlayerTotals, 0, len(totals))

	for sid, total := range totals {
		total.Name = sid.String()
		if names != nil {
			total.Name = names.Name(sid)
		}

		players = append(players, *total)
	}

	slices.SortFunc(players, func(a, b PlayerTotals) int {
		if order := cmp.Compare(b.DPM(), a.DPM()); order != 0 {
			return order
		}

		return cmp.Compare(a.PlayerID.Int64(), b.PlayerID.Int64())
	})

	return players
}
