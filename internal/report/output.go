package report

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/leighmacdonald/rglstats/internal/batch"
	"github.com/leighmacdonald/rglstats/internal/format"
	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/leighmacdonald/rglstats/internal/linker"
	"github.com/leighmacdonald/rglstats/pkg/log"
)

const dateLayout = "2006-01-02 15:04"

// RenderFormats classifies every log in the stream.
func RenderFormats(writer io.Writer, stream gamestream.Stream) error {
	var rows [][]string

	for game, errGame := range stream.Games() {
		if errGame != nil {
			slog.Warn("Skipping unreadable log", log.ErrAttr(errGame))

			continue
		}

		rows = append(rows, []string{
			strconv.FormatInt(game.ID, 10),
			game.Time().UTC().Format(dateLayout),
			game.Info.Map,
			humanize.Comma(int64(game.Length)),
			strconv.Itoa(len(game.Players)),
			fmt.Sprintf("%.2f", format.Density(game)),
			format.Classify(game).String(),
		})
	}

	return renderRows(defaultTable(writer, "Log", "Date", "Map", "Length", "Players", "Density", "Format"), rows)
}

// RenderStats prints one row per player and class of every log.
func RenderStats(writer io.Writer, logStats []batch.LogStats, names *identity.Names) error {
	var rows [][]string

	for _, entry := range logStats {
		for _, row := range entry.Rows {
			name := row.PlayerID.String()
			if names != nil {
				name = names.Name(row.PlayerID)
			}

			mid := "-"
			if row.MidFightEligible {
				mid = fmt.Sprintf("%d/%d", row.MidEscapes, row.MidDeaths)
			}

			rows = append(rows, []string{
				strconv.FormatInt(entry.Log.ID, 10),
				entry.Format.String(),
				name,
				row.Class.String(),
				strconv.Itoa(row.PlaytimePct) + "%",
				strconv.Itoa(row.Kills),
				strconv.Itoa(row.Assists),
				strconv.Itoa(row.Deaths),
				humanize.Comma(int64(row.Damage)),
				humanize.Comma(int64(row.DamageTaken)),
				humanize.Comma(int64(row.Heal)),
				strconv.Itoa(row.MedsDropped),
				strconv.Itoa(row.Drops),
				mid,
			})
		}
	}

	return renderRows(defaultTable(writer, "Log", "Format", "Player", "Class", "Time", "K", "A", "D", "DA", "DT",
		"Heal", "Meds Dropped", "Drops", "Mid Esc/Die"), rows)
}

// RenderLinks prints each candidate with its match details.
func RenderLinks(writer io.Writer, candidates []linker.Candidate, snapshot league.Snapshot) error {
	var (
		teams   = snapshot.TeamNames()
		matches = map[int]league.OfficialMatch{}
		rows    = make([][]string, 0, len(candidates))
	)

	for _, match := range snapshot.UniqueMatches() {
		matches[match.ID] = match
	}

	for _, candidate := range candidates {
		match := matches[candidate.MatchID]

		date := "-"
		if match.Date != nil {
			date = match.Date.Format(dateLayout)
		}

		rows = append(rows, []string{
			strconv.Itoa(candidate.MatchID),
			date,
			teams[match.Team1],
			teams[match.Team2],
			strconv.FormatInt(candidate.LogID, 10),
		})
	}

	return renderRows(defaultTable(writer, "Match", "Date", "Team 1", "Team 2", "Log"), rows)
}
