package report

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/internal/rating"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/olekukonko/tablewriter"
)

var ErrRender = errors.New("failed to render table")

func defaultTable(writer io.Writer, header ...string) *tablewriter.Table {
	tbl := tablewriter.NewTable(writer)

	columns := make([]any, len(header))
	for i, column := range header {
		columns[i] = column
	}

	tbl.Header(columns...)

	return tbl
}

func renderRows(table *tablewriter.Table, rows [][]string) error {
	for _, row := range rows {
		if errAppend := table.Append(row); errAppend != nil {
			return errors.Join(errAppend, ErrRender)
		}
	}

	if errRender := table.Render(); errRender != nil {
		return errors.Join(errRender, ErrRender)
	}

	return nil
}

func fmtFloat(value float64) string {
	if math.IsNaN(value) {
		return "-"
	}

	return humanize.FormatFloat("#,###.##", value)
}

func fmtScore(score PlayerScore) string {
	if !score.Rated {
		return "-"
	}

	return fmtFloat(score.Mu)
}

// RenderLeague writes one table per division.
func RenderLeague(writer io.Writer, seasons []SeasonReport) error {
	for _, season := range seasons {
		for _, division := range season.Divisions {
			if _, err := fmt.Fprintf(writer, "\n%s / %s (median %s)\n", season.Name, division.Name, fmtFloat(division.Median)); err != nil {
				return errors.Join(err, ErrRender)
			}

			rows := make([][]string, 0, len(division.Teams))

			for rank, team := range division.Teams {
				var top []string

				for i, player := range team.Players {
					if i >= TopPlayers {
						break
					}

					top = append(top, player.Name)
				}

				rows = append(rows, []string{
					strconv.Itoa(rank + 1),
					team.Name,
					fmtFloat(team.Top),
					strconv.Itoa(len(team.Players)),
					strings.Join(top, ", "),
				})
			}

			if err := renderRows(defaultTable(writer, "#", "Team", "Top 6", "Roster", "Best"), rows); err != nil {
				return err
			}
		}
	}

	return nil
}

func RenderPlayers(writer io.Writer, players []PlayerTotals) error {
	rows := make([][]string, 0, len(players))

	for _, player := range players {
		kad := "No deaths"
		if value, died := player.KAD(); died {
			kad = fmtFloat(value)
		}

		rows = append(rows, []string{
			player.Name,
			player.PlayerID.String(),
			humanize.Comma(int64(player.Games)),
			kad,
			fmtFloat(player.DPM()),
			fmtFloat(player.DTPM()),
			fmtFloat(player.DPM() - player.DTPM()),
			fmtFloat(player.KillsPM()),
			fmtFloat(player.HealPM()),
			fmtFloat(player.DropsPM()),
		})
	}

	return renderRows(defaultTable(writer, "Name", "SteamID", "Games", "KA/D", "DA/M", "DT/M", "Diff", "K/M", "Heal/M", "Drops/M"), rows)
}

func RenderTeam(writer io.Writer, detail TeamDetail) error {
	if _, err := fmt.Fprintf(writer, "%s (%d) %s / %s, top 6: %s\n", detail.Team.Name, detail.Team.ID,
		detail.Season, detail.Division, fmtFloat(detail.Top)); err != nil {
		return errors.Join(err, ErrRender)
	}

	players := make([][]string, 0, len(detail.Players))
	for _, player := range detail.Players {
		players = append(players, []string{player.Name, player.PlayerID.String(), fmtScore(player)})
	}

	if err := renderRows(defaultTable(writer, "Player", "SteamID", "Rating"), players); err != nil {
		return err
	}

	matches := make([][]string, 0, len(detail.Matches))

	for _, match := range detail.Matches {
		date := "-"
		if match.Match.Date != nil {
			date = match.Match.Date.Format("2006-01-02 15:04")
		}

		score := "-"
		if match.Match.Team1Score != nil && match.Match.Team2Score != nil {
			score = fmt.Sprintf("%s - %s", fmtFloat(*match.Match.Team1Score), fmtFloat(*match.Match.Team2Score))
		}

		logs := make([]string, len(match.Logs))
		for i, logID := range match.Logs {
			logs[i] = strconv.FormatInt(logID, 10)
		}

		matches = append(matches, []string{
			strconv.Itoa(match.Match.ID),
			date,
			match.Opponent,
			strings.Join(match.Match.Maps, " "),
			score,
			strings.Join(logs, " "),
		})
	}

	return renderRows(defaultTable(writer, "Match", "Date", "Opponent", "Maps", "Score", "Logs"), matches)
}

// RankedRating is a leaderboard entry.
type RankedRating struct {
	PlayerID steamid.SteamID
	Name     string
	rating.Rating
}

// Leaderboard orders ratings by their conservative estimate. A limit of zero keeps everyone.
func Leaderboard(ratings map[steamid.SteamID]rating.Rating, names *identity.Names, limit int) []RankedRating {
	ranked := make([]RankedRating, 0, len(ratings))

	for sid, current := range ratings {
		name := sid.String()
		if names != nil {
			name = names.Name(sid)
		}

		ranked = append(ranked, RankedRating{PlayerID: sid, Name: name, Rating: current})
	}

	slices.SortFunc(ranked, func(a, b RankedRating) int {
		if order := cmp.Compare(b.Conservative(), a.Conservative()); order != 0 {
			return order
		}

		return cmp.Compare(a.PlayerID.Int64(), b.PlayerID.Int64())
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}

func RenderLeaderboard(writer io.Writer, ranked []RankedRating) error {
	rows := make([][]string, 0, len(ranked))

	for rank, entry := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(rank + 1),
			entry.Name,
			entry.PlayerID.String(),
			fmtFloat(entry.Mu),
			fmtFloat(entry.Sigma),
			fmtFloat(entry.Conservative()),
			humanize.Comma(int64(entry.Games)),
		})
	}

	return renderRows(defaultTable(writer, "#", "Name", "SteamID", "Mu", "Sigma", "Rating", "Games"), rows)
}
