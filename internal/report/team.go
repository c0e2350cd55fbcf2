package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FindTeams returns the teams whose name fuzzily matches query, best match first. An exact
// case-insensitive match always ranks first.
func FindTeams(teams []league.Team, query string) []league.Team {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	lower := make([]string, len(teams))
	for i, team := range teams {
		lower[i] = strings.ToLower(team.Name)
	}

	ranks := fuzzy.RankFind(query, lower)
	slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int {
		aExact, bExact := a.Target == query, b.Target == query
		switch {
		case aExact && !bExact:
			return -1
		case bExact && !aExact:
			return 1
		case a.Distance != b.Distance:
			return cmp.Compare(a.Distance, b.Distance)
		default:
			return cmp.Compare(teams[a.OriginalIndex].ID, teams[b.OriginalIndex].ID)
		}
	})

	found := make([]league.Team, len(ranks))
	for i, rank := range ranks {
		found[i] = teams[rank.OriginalIndex]
	}

	return found
}

// MatchReport is a scheduled match seen from one team's side.
type MatchReport struct {
	Match    league.OfficialMatch
	Opponent string
	// Log ids linked to the match.
	Logs []int64
}

type TeamDetail struct {
	Team     league.Team
	Season   string
	Division string
	Players  []PlayerScore
	Top      float64
	Matches  []MatchReport
}

// Team collects the roster and schedule of a single team. links maps match ids onto their
// linked log ids.
func Team(snapshot league.Snapshot, team league.Team, lookup Lookup, links map[int][]int64) TeamDetail {
	detail := TeamDetail{Team: team}

	for _, season := range snapshot.Seasons {
		if season.ID == team.SeasonID {
			detail.Season = season.Name
		}
	}

	for _, division := range snapshot.Divisions {
		if division.ID == team.LeagueID {
			detail.Division = division.Name
		}
	}

	seen := map[int64]struct{}{}

	for _, entry := range snapshot.Roster {
		if entry.TeamID != team.ID {
			continue
		}

		if _, dupe := seen[entry.PlayerID.Int64()]; dupe {
			continue
		}

		seen[entry.PlayerID.Int64()] = struct{}{}
		detail.Players = append(detail.Players, lookup.score(entry))
	}

	sortScores(detail.Players)
	detail.Top = topSum(detail.Players)

	names := snapshot.TeamNames()

	for _, match := range snapshot.UniqueMatches() {
		var opponent int

		switch team.ID {
		case match.Team1:
			opponent = match.Team2
		case match.Team2:
			opponent = match.Team1
		default:
			continue
		}

		name, found := names[opponent]
		if !found {
			name = "Unknown"
		}

		detail.Matches = append(detail.Matches, MatchReport{Match: match, Opponent: name, Logs: links[match.ID]})
	}

	return detail
}
