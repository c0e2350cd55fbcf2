// Package report builds the league, player and team summaries printed by the cli.
package report

import (
	"cmp"
	"math"
	"slices"

	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/leighmacdonald/rglstats/internal/rating"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/maruel/natural"
)

// TopPlayers is how many of a team's highest rated players make up its strength.
const TopPlayers = 6

// PlayerScore is a rostered player and their current skill estimate. Unrated players have never
// appeared in a rated log.
type PlayerScore struct {
	PlayerID steamid.SteamID
	Name     string
	Mu       float64
	Rated    bool
}

type TeamReport struct {
	ID      int
	Name    string
	Players []PlayerScore
	// Sum of the ratings of the TopPlayers best rated players.
	Top float64
}

type DivisionReport struct {
	ID     int
	Name   string
	Teams  []TeamReport
	Median float64
}

type SeasonReport struct {
	ID        int
	Name      string
	Divisions []DivisionReport
}

// Lookup resolves snapshot ids into display names and ratings.
type Lookup struct {
	Ratings map[steamid.SteamID]rating.Rating
	Names   *identity.Names
}

func (l Lookup) score(entry league.RosterEntry) PlayerScore {
	score := PlayerScore{PlayerID: entry.PlayerID, Name: entry.Name}

	if score.Name == "" {
		score.Name = "Unnamed"
		if l.Names != nil {
			score.Name = l.Names.Name(entry.PlayerID)
		}
	}

	if current, found := l.Ratings[entry.PlayerID]; found {
		score.Mu = current.Mu
		score.Rated = true
	}

	return score
}

// sortScores orders rated players by rating, best first, followed by the unrated ones by name.
func sortScores(scores []PlayerScore) {
	slices.SortFunc(scores, func(a, b PlayerScore) int {
		switch {
		case a.Rated != b.Rated:
			if a.Rated {
				return -1
			}

			return 1
		case a.Mu != b.Mu:
			return cmp.Compare(b.Mu, a.Mu)
		case a.Name != b.Name:
			if natural.Less(a.Name, b.Name) {
				return -1
			}

			return 1
		default:
			return cmp.Compare(a.PlayerID.Int64(), b.PlayerID.Int64())
		}
	})
}

func topSum(scores []PlayerScore) float64 {
	var sum float64

	for i, score := range scores {
		if i >= TopPlayers || !score.Rated {
			break
		}

		sum += score.Mu
	}

	return sum
}

// median takes the middle entry of the descending ratings, the upper one for even counts.
func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b float64) int { return cmp.Compare(b, a) })

	return sorted[len(sorted)/2]
}

// League groups the snapshot roster into seasons, divisions and teams. Teams are ordered by the
// summed rating of their best players, seasons newest first.
func League(snapshot league.Snapshot, lookup Lookup) []SeasonReport {
	var (
		seasonNames   = map[int]string{}
		divisionNames = map[int]string{}
		teamNames     = snapshot.TeamNames()
		// season -> division -> team -> player
		tree = map[int]map[int]map[int]map[steamid.SteamID]league.RosterEntry{}
	)

	for _, season := range snapshot.Seasons {
		seasonNames[season.ID] = season.Name
	}

	for _, division := range snapshot.Divisions {
		divisionNames[division.ID] = division.Name
	}

	for _, entry := range snapshot.Roster {
		divisions, found := tree[entry.SeasonID]
		if !found {
			divisions = map[int]map[int]map[steamid.SteamID]league.RosterEntry{}
			tree[entry.SeasonID] = divisions
		}

		teams, found := divisions[entry.LeagueID]
		if !found {
			teams = map[int]map[steamid.SteamID]league.RosterEntry{}
			divisions[entry.LeagueID] = teams
		}

		players, found := teams[entry.TeamID]
		if !found {
			players = map[steamid.SteamID]league.RosterEntry{}
			teams[entry.TeamID] = players
		}

		players[entry.PlayerID] = entry
	}

	seasons := make([]SeasonReport, 0, len(tree))

	for seasonID, divisions := range tree {
		season := SeasonReport{ID: seasonID, Name: seasonNames[seasonID]}

		for divisionID, teams := range divisions {
			division := DivisionReport{ID: divisionID, Name: divisionNames[divisionID]}

			var rated []float64

			for teamID, players := range teams {
				team := TeamReport{ID: teamID, Name: teamNames[teamID]}

				for _, entry := range players {
					score := lookup.score(entry)
					team.Players = append(team.Players, score)

					if score.Rated && score.Mu != 0 {
						rated = append(rated, score.Mu)
					}
				}

				sortScores(team.Players)
				team.Top = topSum(team.Players)

				division.Teams = append(division.Teams, team)
			}

			slices.SortFunc(division.Teams, func(a, b TeamReport) int {
				if a.Top != b.Top {
					return cmp.Compare(b.Top, a.Top)
				}

				return cmp.Compare(a.ID, b.ID)
			})

			division.Median = median(rated)
			season.Divisions = append(season.Divisions, division)
		}

		slices.SortFunc(season.Divisions, func(a, b DivisionReport) int {
			if a.Name != b.Name {
				if natural.Less(a.Name, b.Name) {
					return -1
				}

				return 1
			}

			return cmp.Compare(a.ID, b.ID)
		})

		seasons = append(seasons, season)
	}

	slices.SortFunc(seasons, func(a, b SeasonReport) int {
		return cmp.Compare(b.ID, a.ID)
	})

	return seasons
}
