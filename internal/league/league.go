// Package league holds the official schedule and rosters scraped from the league site.
package league

import (
	"cmp"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/leighmacdonald/rglstats/internal/format"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var (
	ErrReadSnapshot  = errors.New("failed to read league snapshot")
	ErrWriteSnapshot = errors.New("failed to write league snapshot")
)

// OfficialMatch is a scheduled league match. Date and scores are nil when unknown.
type OfficialMatch struct {
	ID         int        `json:"id"`
	Date       *time.Time `json:"date,omitempty"`
	Maps       []string   `json:"maps"`
	Team1      int        `json:"team1"`
	Team2      int        `json:"team2"`
	Team1Score *float64   `json:"team1_score,omitempty"`
	Team2Score *float64   `json:"team2_score,omitempty"`
}

// RosterEntry is a single stint of a player on a team.
type RosterEntry struct {
	PlayerID steamid.SteamID `json:"player_id"`
	Name     string          `json:"name"`
	Joined   *time.Time      `json:"joined,omitempty"`
	Left     *time.Time      `json:"left,omitempty"`
	TeamID   int             `json:"team_id"`
	RegionID int             `json:"region_id"`
	SeasonID int             `json:"season_id"`
	LeagueID int             `json:"league_id"`
}

type Team struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RegionID int    `json:"region_id"`
	SeasonID int    `json:"season_id"`
	LeagueID int    `json:"league_id"`
}

type Season struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Division struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Snapshot is everything collected from one crawl of the league site.
type Snapshot struct {
	UpdatedOn time.Time       `json:"updated_on"`
	Seasons   []Season        `json:"seasons"`
	Divisions []Division      `json:"divisions"`
	Teams     []Team          `json:"teams"`
	Roster    []RosterEntry   `json:"roster"`
	Matches   []OfficialMatch `json:"matches"`
}

// LoadSnapshot reads a snapshot previously written with Save.
func LoadSnapshot(path string) (Snapshot, error) {
	body, errRead := os.ReadFile(path)
	if errRead != nil {
		return Snapshot{}, errors.Join(errRead, ErrReadSnapshot)
	}

	var snapshot Snapshot
	if errUnmarshal := json.Unmarshal(body, &snapshot); errUnmarshal != nil {
		return Snapshot{}, errors.Join(errUnmarshal, ErrReadSnapshot)
	}

	return snapshot, nil
}

func (s Snapshot) Save(path string) error {
	body, errMarshal := json.MarshalIndent(s, "", "  ")
	if errMarshal != nil {
		return errors.Join(errMarshal, ErrWriteSnapshot)
	}

	if dir := filepath.Dir(path); dir != "" {
		if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
			return errors.Join(errMkdir, ErrWriteSnapshot)
		}
	}

	tmpPath := path + ".tmp"
	if errWrite := os.WriteFile(tmpPath, body, 0o600); errWrite != nil {
		return errors.Join(errWrite, ErrWriteSnapshot)
	}

	if errRename := os.Rename(tmpPath, path); errRename != nil {
		return errors.Join(errRename, ErrWriteSnapshot)
	}

	return nil
}

// UniqueMatches returns the matches ordered by id. The same match is listed on both
// teams pages, the first occurrence wins.
func (s Snapshot) UniqueMatches() []OfficialMatch {
	seen := map[int]struct{}{}

	var matches []OfficialMatch

	for _, match := range s.Matches {
		if _, found := seen[match.ID]; found {
			continue
		}

		seen[match.ID] = struct{}{}
		matches = append(matches, match)
	}

	slices.SortFunc(matches, func(a, b OfficialMatch) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return matches
}

func (s Snapshot) TeamNames() map[int]string {
	names := make(map[int]string, len(s.Teams))
	for _, team := range s.Teams {
		names[team.ID] = team.Name
	}

	return names
}

// Rosters maps each team to the set of players that were ever listed on it, and each team to
// the format its region plays.
type Rosters struct {
	Members map[int]map[steamid.SteamID]struct{}
	Formats map[int]format.Format
}

func NewRosters() Rosters {
	return Rosters{
		Members: map[int]map[steamid.SteamID]struct{}{},
		Formats: map[int]format.Format{},
	}
}

// BuildRosters groups roster entries by team. A team whose region has no known format is
// still given a roster but no format.
func BuildRosters(entries []RosterEntry, regionFormats map[int]format.Format) Rosters {
	rosters := NewRosters()

	for _, entry := range entries {
		rosters.Add(entry.TeamID, entry.PlayerID)

		if teamFormat, found := regionFormats[entry.RegionID]; found {
			rosters.Formats[entry.TeamID] = teamFormat
		}
	}

	return rosters
}

func (r Rosters) Add(teamID int, playerID steamid.SteamID) {
	members, found := r.Members[teamID]
	if !found {
		members = map[steamid.SteamID]struct{}{}
		r.Members[teamID] = members
	}

	members[playerID] = struct{}{}
}

func (r Rosters) Roster(teamID int) (map[steamid.SteamID]struct{}, bool) {
	members, found := r.Members[teamID]

	return members, found
}

func (r Rosters) Format(teamID int) (format.Format, bool) {
	teamFormat, found := r.Formats[teamID]

	return teamFormat, found
}

// MatchFormat is team1's format, falling back to team2's.
func (r Rosters) MatchFormat(match OfficialMatch) (format.Format, bool) {
	if teamFormat, found := r.Format(match.Team1); found {
		return teamFormat, true
	}

	return r.Format(match.Team2)
}

// FormatFromName guesses the format from a season or division title such as "Sixes S14" or
// "NA Highlander Season 12".
func FormatFromName(name string) (format.Format, bool) {
	for _, token := range strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/' || r == ':'
	}) {
		if guess, errParse := format.Parse(token); errParse == nil {
			return guess, true
		}
	}

	return 0, false
}

// Rosters builds the team rosters of the snapshot. Teams whose region has no format in
// regionFormats take the format named by their season.
func (s Snapshot) Rosters(regionFormats map[int]format.Format) Rosters {
	rosters := BuildRosters(s.Roster, regionFormats)

	seasonFormats := map[int]format.Format{}

	for _, season := range s.Seasons {
		if guess, found := FormatFromName(season.Name); found {
			seasonFormats[season.ID] = guess
		}
	}

	for _, entry := range s.Roster {
		if _, found := rosters.Formats[entry.TeamID]; found {
			continue
		}

		if guess, found := seasonFormats[entry.SeasonID]; found {
			rosters.Formats[entry.TeamID] = guess
		}
	}

	return rosters
}
