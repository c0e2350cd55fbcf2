// Package gamelog holds the decoded form of a logs.tf game log.
package gamelog

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrNoPlayers   = errors.New("log has no players")
	ErrNoTimestamp = errors.New("log has no upload timestamp")
	ErrNoScores    = errors.New("log has no team scores")
	ErrNoID        = errors.New("log has no id")
	ErrDecode      = errors.New("failed to decode log")
)

type TeamSummary struct {
	Score     int `json:"score"`
	Kills     int `json:"kills"`
	Deaths    int `json:"deaths"`
	Damage    int `json:"dmg"`
	Charges   int `json:"charges"`
	Drops     int `json:"drops"`
	FirstCaps int `json:"firstcaps"`
	Caps      int `json:"caps"`
}

type Teams struct {
	Red  *TeamSummary `json:"Red,omitempty"`
	Blue *TeamSummary `json:"Blue,omitempty"`
}

type Info struct {
	Map         string `json:"map"`
	Date        int64  `json:"date"`
	TotalLength int    `json:"total_length"`
	Title       string `json:"title"`
	Uploader    struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"uploader"`
}

// ClassStat is the time a player spent on one class and what they did while on it.
type ClassStat struct {
	Class     Class `json:"type"`
	Kills     int   `json:"kills"`
	Assists   int   `json:"assists"`
	Deaths    int   `json:"deaths"`
	Damage    int   `json:"dmg"`
	TotalTime int   `json:"total_time"`
}

// Player holds the whole-log counters for one participant. Only the kills, assists, deaths and damage
// fields are broken out by class, everything else is recorded for the player as a whole.
type Player struct {
	Team         Team            `json:"team"`
	ClassStats   []ClassStat     `json:"class_stats"`
	Kills        int             `json:"kills"`
	Deaths       int             `json:"deaths"`
	Assists      int             `json:"assists"`
	Suicides     int             `json:"suicides"`
	Damage       int             `json:"dmg"`
	DamageTaken  int             `json:"dt"`
	Heal         int             `json:"heal"`
	HealReceived int             `json:"hr"`
	Ubers        int             `json:"ubers"`
	UberTypes    map[Medigun]int `json:"ubertypes,omitempty"`
	Drops        int             `json:"drops"`
	Backstabs    int             `json:"backstabs"`
	Headshots    int             `json:"headshots"`
	HeadshotsHit int             `json:"headshots_hit"`
	Medkits      int             `json:"medkits"`
	Captures     int             `json:"cpc"`
}

// TotalTime is the sum of time spent across every class.
func (p Player) TotalTime() int {
	total := 0
	for _, cs := range p.ClassStats {
		total += cs.TotalTime
	}

	return total
}

// ClassCounts holds per opposing class totals such as kills against each class.
type ClassCounts map[Class]int

// GameLog is a single uploaded log. Once decoded it is treated as read only.
type GameLog struct {
	ID               int64                  `json:"id"`
	Version          int                    `json:"version"`
	Teams            Teams                  `json:"teams"`
	Length           int                    `json:"length"`
	Players          map[string]Player      `json:"players"`
	Names            map[string]string      `json:"names"`
	Rounds           []Round                `json:"rounds"`
	ClassKills       map[string]ClassCounts `json:"classkills"`
	ClassDeaths      map[string]ClassCounts `json:"classdeaths"`
	ClassKillAssists map[string]ClassCounts `json:"classkillassists"`
	Info             Info                   `json:"info"`
}

// Decode parses a single logs.tf json document.
func Decode(data []byte) (GameLog, error) {
	var log GameLog
	if err := json.Unmarshal(data, &log); err != nil {
		return GameLog{}, errors.Join(err, ErrDecode)
	}

	return log, nil
}

// Time returns the upload time of the log.
func (g GameLog) Time() time.Time {
	return time.Unix(g.Info.Date, 0)
}

// Validate checks the fields that every consumer depends on.
func (g GameLog) Validate() error {
	if g.ID <= 0 {
		return ErrNoID
	}

	if len(g.Players) == 0 {
		return fmt.Errorf("%w: log %d", ErrNoPlayers, g.ID)
	}

	if g.Info.Date <= 0 {
		return fmt.Errorf("%w: log %d", ErrNoTimestamp, g.ID)
	}

	return nil
}

// Scores returns the final red and blue scores.
func (g GameLog) Scores() (int, int, error) {
	if g.Teams.Red == nil || g.Teams.Blue == nil {
		return 0, 0, fmt.Errorf("%w: log %d", ErrNoScores, g.ID)
	}

	return g.Teams.Red.Score, g.Teams.Blue.Score, nil
}

// TeamPlayers returns the sorted native ids of every player on the team.
func (g GameLog) TeamPlayers(team Team) []string {
	var ids []string

	for id, player := range g.Players {
		if player.Team == team {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return ids
}

// PlayerIDs returns all native player ids in sorted order.
func (g GameLog) PlayerIDs() []string {
	ids := make([]string, 0, len(g.Players))
	for id := range g.Players {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}
