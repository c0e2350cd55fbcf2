// Package linker correlates uploaded logs with official league matches.
package linker

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/leighmacdonald/rglstats/internal/format"
	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/internal/league"
	"github.com/leighmacdonald/rglstats/pkg/log"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

const dateLayout = "2006-01-02"

type Config struct {
	// MinLength is the shortest log, in seconds, worth correlating.
	MinLength int
	// RingerLimit is the most players per side allowed to be missing from the official roster.
	RingerLimit int
	// DateTolerance is how many days after the scheduled date a log may be uploaded.
	DateTolerance time.Duration
	// Location is used to take the calendar date of both logs and matches.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		MinLength:     120,
		RingerLimit:   4,
		DateTolerance: 24 * time.Hour,
		Location:      time.Local,
	}
}

// Candidate asserts that a log plausibly records an official match.
type Candidate struct {
	MatchID int   `json:"match_id"`
	LogID   int64 `json:"log_id"`
}

// Summary counts how each log in a batch was handled.
type Summary struct {
	Processed int
	Skipped   int
	Filtered  int
}

type matchSet map[int]struct{}

// Linker holds read only indexes over the official matches. It is safe for concurrent use
// provided the normalizer is.
type Linker struct {
	config     Config
	normalizer identity.Normalizer
	rosters    league.Rosters
	matches    map[int]league.OfficialMatch
	byDate     map[string]matchSet
	byFormat   map[format.Format]matchSet
	byFamily   map[string]matchSet
}

func New(matches []league.OfficialMatch, rosters league.Rosters, normalizer identity.Normalizer, config Config) *Linker {
	if config.Location == nil {
		config.Location = time.Local
	}

	linker := &Linker{
		config:     config,
		normalizer: normalizer,
		rosters:    rosters,
		matches:    map[int]league.OfficialMatch{},
		byDate:     map[string]matchSet{},
		byFormat:   map[format.Format]matchSet{},
		byFamily:   map[string]matchSet{},
	}

	toleranceDays := int(config.DateTolerance / (24 * time.Hour))

	for _, match := range matches {
		linker.matches[match.ID] = match

		if match.Date != nil {
			scheduled := match.Date.In(config.Location)
			for day := 0; day <= toleranceDays; day++ {
				addTo(linker.byDate, scheduled.AddDate(0, 0, day).Format(dateLayout), match.ID)
			}
		}

		if matchFormat, found := rosters.MatchFormat(match); found {
			addTo(linker.byFormat, matchFormat, match.ID)
		}

		for _, mapName := range match.Maps {
			addTo(linker.byFamily, MapFamily(mapName), match.ID)
		}
	}

	return linker
}

func addTo[K comparable](index map[K]matchSet, key K, matchID int) {
	set, found := index[key]
	if !found {
		set = matchSet{}
		index[key] = set
	}

	set[matchID] = struct{}{}
}

// MapFamily strips the version suffix from a map name, keeping the first two underscore
// delimited tokens. cp_sunshine_rc9 and cp_sunshine share the family cp_sunshine.
func MapFamily(mapName string) string {
	tokens := strings.Split(strings.ToLower(strings.TrimSpace(mapName)), "_")
	if len(tokens) > 2 {
		tokens = tokens[:2]
	}

	return strings.Join(tokens, "_")
}

// Filtered reports whether a log is too short to be considered at all.
func (l *Linker) Filtered(game gamelog.GameLog) bool {
	return game.Length < l.config.MinLength
}

// Candidates returns every official match the log plausibly records, ordered by match id.
// Only a log missing required fields, or with a player id that cannot be normalized, returns
// an error. Missing rosters or dates simply produce no candidates.
func (l *Linker) Candidates(game gamelog.GameLog) ([]Candidate, error) {
	if errValid := game.Validate(); errValid != nil {
		return nil, errValid
	}

	if l.Filtered(game) {
		return nil, nil
	}

	var (
		gameFormat = format.Classify(game)
		day        = game.Time().In(l.config.Location).Format(dateLayout)
		possible   = intersect(l.byFormat[gameFormat], l.byDate[day], l.byFamily[MapFamily(game.Info.Map)])
	)

	if len(possible) == 0 {
		return nil, nil
	}

	sideA, errA := l.side(game, gamelog.RED)
	if errA != nil {
		return nil, errA
	}

	sideB, errB := l.side(game, gamelog.BLU)
	if errB != nil {
		return nil, errB
	}

	var candidates []Candidate

	for _, matchID := range slices.Sorted(maps.Keys(possible)) {
		match := l.matches[matchID]

		team1, found1 := l.rosters.Roster(match.Team1)
		team2, found2 := l.rosters.Roster(match.Team2)

		if !found1 || !found2 {
			continue
		}

		if !l.rostersMatch(sideA, sideB, team1, team2) {
			continue
		}

		candidates = append(candidates, Candidate{MatchID: matchID, LogID: game.ID})
	}

	return candidates, nil
}

// rostersMatch accepts when each side can be paired with a different team, in either order,
// with no more than the allowed number of ringers on either side.
func (l *Linker) rostersMatch(sideA, sideB, team1, team2 map[steamid.SteamID]struct{}) bool {
	limit := l.config.RingerLimit

	if ringers(sideA, team1) <= limit && ringers(sideB, team2) <= limit {
		return true
	}

	return ringers(sideA, team2) <= limit && ringers(sideB, team1) <= limit
}

func ringers(side, roster map[steamid.SteamID]struct{}) int {
	count := 0

	for player := range side {
		if _, found := roster[player]; !found {
			count++
		}
	}

	return count
}

func (l *Linker) side(game gamelog.GameLog, team gamelog.Team) (map[steamid.SteamID]struct{}, error) {
	players := map[steamid.SteamID]struct{}{}

	for _, native := range game.TeamPlayers(team) {
		sid, errSID := l.normalizer.Normalize(native)
		if errSID != nil {
			return nil, fmt.Errorf("log %d: %w", game.ID, errSID)
		}

		players[sid] = struct{}{}
	}

	return players, nil
}

func intersect(sets ...matchSet) matchSet {
	if len(sets) == 0 {
		return nil
	}

	// Iterate over the smallest set.
	slices.SortFunc(sets, func(a, b matchSet) int {
		return cmp.Compare(len(a), len(b))
	})

	out := matchSet{}

	for matchID := range sets[0] {
		inAll := true

		for _, other := range sets[1:] {
			if _, found := other[matchID]; !found {
				inAll = false

				break
			}
		}

		if inAll {
			out[matchID] = struct{}{}
		}
	}

	return out
}

// FindCandidates links every log in the stream. A record that fails is logged and counted as
// skipped and does not affect the rest of the batch.
func (l *Linker) FindCandidates(stream gamestream.Stream) ([]Candidate, Summary) {
	var (
		summary    Summary
		candidates []Candidate
	)

	for game, errGame := range stream.Games() {
		if errGame != nil {
			summary.Skipped++

			slog.Warn("Skipping unreadable log", log.ErrAttr(errGame))

			continue
		}

		if l.Filtered(game) {
			summary.Filtered++

			continue
		}

		found, errFind := l.Candidates(game)
		if errFind != nil {
			summary.Skipped++

			slog.Warn("Skipping log", slog.Int64("log_id", game.ID), log.ErrAttr(errFind))

			continue
		}

		summary.Processed++

		candidates = append(candidates, found...)
	}

	return candidates, summary
}

// ByMatch groups candidates by official match id.
func ByMatch(candidates []Candidate) map[int][]int64 {
	grouped := map[int][]int64{}
	for _, candidate := range candidates {
		grouped[candidate.MatchID] = append(grouped[candidate.MatchID], candidate.LogID)
	}

	return grouped
}
