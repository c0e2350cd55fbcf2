// Package rating maintains TrueSkill ratings over a chronological stream of logs.
package rating

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"

	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/internal/gamestream"
	"github.com/leighmacdonald/rglstats/internal/identity"
	"github.com/leighmacdonald/rglstats/pkg/log"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var (
	ErrSkipped   = errors.New("game skipped")
	ErrEmptySide = errors.New("team has no players")
	ErrNumerical = errors.New("numerically unstable rating update")
)

type Config struct {
	Mu              float64
	Sigma           float64
	Beta            float64
	Tau             float64
	DrawProbability float64
}

func DefaultConfig() Config {
	return Config{
		Mu:              25,
		Sigma:           25.0 / 3,
		Beta:            25.0 / 6,
		Tau:             25.0 / 300,
		DrawProbability: 0.10,
	}
}

type Rating struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	Games int     `json:"games"`
}

// Conservative is the skill the player is very likely to be above.
func (r Rating) Conservative() float64 {
	return r.Mu - 3*r.Sigma
}

type Outcome int

const (
	RedWins Outcome = iota
	BlueWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case RedWins:
		return "red"
	case BlueWins:
		return "blue"
	default:
		return "draw"
	}
}

// OutcomeOf compares the final scores.
func OutcomeOf(red int, blue int) Outcome {
	switch {
	case red > blue:
		return RedWins
	case red < blue:
		return BlueWins
	default:
		return Draw
	}
}

// Engine holds the current rating of every player seen so far. Games must be applied in
// chronological order, it is not safe for concurrent use.
type Engine struct {
	config     Config
	normalizer identity.Normalizer
	ratings    map[steamid.SteamID]Rating
}

func NewEngine(normalizer identity.Normalizer, config Config) *Engine {
	return &Engine{
		config:     config,
		normalizer: normalizer,
		ratings:    map[steamid.SteamID]Rating{},
	}
}

func (e *Engine) prior() Rating {
	return Rating{Mu: e.config.Mu, Sigma: e.config.Sigma}
}

// Rating returns the current rating of a player.
func (e *Engine) Rating(sid steamid.SteamID) (Rating, bool) {
	current, found := e.ratings[sid]

	return current, found
}

// Ratings returns a copy of all current ratings.
func (e *Engine) Ratings() map[steamid.SteamID]Rating {
	return maps.Clone(e.ratings)
}

func (e *Engine) normalizeSide(game gamelog.GameLog, team gamelog.Team) ([]steamid.SteamID, error) {
	var side []steamid.SteamID

	for _, native := range game.TeamPlayers(team) {
		sid, errSID := e.normalizer.Normalize(native)
		if errSID != nil {
			return nil, errSID
		}

		side = append(side, sid)
	}

	return side, nil
}

// Rate applies a single game. Players are given the prior rating the first time they are seen.
// A game that cannot be rated returns an error wrapping ErrSkipped and leaves every existing
// rating untouched.
func (e *Engine) Rate(game gamelog.GameLog) error {
	if errValid := game.Validate(); errValid != nil {
		return errors.Join(ErrSkipped, errValid)
	}

	red, errRed := e.normalizeSide(game, gamelog.RED)
	if errRed != nil {
		return errors.Join(ErrSkipped, errRed)
	}

	blue, errBlue := e.normalizeSide(game, gamelog.BLU)
	if errBlue != nil {
		return errors.Join(ErrSkipped, errBlue)
	}

	for _, sid := range append(append([]steamid.SteamID{}, red...), blue...) {
		if _, found := e.ratings[sid]; !found {
			e.ratings[sid] = e.prior()
		}
	}

	if len(red) == 0 || len(blue) == 0 {
		return errors.Join(ErrSkipped, fmt.Errorf("%w: log %d", ErrEmptySide, game.ID))
	}

	redScore, blueScore, errScores := game.Scores()
	if errScores != nil {
		return errors.Join(ErrSkipped, errScores)
	}

	updated, errUpdate := e.update(red, blue, OutcomeOf(redScore, blueScore))
	if errUpdate != nil {
		return errors.Join(ErrSkipped, fmt.Errorf("log %d: %w", game.ID, errUpdate))
	}

	for sid, value := range updated {
		e.ratings[sid] = value
	}

	return nil
}

// update computes new ratings for a two team game without modifying the engine state.
func (e *Engine) update(red []steamid.SteamID, blue []steamid.SteamID, outcome Outcome) (map[steamid.SteamID]Rating, error) {
	var (
		tau2     = e.config.Tau * e.config.Tau
		beta2    = e.config.Beta * e.config.Beta
		size     = len(red) + len(blue)
		variance = map[steamid.SteamID]float64{}
		redMu    float64
		blueMu   float64
		c2       float64
	)

	for _, sid := range red {
		current := e.ratings[sid]
		variance[sid] = current.Sigma*current.Sigma + tau2
		redMu += current.Mu
		c2 += variance[sid] + beta2
	}

	for _, sid := range blue {
		current := e.ratings[sid]
		variance[sid] = current.Sigma*current.Sigma + tau2
		blueMu += current.Mu
		c2 += variance[sid] + beta2
	}

	var (
		c       = math.Sqrt(c2)
		epsilon = drawMargin(e.config.DrawProbability, size, e.config.Beta) / c
		winners = red
		losers  = blue
		diff    = (redMu - blueMu) / c
		v, w    float64
		errW    error
	)

	switch outcome {
	case BlueWins:
		winners, losers = blue, red
		diff = -diff

		fallthrough
	case RedWins:
		v = vWin(diff, epsilon)
		w, errW = wWin(diff, epsilon)
	case Draw:
		v = vDraw(diff, epsilon)
		w, errW = wDraw(diff, epsilon)
	}

	if errW != nil {
		return nil, errW
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ErrNumerical
	}

	updated := make(map[steamid.SteamID]Rating, size)

	apply := func(players []steamid.SteamID, sign float64) {
		for _, sid := range players {
			current := e.ratings[sid]
			sigma2 := variance[sid]

			updated[sid] = Rating{
				Mu:    current.Mu + sign*sigma2/c*v,
				Sigma: math.Sqrt(sigma2 * (1 - sigma2/c2*w)),
				Games: current.Games + 1,
			}
		}
	}

	apply(winners, 1)
	apply(losers, -1)

	return updated, nil
}

// Summary counts how each log was handled by Compute.
type Summary struct {
	Processed int
	Skipped   int
}

// Compute replays the whole stream in order and returns the final rating of every player.
// Games that cannot be rated are logged and counted but never stop the run.
func Compute(stream gamestream.Stream, normalizer identity.Normalizer, config Config) (map[steamid.SteamID]Rating, Summary) {
	var (
		engine  = NewEngine(normalizer, config)
		summary Summary
	)

	for game, errGame := range stream.Games() {
		if errGame != nil {
			summary.Skipped++

			slog.Warn("Skipping unreadable log", log.ErrAttr(errGame))

			continue
		}

		if errRate := engine.Rate(game); errRate != nil {
			summary.Skipped++

			slog.Debug("Skipping log", slog.Int64("log_id", game.ID), log.ErrAttr(errRate))

			continue
		}

		summary.Processed++
	}

	return engine.Ratings(), summary
}
