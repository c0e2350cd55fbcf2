// Package format infers the team size format of a log from its play time density.
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leighmacdonald/rglstats/internal/gamelog"
)

var ErrUnknownFormat = errors.New("unknown format")

// Format is ordered by increasing expected roster size.
type Format int

const (
	Fours Format = iota + 1
	Sixes
	Prolander
	Highlander
)

// Formats lists every supported format in roster size order.
var Formats = []Format{Fours, Sixes, Prolander, Highlander} //nolint:gochecknoglobals

// Upper density bounds, exclusive. Anything at or above the last bound is Highlander.
const (
	foursMaxDensity     = 10.0
	sixesMaxDensity     = 12.2
	prolanderMaxDensity = 14.2
)

func (f Format) String() string {
	switch f {
	case Fours:
		return "fours"
	case Sixes:
		return "sixes"
	case Prolander:
		return "prolander"
	case Highlander:
		return "highlander"
	default:
		return "unknown"
	}
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*f = parsed

	return nil
}

// Parse converts a format name back into a Format.
func Parse(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fours", "4s":
		return Fours, nil
	case "sixes", "6s":
		return Sixes, nil
	case "prolander", "7s":
		return Prolander, nil
	case "highlander", "hl", "9s":
		return Highlander, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Density is the number of player seconds recorded per second of game time, roughly the
// average number of players on the field.
func Density(log gamelog.GameLog) float64 {
	if log.Length <= 0 {
		return 0
	}

	playerSeconds := 0
	for _, player := range log.Players {
		playerSeconds += player.TotalTime()
	}

	return float64(playerSeconds) / float64(log.Length)
}

// Classify returns the format for the given density.
func Classify(log gamelog.GameLog) Format {
	return FromDensity(Density(log))
}

func FromDensity(density float64) Format {
	switch {
	case density < foursMaxDensity:
		return Fours
	case density < sixesMaxDensity:
		return Sixes
	case density < prolanderMaxDensity:
		return Prolander
	default:
		return Highlander
	}
}
