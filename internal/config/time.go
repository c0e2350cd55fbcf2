package config

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

var (
	reDuration         = regexp.MustCompile(`^(\d+)([smhdwMy])$`)
	errInvalidDuration = errors.New("invalid duration")
)

// ParseDuration works like time.ParseDuration except that it also supports units longer than hours.
// Formats: s, m, h, d, w, M, y. Anything time.ParseDuration accepts is also accepted.
func ParseDuration(durationString string) (time.Duration, error) {
	if durationString == "0" {
		return 0, nil
	}

	matchDuration := reDuration.FindStringSubmatch(durationString)
	if matchDuration == nil {
		duration, errParse := time.ParseDuration(durationString)
		if errParse != nil {
			return 0, errors.Join(errParse, errInvalidDuration)
		}

		return duration, nil
	}

	valueInt, err := strconv.ParseInt(matchDuration[1], 10, 64)
	if err != nil {
		return 0, errInvalidDuration
	}

	value := time.Duration(valueInt)
	day := time.Hour * 24

	switch matchDuration[2] {
	case "s":
		return time.Second * value, nil
	case "m":
		return time.Minute * value, nil
	case "h":
		return time.Hour * value, nil
	case "d":
		return day * value, nil
	case "w":
		return day * 7 * value, nil
	case "M":
		return day * 31 * value, nil
	case "y":
		return day * 365 * value, nil
	}

	return 0, errInvalidDuration
}
