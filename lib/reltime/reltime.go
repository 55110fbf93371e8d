// Package reltime converts the relative, human-readable ages rendered by
// the site ("19d ago") into absolute timestamps. The conversion is lossy,
// so every result carries a precision bucket and the raw source string.
package reltime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Precision string

const (
	Seconds Precision = "seconds"
	Minutes Precision = "minutes"
	Hours   Precision = "hours"
	Days    Precision = "days"
	Weeks   Precision = "weeks"
	Years   Precision = "years"
	Unknown Precision = "unknown"
)

// a year is approximated as 365 days, leap years are not corrected for
var unitDurations = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": time.Hour * 24,
	"w": time.Hour * 24 * 7,
	"y": time.Hour * 24 * 365,
}

var unitPrecisions = map[string]Precision{
	"s": Seconds,
	"m": Minutes,
	"h": Hours,
	"d": Days,
	"w": Weeks,
	"y": Years,
}

// Normalize resolves an (amount, unit) pair against an injected "now".
// An unrecognized unit yields (nil, Unknown, raw) so callers can keep
// the source string for traceability.
func Normalize(amount int64, unit string, now time.Time) (*time.Time, Precision, string) {
	unit = strings.ToLower(unit)
	if unit == "" {
		return nil, Unknown, ""
	}

	raw := fmt.Sprintf("%d%s ago", amount, unit)

	d, ok := unitDurations[unit]
	if !ok {
		return nil, Unknown, raw
	}

	ts := now.Add(-d * time.Duration(amount))
	return &ts, unitPrecisions[unit], raw
}

// FromParts is Normalize over the raw digit/letter runs split out of a
// feed card's age span. Either part missing yields (nil, Unknown, "").
func FromParts(number, letter string, now time.Time) (*time.Time, Precision, string) {
	if number == "" || letter == "" {
		return nil, Unknown, ""
	}
	amount, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return nil, Unknown, ""
	}
	return Normalize(amount, letter, now)
}

var relativeRegex = regexp.MustCompile(`(\d+)\s*([smhdwy])\b`)

// Parse applies the same semantics to free text ("posted 3h ago").
func Parse(text string, now time.Time) (*time.Time, Precision, string) {
	match := relativeRegex.FindStringSubmatch(strings.ToLower(text))
	if len(match) < 3 {
		return nil, Unknown, ""
	}
	return FromParts(match[1], match[2], now)
}
