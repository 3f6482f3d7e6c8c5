// Package durationtext parses and formats human-readable durations such
// as "2w 1d 3h". Supported units are weeks, days, hours, minutes and
// seconds; parsing is case-insensitive and whitespace tolerant.
package durationtext

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	millisPerSecond = int64(1000)
	millisPerMinute = 60 * millisPerSecond
	millisPerHour   = 60 * millisPerMinute
	millisPerDay    = 24 * millisPerHour
	millisPerWeek   = 7 * millisPerDay
)

var tokenPattern = regexp.MustCompile(`^(\d+)([wdhms])$`)

var unitMillis = map[string]int64{
	"w": millisPerWeek,
	"d": millisPerDay,
	"h": millisPerHour,
	"m": millisPerMinute,
	"s": millisPerSecond,
}

// Parse converts duration text like "2w 1d 3h" or "90m" to milliseconds.
// Returns false for empty, malformed, or unitless input.
func Parse(text string) (int64, bool) {
	compact := strings.ToLower(strings.Join(strings.Fields(text), ""))
	if compact == "" {
		return 0, false
	}

	var total int64
	for len(compact) > 0 {
		i := 0
		for i < len(compact) && compact[i] >= '0' && compact[i] <= '9' {
			i++
		}
		if i == 0 || i >= len(compact) {
			return 0, false
		}
		token := compact[:i+1]
		m := tokenPattern.FindStringSubmatch(token)
		if m == nil {
			return 0, false
		}
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		total += value * unitMillis[m[2]]
		compact = compact[i+1:]
	}
	return total, true
}

// Format renders milliseconds as duration text, largest units first,
// omitting zero components. Non-positive input renders as "0s".
func Format(millis int64) string {
	if millis <= 0 {
		return "0s"
	}

	var parts []string
	for _, unit := range []struct {
		suffix string
		millis int64
	}{
		{"w", millisPerWeek},
		{"d", millisPerDay},
		{"h", millisPerHour},
		{"m", millisPerMinute},
		{"s", millisPerSecond},
	} {
		if millis >= unit.millis {
			parts = append(parts, strconv.FormatInt(millis/unit.millis, 10)+unit.suffix)
			millis %= unit.millis
		}
	}
	return strings.Join(parts, " ")
}
