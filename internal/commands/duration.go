package commands

import (
	"regexp"
	"strconv"
	"time"
)

var durationRe = regexp.MustCompile(`^(\d{1,6})([smh])$`)

// ParseMuteDuration parses <int><s|m|h>. Anything missing, unparsable or zero
// yields def.
func ParseMuteDuration(s string, def time.Duration) time.Duration {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return def
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return def
	}
	unit := time.Second
	switch m[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	}
	return time.Duration(n) * unit
}

// FormatMuteDuration renders d in the largest whole unit
func FormatMuteDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
	case d >= time.Minute && d%time.Minute == 0:
		return strconv.FormatInt(int64(d/time.Minute), 10) + "m"
	default:
		return strconv.FormatInt(int64((d+time.Second-1)/time.Second), 10) + "s"
	}
}
