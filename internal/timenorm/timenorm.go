// Package timenorm implements a total date/time normalization function:
// every entry gets a canonical date, time, and timestamp, falling back to
// "now" in a fixed +05:30 offset when the caller supplies nothing parseable.
package timenorm

import (
	"strings"
	"time"
)

// FixedOffset is the engine-wide wall-clock offset applied whenever an input
// falls back to "now" or a canonical timestamp is reconstructed.
var FixedOffset = time.FixedZone("engine", 5*60*60+30*60)

// Canonical is the normalized shape every entry carries.
type Canonical struct {
	Date      string // DD/MM/YYYY
	Time      string // HH:mm
	Timestamp time.Time
}

const (
	dateLayoutSlash = "02/01/2006"
	dateLayoutISO   = "2006-01-02"
	timeLayoutShort = "15:04"
	timeLayoutLong  = "15:04:05"
)

// Normalize is a total function: it never fails. date and time are optional;
// whichever one is missing or unparseable falls back to the corresponding
// component of the current wall-clock time in FixedOffset.
func Normalize(date, timeStr string) Canonical {
	now := time.Now().In(FixedOffset)

	d, ok := parseDate(date)
	if !ok {
		d = now
	}

	tOfDay, ok := parseTime(timeStr)
	if !ok {
		tOfDay = timeOfDay{hour: now.Hour(), minute: now.Minute(), second: now.Second()}
	}

	ts := time.Date(d.Year(), d.Month(), d.Day(), tOfDay.hour, tOfDay.minute, tOfDay.second, 0, FixedOffset)

	return Canonical{
		Date:      ts.Format(dateLayoutSlash),
		Time:      ts.Format(timeLayoutShort),
		Timestamp: ts,
	}
}

type timeOfDay struct {
	hour, minute, second int
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{dateLayoutSlash, dateLayoutISO} {
		if t, err := time.ParseInLocation(layout, raw, FixedOffset); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTime(raw string) (timeOfDay, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return timeOfDay{}, false
	}
	for _, layout := range []string{timeLayoutLong, timeLayoutShort} {
		if t, err := time.Parse(layout, raw); err == nil {
			return timeOfDay{hour: t.Hour(), minute: t.Minute(), second: t.Second()}, true
		}
	}
	return timeOfDay{}, false
}
