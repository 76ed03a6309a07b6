package summary

import (
	"fmt"
	"time"
)

// Period names the five cadences the Summary Engine maintains.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
	PeriodAllTime Period = "all-time"
)

// Periods lists every cadence recomputed on each Summary Engine trigger.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAllTime}

// localOffset is the fixed offset applied to the daily/weekly windows,
// matching the Time Normalizer's zone (internal/timenorm.FixedOffset).
var localOffset = time.FixedZone("+05:30", 5*3600+30*60)

// allTimeFrom is the fixed start of the all-time window.
var allTimeFrom = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Window is the computed [From, To] bound for one period, plus the stable
// key the period summary document is upserted under.
type Window struct {
	From time.Time
	To   time.Time
	Key  string
}

// WindowFor computes period's window relative to now (daily/weekly use the
// fixed +05:30 offset; monthly/yearly/all-time use UTC).
func WindowFor(period Period, now time.Time) Window {
	switch period {
	case PeriodDaily:
		return dailyWindow(now)
	case PeriodWeekly:
		return weeklyWindow(now)
	case PeriodMonthly:
		return monthlyWindow(now)
	case PeriodYearly:
		return yearlyWindow(now)
	case PeriodAllTime:
		return Window{From: allTimeFrom, To: now.UTC(), Key: "all-time"}
	default:
		return Window{From: allTimeFrom, To: now.UTC(), Key: "all-time"}
	}
}

func dailyWindow(now time.Time) Window {
	local := now.In(localOffset)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, localOffset)
	to := from.Add(24*time.Hour - time.Millisecond)
	return Window{From: from, To: to, Key: from.Format("2006-01-02")}
}

func weeklyWindow(now time.Time) Window {
	local := now.In(localOffset)
	// ISO week runs Monday-Sunday; time.Weekday has Sunday == 0.
	offset := int(local.Weekday())
	if offset == 0 {
		offset = 7
	}
	monday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, localOffset).
		AddDate(0, 0, -(offset - 1))
	sunday := monday.AddDate(0, 0, 7).Add(-time.Millisecond)
	isoYear, isoWeek := monday.ISOWeek()
	return Window{From: monday, To: sunday, Key: isoWeekKey(isoYear, isoWeek)}
}

func isoWeekKey(year, week int) string {
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func monthlyWindow(now time.Time) Window {
	u := now.UTC()
	from := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Millisecond)
	return Window{From: from, To: to, Key: from.Format("2006-01")}
}

func yearlyWindow(now time.Time) Window {
	u := now.UTC()
	from := time.Date(u.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0).Add(-time.Millisecond)
	return Window{From: from, To: to, Key: from.Format("2006")}
}
