// Package frozenvar implements the Frozen-Variable Resolver: given a
// project, a symbol, and an instant, it returns the scheduled value
// according to the symbol's per-variable policy (constant, or periodic with
// history and carry-forward).
package frozenvar

import (
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
)

// Resolve returns the effective value of symbol s on project p at instant t.
// All comparisons are made on UTC instants; the result is deterministic
// given (p, s, t).
func Resolve(p *project.Project, s string, t time.Time) (float64, error) {
	if p.M2 == nil {
		return 0, apperr.FrozenMissing(s)
	}
	fv, ok := p.M2.FormulaRef.Variables[s]
	if !ok {
		return 0, apperr.FrozenMissing(s)
	}

	if fv.Policy.IsConstant {
		return fv.Value, nil
	}

	t = t.UTC()
	schedule := fv.Policy.Schedule
	periodStart := floorToPeriod(t, schedule.Frequency)

	if schedule.FromDate != nil && t.Before(schedule.FromDate.UTC()) {
		return fv.Value, nil
	}

	if schedule.ToDate != nil && t.After(schedule.ToDate.UTC()) {
		if h, ok := latestAtOrBefore(fv.History, schedule.ToDate.UTC()); ok {
			return h.Value, nil
		}
		return fv.Value, nil
	}

	if h, ok := containing(fv.History, periodStart, schedule.Frequency); ok {
		return h.Value, nil
	}

	if h, ok := latestAtOrBefore(fv.History, periodStart); ok {
		return h.Value, nil
	}

	return fv.Value, nil
}

// floorToPeriod floors t to the start of its UTC period for freq.
func floorToPeriod(t time.Time, freq project.ScheduleFrequency) time.Time {
	year, month, _ := t.Date()
	switch freq {
	case project.FrequencyMonthly:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	case project.FrequencyQuarterly:
		m := ((int(month) - 1) / 3) * 3
		return time.Date(year, time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
	case project.FrequencySemiannual:
		m := ((int(month) - 1) / 6) * 6
		return time.Date(year, time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
	case project.FrequencyYearly:
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	}
}

// addPeriod advances periodStart by exactly one period of freq.
func addPeriod(periodStart time.Time, freq project.ScheduleFrequency) time.Time {
	switch freq {
	case project.FrequencyMonthly:
		return periodStart.AddDate(0, 1, 0)
	case project.FrequencyQuarterly:
		return periodStart.AddDate(0, 3, 0)
	case project.FrequencySemiannual:
		return periodStart.AddDate(0, 6, 0)
	case project.FrequencyYearly:
		return periodStart.AddDate(1, 0, 0)
	default:
		return periodStart.AddDate(0, 1, 0)
	}
}

// containing finds the first history entry whose window contains
// periodStart. The window runs from From to To or, when To is unset, to the
// end of the freq period that From falls in.
func containing(history []project.HistoryEntry, periodStart time.Time, freq project.ScheduleFrequency) (project.HistoryEntry, bool) {
	for _, h := range history {
		from := h.From.UTC()
		to := addPeriod(floorToPeriod(from, freq), freq).Add(-time.Millisecond)
		if h.To != nil {
			to = h.To.UTC()
		}
		if !periodStart.Before(from) && !periodStart.After(to) {
			return h, true
		}
	}
	return project.HistoryEntry{}, false
}

// latestAtOrBefore returns the history entry with the latest From at or
// before cutoff.
func latestAtOrBefore(history []project.HistoryEntry, cutoff time.Time) (project.HistoryEntry, bool) {
	var best project.HistoryEntry
	found := false
	for _, h := range history {
		from := h.From.UTC()
		if from.After(cutoff) {
			continue
		}
		if !found || from.After(best.From.UTC()) {
			best = h
			found = true
		}
	}
	return best, found
}
