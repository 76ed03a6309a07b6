// Package recompute implements the Series Recomputer (C7): for one
// (client, project, methodology) series, walk every row in ascending
// timestamp order exactly once and bulk-write cumulative/high/low.
package recompute

import (
	"context"
	"time"

	core "github.com/GreonXpert/netreduction-engine/internal/core/service"
	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/platform/metrics"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/GreonXpert/netreduction-engine/internal/round"
)

// Recomputer walks a series and writes its derived columns.
type Recomputer struct {
	entries repository.EntryRepository
}

// New returns a Recomputer backed by repo.
func New(repo repository.EntryRepository) *Recomputer {
	return &Recomputer{entries: repo}
}

// Recompute loads every entry in key's series in ascending timestamp order
// (ties broken by insertion-order id), walks it once computing a running
// cumulative sum plus its running high/low watermark, and bulk-writes the
// result.
//
// This is the cumulative-based variant: high and low track the cumulative
// sum, not the per-row netReduction. A second, per-row variant existed
// alongside this one; it produces different watermarks on any series with
// a negative-netReduction row and is intentionally not implemented here.
// Do not "fix" this back to a per-row computation — the cumulative variant
// is the one the edit/delete path and dashboards are built against.
func (r *Recomputer) Recompute(key entry.SeriesKey) (err error) {
	done := core.StartObservation(context.Background(), core.ObservationHooks{
		OnComplete: func(_ context.Context, meta map[string]string, _ error, d time.Duration) {
			metrics.RecordRecompute(meta["methodology"], d)
		},
	}, map[string]string{"methodology": string(key.Methodology)})
	defer func() { done(err) }()

	series, err := r.entries.ListSeries(key)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return nil
	}

	var cum float64
	var hi, lo float64
	haveWatermark := false

	updates := make([]repository.DerivedUpdate, 0, len(series))
	for _, e := range series {
		cum = round.Round6(cum + e.NetReduction)
		if !haveWatermark {
			hi, lo = cum, cum
			haveWatermark = true
		} else {
			if cum > hi {
				hi = cum
			}
			if cum < lo {
				lo = cum
			}
		}
		updates = append(updates, repository.DerivedUpdate{EntryID: e.ID, Cumulative: cum, High: hi, Low: lo})
	}

	err = r.entries.BulkUpdateDerived(updates)
	return err
}
