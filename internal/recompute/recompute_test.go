package recompute

import (
	"testing"
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/repository/memory"
)

func seriesKey() entry.SeriesKey {
	return entry.SeriesKey{ClientID: "c1", ProjectID: "p1", Methodology: project.M1}
}

// S1 then S2: value=10 at 14/08; then a retroactive value=4 (net=2) at
// 13/08. Expect cumulatives [2, 7], highs [2, 7], lows [2, 2].
func TestRecomputeRetroactiveInsert(t *testing.T) {
	repo := memory.New()
	entries := repo.Entries()

	_ = entries.Append(&entry.Entry{
		ID: "e-14", ClientID: "c1", ProjectID: "p1", Methodology: project.M1,
		Timestamp: time.Date(2025, 8, 14, 11, 0, 0, 0, time.UTC), NetReduction: 5,
	})

	r := New(entries)
	if err := r.Recompute(seriesKey()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e14, _ := entries.Get("e-14")
	if e14.CumulativeNetReduction != 5 || e14.HighNetReduction != 5 || e14.LowNetReduction != 5 {
		t.Fatalf("unexpected single-row derived columns: %+v", e14)
	}

	_ = entries.Append(&entry.Entry{
		ID: "e-13", ClientID: "c1", ProjectID: "p1", Methodology: project.M1,
		Timestamp: time.Date(2025, 8, 13, 9, 0, 0, 0, time.UTC), NetReduction: 2,
	})
	if err := r.Recompute(seriesKey()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e13, _ := entries.Get("e-13")
	e14, _ = entries.Get("e-14")
	if e13.CumulativeNetReduction != 2 || e13.HighNetReduction != 2 || e13.LowNetReduction != 2 {
		t.Fatalf("unexpected e-13 derived columns: %+v", e13)
	}
	if e14.CumulativeNetReduction != 7 || e14.HighNetReduction != 7 || e14.LowNetReduction != 2 {
		t.Fatalf("unexpected e-14 derived columns: %+v", e14)
	}
}

// Idempotence: calling Recompute twice back-to-back with no intervening
// writes produces identical derived columns.
func TestRecomputeIsIdempotent(t *testing.T) {
	repo := memory.New()
	entries := repo.Entries()
	_ = entries.Append(&entry.Entry{ID: "e1", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: time.Now(), NetReduction: 3})
	_ = entries.Append(&entry.Entry{ID: "e2", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: time.Now().Add(time.Minute), NetReduction: -7})

	r := New(entries)
	if err := r.Recompute(seriesKey()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := entries.ListSeries(seriesKey())

	if err := r.Recompute(seriesKey()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := entries.ListSeries(seriesKey())

	for i := range first {
		if first[i].CumulativeNetReduction != second[i].CumulativeNetReduction ||
			first[i].HighNetReduction != second[i].HighNetReduction ||
			first[i].LowNetReduction != second[i].LowNetReduction {
			t.Fatalf("recompute was not idempotent at row %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// Edit/Delete restorability: insert, delete, recompute reproduces the
// derived columns as if the row had never existed.
func TestRecomputeAfterDeleteRestoresPriorState(t *testing.T) {
	repo := memory.New()
	entries := repo.Entries()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = entries.Append(&entry.Entry{ID: "e1", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: base, NetReduction: 4})
	_ = entries.Append(&entry.Entry{ID: "e2", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: base.Add(time.Hour), NetReduction: 6})

	r := New(entries)
	_ = r.Recompute(seriesKey())
	baseline, _ := entries.Get("e2")

	_ = entries.Append(&entry.Entry{ID: "e3", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: base.Add(30 * time.Minute), NetReduction: 100})
	_ = r.Recompute(seriesKey())

	_ = entries.Delete("e3")
	_ = r.Recompute(seriesKey())

	after, _ := entries.Get("e2")
	if after.CumulativeNetReduction != baseline.CumulativeNetReduction {
		t.Fatalf("got %v, want %v after insert+delete+recompute", after.CumulativeNetReduction, baseline.CumulativeNetReduction)
	}
}

func TestRecomputeEmptySeriesNoOp(t *testing.T) {
	repo := memory.New()
	r := New(repo.Entries())
	if err := r.Recompute(seriesKey()); err != nil {
		t.Fatalf("unexpected error on empty series: %v", err)
	}
}

func TestRecomputeWatermarkMonotonicity(t *testing.T) {
	repo := memory.New()
	entries := repo.Entries()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	vals := []float64{3, -5, 8, -1, 2}
	for i, v := range vals {
		_ = entries.Append(&entry.Entry{
			ID: string(rune('a' + i)), ClientID: "c1", ProjectID: "p1", Methodology: project.M1,
			Timestamp: base.Add(time.Duration(i) * time.Hour), NetReduction: v,
		})
	}
	r := New(entries)
	if err := r.Recompute(seriesKey()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	series, _ := entries.ListSeries(seriesKey())
	for i := 1; i < len(series); i++ {
		if series[i].HighNetReduction < series[i-1].HighNetReduction {
			t.Fatalf("high watermark decreased at row %d", i)
		}
		if series[i].LowNetReduction > series[i-1].LowNetReduction {
			t.Fatalf("low watermark increased at row %d", i)
		}
	}
}
