package memory

import (
	"testing"
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/formula"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
)

func TestProjectSaveGetDelete(t *testing.T) {
	s := New()
	projects := s.Projects()

	p := &project.Project{ClientID: "c1", ProjectID: "p1", Methodology: project.M1}
	if err := projects.Save(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := projects.Get("c1", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProjectID != "p1" {
		t.Fatalf("got %+v", got)
	}

	if err := projects.Delete("c1", "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := projects.Get("c1", "p1"); err != repository.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestProjectNextSequenceIncrementsPerClient(t *testing.T) {
	s := New()
	projects := s.Projects()

	a1, _ := projects.NextSequence("acme")
	a2, _ := projects.NextSequence("acme")
	b1, _ := projects.NextSequence("beta")

	if a1 != 1 || a2 != 2 || b1 != 1 {
		t.Fatalf("got a1=%d a2=%d b1=%d", a1, a2, b1)
	}
}

func TestEntryListSeriesOrdersByTimestamp(t *testing.T) {
	s := New()
	entries := s.Entries()

	key := entry.SeriesKey{ClientID: "c1", ProjectID: "p1", Methodology: project.M1}
	later := &entry.Entry{ID: "e2", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: time.Date(2025, 8, 14, 11, 0, 0, 0, time.UTC), NetReduction: 5}
	earlier := &entry.Entry{ID: "e1", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: time.Date(2025, 8, 13, 9, 0, 0, 0, time.UTC), NetReduction: 2}

	_ = entries.Append(later)
	_ = entries.Append(earlier)

	series, err := entries.ListSeries(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 2 || series[0].ID != "e1" || series[1].ID != "e2" {
		t.Fatalf("got %+v, want [e1, e2]", series)
	}
}

func TestEntryBulkUpdateDerived(t *testing.T) {
	s := New()
	entries := s.Entries()
	_ = entries.Append(&entry.Entry{ID: "e1", ClientID: "c1", ProjectID: "p1", Methodology: project.M1})

	err := entries.BulkUpdateDerived([]repository.DerivedUpdate{{EntryID: "e1", Cumulative: 5, High: 5, Low: 5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := entries.Get("e1")
	if got.CumulativeNetReduction != 5 || got.HighNetReduction != 5 || got.LowNetReduction != 5 {
		t.Fatalf("got %+v", got)
	}
}

func TestFormulaGetReturnsLatestVersion(t *testing.T) {
	s := New()
	formulas := s.Formulas()

	_ = formulas.Save(&formula.Formula{ID: "f1", Version: 1, Expression: "a"})
	_ = formulas.Save(&formula.Formula{ID: "f1", Version: 2, Expression: "a + b"})

	got, err := formulas.GetFormula("f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("got version %d, want 2", got.Version)
	}
}

func TestSummaryUpsertAndGet(t *testing.T) {
	s := New()
	summaries := s.Summaries()

	if err := summaries.UpsertPeriodSummary("c1", "daily", "2025-08-14", []byte(`{"total":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := summaries.GetPeriodSummary("c1", "daily", "2025-08-14")
	if err != nil || !ok {
		t.Fatalf("expected a stored summary, err=%v ok=%v", err, ok)
	}
	if string(got) != `{"total":1}` {
		t.Fatalf("got %s", got)
	}

	if _, ok, _ := summaries.GetPeriodSummary("c1", "daily", "missing"); ok {
		t.Fatal("expected no summary for an unknown window")
	}
}
