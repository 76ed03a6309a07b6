package store

import (
	"testing"
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/GreonXpert/netreduction-engine/internal/repository/memory"
)

func TestAppendAssignsID(t *testing.T) {
	repo := memory.New()
	s := New(repo.Entries())

	saved, err := s.Append(&entry.Entry{ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: time.Now(), NetReduction: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected Append to assign an id")
	}
}

func TestEditPreservesDerivedColumns(t *testing.T) {
	repo := memory.New()
	s := New(repo.Entries())

	saved, _ := s.Append(&entry.Entry{ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: time.Now(), NetReduction: 5})
	_ = repo.Entries().BulkUpdateDerived([]repository.DerivedUpdate{{EntryID: saved.ID, Cumulative: 5, High: 5, Low: 5}})

	updated := *saved
	updated.NetReduction = 9
	edited, err := s.Edit(&updated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edited.CumulativeNetReduction != 5 {
		t.Fatalf("expected Edit to preserve the pre-recompute derived columns, got %v", edited.CumulativeNetReduction)
	}
	if edited.NetReduction != 9 {
		t.Fatalf("expected Edit to apply the new netReduction, got %v", edited.NetReduction)
	}
}

func TestEditRejectsSeriesChange(t *testing.T) {
	repo := memory.New()
	s := New(repo.Entries())

	saved, _ := s.Append(&entry.Entry{ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: time.Now()})

	updated := *saved
	updated.ProjectID = "p2"
	if _, err := s.Edit(&updated); err == nil {
		t.Fatal("expected an error when edit changes the entry's series")
	}
}

func TestDeleteReturnsSeriesKey(t *testing.T) {
	repo := memory.New()
	s := New(repo.Entries())

	saved, _ := s.Append(&entry.Entry{ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: time.Now()})

	key, err := s.Delete(saved.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := entry.SeriesKey{ClientID: "c1", ProjectID: "p1", Methodology: project.M1}
	if key != want {
		t.Fatalf("got %+v, want %+v", key, want)
	}

	if _, err := s.Get(saved.ID); err == nil {
		t.Fatal("expected entry to be gone after delete")
	}
}
