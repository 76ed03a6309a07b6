package summary

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/repository/memory"
)

type fakeMetadata struct {
	byClient map[string]map[string]project.Metadata
}

func (f *fakeMetadata) ProjectMetadata(clientID string) (map[string]project.Metadata, error) {
	return f.byClient[clientID], nil
}

func TestRefreshProducesAllTimeTotalsAcrossGroupings(t *testing.T) {
	repo := memory.New()
	entries := repo.Entries()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	_ = entries.Append(&entry.Entry{ID: "e1", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: now.AddDate(0, 0, -1), NetReduction: 10})
	_ = entries.Append(&entry.Entry{ID: "e2", ClientID: "c1", ProjectID: "p2", Methodology: project.M2, Timestamp: now.AddDate(0, 0, -2), NetReduction: 5})

	meta := &fakeMetadata{byClient: map[string]map[string]project.Metadata{
		"c1": {
			"p1": {ProjectName: "Solar Farm", Category: "Renewable", Scope: "Scope1", Location: "Gujarat", Methodology: project.M1},
			"p2": {ProjectName: "Biogas", Category: "Renewable", Scope: "Scope2", Location: "Kerala", Methodology: project.M2},
		},
	}}

	engine := New(entries, repo.Summaries(), meta, nil, nil)
	if err := engine.Refresh("c1", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, ok, err := repo.Summaries().GetPeriodSummary("c1", string(PeriodAllTime), "all-time")
	if err != nil || !ok {
		t.Fatalf("expected an all-time summary document, err=%v ok=%v", err, ok)
	}
	var doc PeriodSummary
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.TotalNetReduction != 15 || doc.EntriesCount != 2 {
		t.Fatalf("got total=%v count=%v, want 15/2", doc.TotalNetReduction, doc.EntriesCount)
	}
	if len(doc.ByProject) != 2 {
		t.Fatalf("expected 2 project buckets, got %d", len(doc.ByProject))
	}
	if doc.ByCategory["Renewable"].TotalNetReduction != 15 {
		t.Fatalf("unexpected category bucket: %+v", doc.ByCategory["Renewable"])
	}
	if !doc.HasReductionSummary {
		t.Fatal("expected hasReductionSummary to be set")
	}
}

func TestRefreshWritesLegacyClientSummaryWithTrailingWindows(t *testing.T) {
	repo := memory.New()
	entries := repo.Entries()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	_ = entries.Append(&entry.Entry{ID: "recent", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: now.AddDate(0, 0, -1), NetReduction: 4})
	_ = entries.Append(&entry.Entry{ID: "old", ClientID: "c1", ProjectID: "p1", Methodology: project.M1, Timestamp: now.AddDate(0, 0, -60), NetReduction: 9})

	meta := &fakeMetadata{byClient: map[string]map[string]project.Metadata{"c1": {"p1": {ProjectName: "Solar Farm"}}}}
	engine := New(entries, repo.Summaries(), meta, nil, nil)
	if err := engine.Refresh("c1", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, ok, err := repo.Summaries().GetClientSummary("c1")
	if err != nil || !ok {
		t.Fatalf("expected a client summary document, err=%v ok=%v", err, ok)
	}
	var doc ClientSummary
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.TotalNetReduction != 13 {
		t.Fatalf("got %v, want 13", doc.TotalNetReduction)
	}
	if doc.Last7Days.TotalNetReduction != 4 {
		t.Fatalf("got last7Days=%v, want 4", doc.Last7Days.TotalNetReduction)
	}
	series, ok := doc.ByProjectSeries["p1"]
	if !ok || len(series) != 2 {
		t.Fatalf("expected a two-point time series for p1, got %+v", series)
	}
}

func TestRefreshWithNoMatchingEntriesStillWritesEmptyDocument(t *testing.T) {
	repo := memory.New()
	meta := &fakeMetadata{byClient: map[string]map[string]project.Metadata{"c1": {}}}
	engine := New(repo.Entries(), repo.Summaries(), meta, nil, nil)

	if err := engine.Refresh("c1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok, err := repo.Summaries().GetPeriodSummary("c1", string(PeriodDaily), WindowFor(PeriodDaily, time.Now()).Key)
	if err != nil || !ok {
		t.Fatalf("expected an (empty) daily summary document to be written, err=%v ok=%v", err, ok)
	}
}
